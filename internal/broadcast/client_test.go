package broadcast

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestHandleAfterHubReleasesClient(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c := NewClient("c1", "court-1", nil, h, nil, h.logger)
	h.registerClient(c)
	h.unregisterClient(c)

	// Replies to a released client are dropped rather than sent on the
	// closed channel.
	for _, msg := range []ClientMessage{
		{Type: ClientMessageHeartbeat},
		{Type: ClientMessageCommand},
		{Type: "unknown"},
	} {
		c.handle(context.Background(), msg)
	}
	if _, ok := <-c.Send; ok {
		t.Error("send channel should be closed and empty")
	}
}

func TestShutdownReleasesClients(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c := NewClient("c1", "court-1", nil, h, nil, h.logger)
	h.registerClient(c)
	h.shutdown()

	c.handle(context.Background(), ClientMessage{Type: ClientMessageHeartbeat})
	if c.TrySend([]byte("x")) {
		t.Error("TrySend succeeded after shutdown")
	}
}
