package broadcast_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/albapepper/scoracle-live/internal/broadcast"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func snapshot(matchID string) match.Snapshot {
	home := match.TeamState{TeamID: "home", Players: []match.PlayerState{{PlayerID: "h1"}}}
	away := match.TeamState{TeamID: "away", Players: []match.PlayerState{{PlayerID: "a1"}}}
	return match.NewSnapshot(matchID, home, away, match.DefaultRules())
}

func decode(t *testing.T, data []byte) broadcast.ServerMessage {
	t.Helper()
	var msg broadcast.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("bad message %q: %v", data, err)
	}
	return msg
}

func startHub(t *testing.T) (*broadcast.Hub, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := broadcast.NewHub(quiet)
	go h.Run(ctx)
	return h, ctx
}

func TestHubDeliversOnlyToWatchersOfTheMatch(t *testing.T) {
	h, _ := startHub(t)

	court1 := broadcast.NewClient("c1", "court-1", nil, h, nil, quiet)
	court2 := broadcast.NewClient("c2", "court-2", nil, h, nil, quiet)
	h.Register(court1)
	h.Register(court2)
	waitFor(t, func() bool { return h.Watchers("court-1") == 1 && h.Watchers("court-2") == 1 })

	h.Publish(context.Background(), snapshot("court-1"))

	select {
	case data := <-court1.Send:
		msg := decode(t, data)
		if msg.Type != broadcast.MessageTypeSnapshot || msg.MatchID != "court-1" {
			t.Errorf("got %s for %s", msg.Type, msg.MatchID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not receive the snapshot")
	}

	select {
	case <-court2.Send:
		t.Error("client of another match received the snapshot")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h, _ := startHub(t)
	c := broadcast.NewClient("c1", "court-1", nil, h, nil, quiet)
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c) // second unregister is ignored

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}
	if h.Watchers("court-1") != 0 {
		t.Error("client still registered")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	c := broadcast.NewClient("slow", "court-1", nil, h, nil, quiet)
	h.Register(c)
	waitFor(t, func() bool { return h.Watchers("court-1") == 1 })

	// Never drained: the buffer fills and the hub lets go of the client.
	for i := 0; i < 300; i++ {
		h.Publish(context.Background(), snapshot("court-1"))
	}
	waitFor(t, func() bool { return h.Watchers("court-1") == 0 })
}

func TestTrySendFullBuffer(t *testing.T) {
	c := broadcast.NewClient("c1", "m", nil, nil, nil, quiet)
	sent := 0
	for c.TrySend([]byte("x")) {
		sent++
		if sent > 10000 {
			t.Fatal("buffer never filled")
		}
	}
	if sent != cap(c.Send) {
		t.Errorf("sent %d, want %d", sent, cap(c.Send))
	}
}

func TestStreamKey(t *testing.T) {
	if got := broadcast.StreamKey("court-1"); got != "scoring.updates.court-1" {
		t.Errorf("StreamKey = %q", got)
	}
}

func TestServeRoundTrip(t *testing.T) {
	h, ctx := startHub(t)

	var dispatched atomic.Int32
	dispatch := func(_ context.Context, matchID string, c match.Command) (bool, error) {
		if matchID != "court-1" {
			return false, errors.New("wrong match")
		}
		dispatched.Add(1)
		return true, nil
	}

	first, err := broadcast.SnapshotMessage(snapshot("court-1"))
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Serve(ctx, w, r, "court-1", first, dispatch); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg := decode(t, data); msg.Type != broadcast.MessageTypeSnapshot {
		t.Fatalf("first message type = %s, want snapshot", msg.Type)
	}

	payload, err := wire.Encode(match.ToggleTimer{})
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(broadcast.ClientMessage{Type: broadcast.ClientMessageCommand, Payload: payload}); err != nil {
		t.Fatal(err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	msg := decode(t, data)
	if msg.Type != broadcast.MessageTypeAck {
		t.Fatalf("reply type = %s, want ack", msg.Type)
	}
	var ack broadcast.AckPayload
	if err := json.Unmarshal(msg.Payload, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.Kind != match.KindToggleTimer || !ack.Changed {
		t.Errorf("ack = %+v", ack)
	}
	if n := dispatched.Load(); n != 1 {
		t.Errorf("dispatched %d commands, want 1", n)
	}

	if err := conn.WriteJSON(broadcast.ClientMessage{Type: "subscribe"}); err != nil {
		t.Fatal(err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg := decode(t, data); msg.Type != broadcast.MessageTypeError {
		t.Errorf("unknown message reply = %s, want error", msg.Type)
	}
}

func TestTrySendAfterUnregister(t *testing.T) {
	h, _ := startHub(t)
	c := broadcast.NewClient("c1", "court-1", nil, h, nil, quiet)
	h.Register(c)
	h.Unregister(c)
	waitFor(t, func() bool { return h.Watchers("court-1") == 0 })

	if c.TrySend([]byte("late")) {
		t.Error("TrySend succeeded on a released client")
	}
}

func TestServeChecksOrigin(t *testing.T) {
	h, ctx := startHub(t)
	h.AllowOrigins([]string{"https://scores.example"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(ctx, w, r, "court-1", nil, nil)
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", server.URL, true},
		{"allowed origin", "https://scores.example", true},
		{"foreign origin", "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.want {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("foreign origin was upgraded")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("resp = %v, want 403", resp)
			}
		})
	}
}
