package broadcast

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// AllowOrigins sets the browser origins that may open sockets besides the
// server's own host. "*" allows any origin. Call before serving.
func (h *Hub) AllowOrigins(origins []string) {
	h.origins = append([]string(nil), origins...)
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), same-host origins and the configured allow list. The CORS
// middleware does not apply to upgrades.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Serve upgrades the request and attaches a new client for matchID. first,
// when non-nil, is queued before any broadcast so the client starts from
// the current state. Pumps run on ctx rather than the request context.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, matchID string, first []byte, dispatch CommandFunc) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := NewClient(uuid.New().String(), matchID, conn, h, dispatch, h.logger)
	if first != nil {
		c.TrySend(first)
	}
	h.Register(c)

	go c.WritePump(ctx)
	go c.ReadPump(ctx)
	return nil
}
