package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/albapepper/scoracle-live/internal/match"
)

type outbound struct {
	matchID string
	data    []byte
}

// Hub maintains the WebSocket clients of every match and fans snapshot
// messages out to the ones watching that match.
type Hub struct {
	clients   map[string]map[*Client]struct{}
	clientsMu sync.RWMutex

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger  *slog.Logger
	origins []string

	metricsMu        sync.Mutex
	totalConnections int64
	totalMessages    int64
	dropped          int64
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan outbound, 1000),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's main loop. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.shutdown()
			h.logger.Info("WebSocket hub stopped")
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Register adds a client. Ignored once the hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues snap for every client watching its match. Never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(_ context.Context, snap match.Snapshot) {
	data, err := SnapshotMessage(snap)
	if err != nil {
		h.logger.Error("Failed to encode snapshot message", "match_id", snap.MatchID, "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{matchID: snap.MatchID, data: data}:
	default:
		h.logger.Warn("Broadcast buffer full, dropping snapshot", "match_id", snap.MatchID)
	}
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	set, ok := h.clients[c.MatchID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.MatchID] = set
	}
	set[c] = struct{}{}

	h.metricsMu.Lock()
	h.totalConnections++
	h.metricsMu.Unlock()

	h.logger.Info("WebSocket client connected", "client_id", c.ID, "match_id", c.MatchID, "watchers", len(set))
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	set, ok := h.clients[c.MatchID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	c.closeSend()
	if len(set) == 0 {
		delete(h.clients, c.MatchID)
	}
	h.logger.Info("WebSocket client disconnected", "client_id", c.ID, "match_id", c.MatchID)
}

func (h *Hub) fanOut(msg outbound) {
	h.clientsMu.RLock()
	targets := make([]*Client, 0, len(h.clients[msg.matchID]))
	for c := range h.clients[msg.matchID] {
		targets = append(targets, c)
	}
	h.clientsMu.RUnlock()

	sent, dropped := 0, 0
	for _, c := range targets {
		if c.TrySend(msg.data) {
			sent++
			continue
		}
		dropped++
		// Too slow to keep up; disconnect it.
		go h.Unregister(c)
	}

	h.metricsMu.Lock()
	if sent > 0 {
		h.totalMessages++
	}
	h.dropped += int64(dropped)
	h.metricsMu.Unlock()

	if dropped > 0 {
		h.logger.Warn("Dropped slow WebSocket clients", "match_id", msg.matchID, "count", dropped)
	}
}

// Watchers returns the number of clients watching a match.
func (h *Hub) Watchers(matchID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[matchID])
}

// Metrics returns hub counters.
func (h *Hub) Metrics() map[string]interface{} {
	h.clientsMu.RLock()
	matches, clients := len(h.clients), 0
	for _, set := range h.clients {
		clients += len(set)
	}
	h.clientsMu.RUnlock()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return map[string]interface{}{
		"matches":            matches,
		"active_clients":     clients,
		"total_connections":  h.totalConnections,
		"total_messages":     h.totalMessages,
		"dropped_clients":    h.dropped,
		"broadcast_capacity": cap(h.broadcast),
		"broadcast_usage":    len(h.broadcast),
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for matchID, set := range h.clients {
		for c := range set {
			c.closeSend()
		}
		delete(h.clients, matchID)
	}
}
