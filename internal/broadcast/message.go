// Package broadcast pushes snapshot changes out of a live session: to
// WebSocket clients watching a match and to a Redis stream for downstream
// consumers.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/albapepper/scoracle-live/internal/match"
)

// Message types sent to WebSocket clients.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeError    = "error"
	MessageTypeAck      = "ack"
)

// ServerMessage is the envelope written to WebSocket clients.
type ServerMessage struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"match_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ErrorPayload is the payload of an error message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckPayload answers a command sent over the socket.
type AckPayload struct {
	Kind    match.Kind `json:"kind"`
	Changed bool       `json:"changed"`
}

// Publisher receives every changed snapshot of a match.
type Publisher interface {
	Publish(ctx context.Context, snap match.Snapshot)
}

// SnapshotMessage encodes snap as a snapshot message.
func SnapshotMessage(snap match.Snapshot) ([]byte, error) {
	return newMessage(MessageTypeSnapshot, snap.MatchID, snap)
}

func newMessage(kind, matchID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ServerMessage{
		Type:      kind,
		MatchID:   matchID,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
}
