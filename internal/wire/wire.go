// Package wire is the JSON envelope commands travel in over HTTP, WebSocket,
// Postgres NOTIFY and replay logs:
//
//	{"type": "UpdatePlayerStat", "payload": {"team_id": "...", ...}}
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/albapepper/scoracle-live/internal/match"
)

// ErrUnknownCommand is returned when an envelope names no known kind.
var ErrUnknownCommand = errors.New("unknown command")

// Envelope is the wire form of a command.
type Envelope struct {
	Type    match.Kind      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode returns the envelope JSON for c.
func Encode(c match.Command) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", c.Kind(), err)
	}
	env := Envelope{Type: c.Kind()}
	if !bytes.Equal(payload, []byte("{}")) {
		env.Payload = payload
	}
	return json.Marshal(env)
}

// Decode parses an envelope.
func Decode(data []byte) (match.Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode command envelope: %w", err)
	}
	return env.Command()
}

// Command converts the envelope to its concrete command.
func (e Envelope) Command() (match.Command, error) {
	switch e.Type {
	case match.KindToggleTimer:
		return match.ToggleTimer{}, nil
	case match.KindTimerTick:
		return match.TimerTick{}, nil
	case match.KindUndo:
		return match.Undo{}, nil
	case match.KindRedo:
		return match.Redo{}, nil
	case match.KindSetTime:
		return decodePayload[match.SetTime](e)
	case match.KindChangeQuarter:
		return decodePayload[match.ChangeQuarter](e)
	case match.KindUpdateTeamStat:
		return decodePayload[match.UpdateTeamStat](e)
	case match.KindAddTimeout:
		return decodePayload[match.AddTimeout](e)
	case match.KindRemoveTimeout:
		return decodePayload[match.RemoveTimeout](e)
	case match.KindUpdatePlayerStat:
		return decodePayload[match.UpdatePlayerStat](e)
	case match.KindSubstitutePlayer:
		return decodePayload[match.SubstitutePlayer](e)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, e.Type)
}

func decodePayload[C match.Command](e Envelope) (match.Command, error) {
	var c C
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("%s: missing payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, &c); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return c, nil
}
