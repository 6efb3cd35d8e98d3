package wire_test

import (
	"errors"
	"testing"

	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	commands := []match.Command{
		match.ToggleTimer{},
		match.TimerTick{},
		match.SetTime{Seconds: 90},
		match.ChangeQuarter{Quarter: 5, ResetClock: true},
		match.UpdateTeamStat{TeamID: "home", Quarter: 2, Stat: match.TeamStatFoul, Value: 4},
		match.AddTimeout{TeamID: "away"},
		match.RemoveTimeout{TeamID: "away", Index: 1},
		match.UpdatePlayerStat{TeamID: "home", PlayerID: "h1", Stat: match.StatFTM, Delta: -1},
		match.SubstitutePlayer{TeamID: "home", OnCourtPlayerID: "h3", BenchPlayerID: "h1"},
		match.Undo{},
		match.Redo{},
	}

	for _, c := range commands {
		t.Run(string(c.Kind()), func(t *testing.T) {
			data, err := wire.Encode(c)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := wire.Decode(data)
			if err != nil {
				t.Fatalf("decode %s: %v", data, err)
			}
			if got != c {
				t.Errorf("decoded %#v, want %#v", got, c)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{"not json", `{`, false},
		{"unknown kind", `{"type":"Dunk"}`, true},
		{"missing payload", `{"type":"SetTime"}`, false},
		{"bad payload", `{"type":"SetTime","payload":{"seconds":"ten"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wire.Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, wire.ErrUnknownCommand); got != tt.unknown {
				t.Errorf("errors.Is(ErrUnknownCommand) = %v, want %v (%v)", got, tt.unknown, err)
			}
		})
	}
}

func TestDecodeWireNames(t *testing.T) {
	c, err := wire.Decode([]byte(`{"type":"UpdatePlayerStat","payload":{"team_id":"t1","player_id":"p9","stat":"fg3m","delta":1}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := match.UpdatePlayerStat{TeamID: "t1", PlayerID: "p9", Stat: match.StatFG3M, Delta: 1}
	if c != want {
		t.Errorf("got %#v, want %#v", c, want)
	}
}
