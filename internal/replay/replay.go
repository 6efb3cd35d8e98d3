// Package replay runs a recorded match offline: an opening snapshot file
// (YAML or JSON) and a JSON Lines file of command envelopes are pushed
// through a history store with no side-channel, clock or network.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/albapepper/scoracle-live/internal/history"
	"github.com/albapepper/scoracle-live/internal/match"
	"github.com/albapepper/scoracle-live/internal/wire"
)

// maxLineBytes bounds one command line.
const maxLineBytes = 1 << 20

// Result summarizes a replay.
type Result struct {
	Final   match.Snapshot `json:"final"`
	Applied int            `json:"applied"`
	Changed int            `json:"changed"`
	Past    int            `json:"past"`
	Future  int            `json:"future"`
}

// LoadSnapshot reads an opening snapshot. Files ending in .yaml or .yml are
// read as YAML, anything else as JSON.
func LoadSnapshot(path string) (match.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return ParseSnapshot(data, format)
}

// ParseSnapshot decodes an opening snapshot in the given format ("yaml" or
// "json"). A snapshot without a quarter starts at the top of the first.
func ParseSnapshot(data []byte, format string) (match.Snapshot, error) {
	var s match.Snapshot
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &s)
	case "json":
		err = json.Unmarshal(data, &s)
	default:
		return match.Snapshot{}, fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("decode %s snapshot: %w", format, err)
	}

	if s.CurrentQuarter == 0 {
		rules := match.Rules{Quarters: s.Quarters, QuarterSeconds: s.QuarterSeconds, OvertimeSeconds: s.OvertimeSeconds}
		return match.NewSnapshot(s.MatchID, s.HomeTeam, s.AwayTeam, rules), nil
	}
	return s.Normalize(), nil
}

// ReadCommands reads one command envelope per line. Blank lines and lines
// starting with # are skipped.
func ReadCommands(r io.Reader) ([]match.Command, error) {
	var cmds []match.Command
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		c, err := wire.Decode([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cmds = append(cmds, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return cmds, nil
}

// Run applies cmds to initial in order.
func Run(initial match.Snapshot, cmds []match.Command, capacity int) Result {
	store := history.New(initial, capacity)
	res := Result{}
	for _, c := range cmds {
		res.Applied++
		if store.Dispatch(c) {
			res.Changed++
		}
	}
	res.Final = store.Present
	res.Past = len(store.Past)
	res.Future = len(store.Future)
	return res
}
