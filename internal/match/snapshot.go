// Package match is the live scoring engine: the snapshot model of an
// in-progress game, the closed set of commands that mutate it, and the
// transition function that applies one command to one snapshot.
//
// Nothing in this package performs I/O or starts goroutines. Apply is pure:
// it never mutates its input and always returns a snapshot.
package match

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultQuarters        = 4
	DefaultQuarterSeconds  = 600
	DefaultOvertimeSeconds = 300
)

// Rules holds the period configuration of a match.
type Rules struct {
	Quarters        int `json:"quarters" yaml:"quarters"`
	QuarterSeconds  int `json:"quarter_seconds" yaml:"quarter_seconds"`
	OvertimeSeconds int `json:"overtime_seconds" yaml:"overtime_seconds"`
}

// DefaultRules returns four ten-minute quarters with five-minute overtimes.
func DefaultRules() Rules {
	return Rules{
		Quarters:        DefaultQuarters,
		QuarterSeconds:  DefaultQuarterSeconds,
		OvertimeSeconds: DefaultOvertimeSeconds,
	}
}

func (r Rules) withDefaults() Rules {
	if r.Quarters < 1 {
		r.Quarters = DefaultQuarters
	}
	if r.QuarterSeconds < 1 {
		r.QuarterSeconds = DefaultQuarterSeconds
	}
	if r.OvertimeSeconds < 1 {
		r.OvertimeSeconds = DefaultOvertimeSeconds
	}
	return r
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Snapshot is one complete value of the match state.
type Snapshot struct {
	MatchID string `json:"match_id" yaml:"match_id"`

	TimeSeconds  int  `json:"time_seconds" yaml:"time_seconds"`
	TimerRunning bool `json:"timer_running" yaml:"timer_running"`

	CurrentQuarter  int  `json:"current_quarter" yaml:"current_quarter"`
	IsOvertime      bool `json:"is_overtime" yaml:"is_overtime"`
	Quarters        int  `json:"quarters" yaml:"quarters"`
	QuarterSeconds  int  `json:"quarter_seconds" yaml:"quarter_seconds"`
	OvertimeSeconds int  `json:"overtime_seconds" yaml:"overtime_seconds"`

	HomeTeam TeamState `json:"home_team" yaml:"home_team"`
	AwayTeam TeamState `json:"away_team" yaml:"away_team"`

	HomeTotalScore int `json:"home_total_score" yaml:"home_total_score"`
	AwayTotalScore int `json:"away_total_score" yaml:"away_total_score"`
}

// TeamState is one side of the match.
type TeamState struct {
	TeamID string `json:"team_id" yaml:"team_id"`
	Name   string `json:"name" yaml:"name"`
	Coach  string `json:"coach" yaml:"coach"`

	CoachT      int `json:"coachT" yaml:"coachT"`
	NoneMemberT int `json:"none_memberT" yaml:"none_memberT"`

	FoulsPerQuarter []QuarterFouls `json:"teamF_per_qtr" yaml:"teamF_per_qtr"`
	ScorePerQuarter []QuarterScore `json:"score_per_qtr" yaml:"score_per_qtr"`
	Timeouts        []Timeout      `json:"timeouts" yaml:"timeouts"`
	Players         []PlayerState  `json:"players" yaml:"players"`
}

// QuarterFouls is the team foul count for one quarter.
type QuarterFouls struct {
	Quarter int `json:"quarter" yaml:"quarter"`
	Fouls   int `json:"foul" yaml:"foul"`
}

// QuarterScore is the points a team scored in one quarter.
type QuarterScore struct {
	Quarter int `json:"quarter" yaml:"quarter"`
	Score   int `json:"score" yaml:"score"`
}

// Timeout records when a timeout was called.
type Timeout struct {
	Quarter      int    `json:"quarter" yaml:"quarter"`
	ClockDisplay string `json:"clock_display" yaml:"clock_display"`
}

// PlayerState is one rostered player.
type PlayerState struct {
	PlayerID     string `json:"player_id" yaml:"player_id"`
	JerseyName   string `json:"jersey_name" yaml:"jersey_name"`
	JerseyNumber string `json:"jersey_number" yaml:"jersey_number"`
	OnBench      bool   `json:"onBench" yaml:"onBench"`

	P int `json:"P" yaml:"P"`
	T int `json:"T" yaml:"T"`

	Summary    Summary `json:"summary" yaml:"summary"`
	TotalScore int     `json:"total_score" yaml:"total_score"`
}

// Summary holds a player's box score counters.
type Summary struct {
	FG2M int `json:"fg2m" yaml:"fg2m"`
	FG2A int `json:"fg2a" yaml:"fg2a"`
	FG3M int `json:"fg3m" yaml:"fg3m"`
	FG3A int `json:"fg3a" yaml:"fg3a"`
	FTM  int `json:"ftm" yaml:"ftm"`
	FTA  int `json:"fta" yaml:"fta"`
	REB  int `json:"reb" yaml:"reb"`
	AST  int `json:"ast" yaml:"ast"`
	STL  int `json:"stl" yaml:"stl"`
	BLK  int `json:"blk" yaml:"blk"`
	TOV  int `json:"tov" yaml:"tov"`
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// NewSnapshot builds the opening snapshot of a match: first quarter, clock
// stopped at the full period length, derived totals computed.
func NewSnapshot(matchID string, home, away TeamState, rules Rules) Snapshot {
	rules = rules.withDefaults()
	s := Snapshot{
		MatchID:         matchID,
		TimeSeconds:     rules.QuarterSeconds,
		CurrentQuarter:  1,
		Quarters:        rules.Quarters,
		QuarterSeconds:  rules.QuarterSeconds,
		OvertimeSeconds: rules.OvertimeSeconds,
		HomeTeam:        home.clone(),
		AwayTeam:        away.clone(),
	}
	return s.Normalize()
}

// Normalize recomputes every derived value and fills missing period
// configuration. It is used on snapshots that did not come out of Apply,
// e.g. ones supplied by a caller or decoded from a fixture file.
func (s Snapshot) Normalize() Snapshot {
	out := s.Clone()
	rules := Rules{
		Quarters:        out.Quarters,
		QuarterSeconds:  out.QuarterSeconds,
		OvertimeSeconds: out.OvertimeSeconds,
	}.withDefaults()
	out.Quarters = rules.Quarters
	out.QuarterSeconds = rules.QuarterSeconds
	out.OvertimeSeconds = rules.OvertimeSeconds
	if out.CurrentQuarter < 1 {
		out.CurrentQuarter = 1
	}
	out.IsOvertime = out.CurrentQuarter > out.Quarters
	if out.TimeSeconds < 0 {
		out.TimeSeconds = 0
	}
	if out.TimeSeconds == 0 {
		out.TimerRunning = false
	}
	normalizeTeam(&out.HomeTeam)
	normalizeTeam(&out.AwayTeam)
	out.HomeTotalScore = ScoreTeam(out.HomeTeam.Players)
	out.AwayTotalScore = ScoreTeam(out.AwayTeam.Players)
	return out
}

func normalizeTeam(t *TeamState) {
	t.CoachT = max(t.CoachT, 0)
	t.NoneMemberT = max(t.NoneMemberT, 0)
	t.FoulsPerQuarter = dedupeFouls(t.FoulsPerQuarter)
	t.ScorePerQuarter = dedupeScores(t.ScorePerQuarter)
	for i := range t.Players {
		p := &t.Players[i]
		p.P = max(p.P, 0)
		p.T = max(p.T, 0)
		p.Summary = p.Summary.clamped()
		p.TotalScore = ScorePlayer(p.Summary)
	}
}

// dedupeFouls keeps the last record for each quarter, in first-seen order.
func dedupeFouls(in []QuarterFouls) []QuarterFouls {
	if len(in) == 0 {
		return in
	}
	out := make([]QuarterFouls, 0, len(in))
	index := make(map[int]int, len(in))
	for _, r := range in {
		r.Fouls = max(r.Fouls, 0)
		if i, ok := index[r.Quarter]; ok {
			out[i] = r
			continue
		}
		index[r.Quarter] = len(out)
		out = append(out, r)
	}
	return out
}

func dedupeScores(in []QuarterScore) []QuarterScore {
	if len(in) == 0 {
		return in
	}
	out := make([]QuarterScore, 0, len(in))
	index := make(map[int]int, len(in))
	for _, r := range in {
		r.Score = max(r.Score, 0)
		if i, ok := index[r.Quarter]; ok {
			out[i] = r
			continue
		}
		index[r.Quarter] = len(out)
		out = append(out, r)
	}
	return out
}

// --------------------------------------------------------------------------
// Copying
// --------------------------------------------------------------------------

// Clone returns a deep copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	s.HomeTeam = s.HomeTeam.clone()
	s.AwayTeam = s.AwayTeam.clone()
	return s
}

func (t TeamState) clone() TeamState {
	t.FoulsPerQuarter = cloneSlice(t.FoulsPerQuarter)
	t.ScorePerQuarter = cloneSlice(t.ScorePerQuarter)
	t.Timeouts = cloneSlice(t.Timeouts)
	t.Players = cloneSlice(t.Players)
	return t
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Team returns the side owning teamID.
func (s *Snapshot) Team(teamID string) (*TeamState, bool) {
	switch teamID {
	case s.HomeTeam.TeamID:
		return &s.HomeTeam, true
	case s.AwayTeam.TeamID:
		return &s.AwayTeam, true
	}
	return nil, false
}

// PlayerIndex returns the position of playerID in t.Players, or -1.
func (t *TeamState) PlayerIndex(playerID string) int {
	for i := range t.Players {
		if t.Players[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// FoulsIn returns the team fouls recorded for a quarter.
func (t *TeamState) FoulsIn(quarter int) int {
	for _, r := range t.FoulsPerQuarter {
		if r.Quarter == quarter {
			return r.Fouls
		}
	}
	return 0
}

// ScoreIn returns the points recorded for a quarter.
func (t *TeamState) ScoreIn(quarter int) int {
	for _, r := range t.ScorePerQuarter {
		if r.Quarter == quarter {
			return r.Score
		}
	}
	return 0
}
