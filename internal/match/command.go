package match

// Kind names a command in the closed command set.
type Kind string

const (
	KindToggleTimer      Kind = "ToggleTimer"
	KindSetTime          Kind = "SetTime"
	KindTimerTick        Kind = "TimerTick"
	KindChangeQuarter    Kind = "ChangeQuarter"
	KindUpdateTeamStat   Kind = "UpdateTeamStat"
	KindAddTimeout       Kind = "AddTimeout"
	KindRemoveTimeout    Kind = "RemoveTimeout"
	KindUpdatePlayerStat Kind = "UpdatePlayerStat"
	KindSubstitutePlayer Kind = "SubstitutePlayer"
	KindUndo             Kind = "Undo"
	KindRedo             Kind = "Redo"
)

// TeamStat names a team-level counter.
type TeamStat string

const (
	TeamStatFoul       TeamStat = "teamFoul"
	TeamStatCoachT     TeamStat = "coachT"
	TeamStatNoneMember TeamStat = "none_memberT"
)

// PlayerStat names a player counter: a Summary field, P or T.
type PlayerStat string

const (
	StatFG2M     PlayerStat = "fg2m"
	StatFG2A     PlayerStat = "fg2a"
	StatFG3M     PlayerStat = "fg3m"
	StatFG3A     PlayerStat = "fg3a"
	StatFTM      PlayerStat = "ftm"
	StatFTA      PlayerStat = "fta"
	StatREB      PlayerStat = "reb"
	StatAST      PlayerStat = "ast"
	StatSTL      PlayerStat = "stl"
	StatBLK      PlayerStat = "blk"
	StatTOV      PlayerStat = "tov"
	StatPersonal PlayerStat = "P"
	StatTech     PlayerStat = "T"
)

// Command is one user intent. The set is closed: only the types in this
// file implement it.
type Command interface {
	Kind() Kind
	command()
}

type (
	// ToggleTimer flips the running state of the clock.
	ToggleTimer struct{}

	// SetTime overwrites the remaining time in the period.
	SetTime struct {
		Seconds int `json:"seconds"`
	}

	// TimerTick is delivered by the external clock about once per second.
	TimerTick struct{}

	// ChangeQuarter moves to another period. ResetClock also rewinds the
	// clock to the full length of that period and stops it.
	ChangeQuarter struct {
		Quarter    int  `json:"quarter"`
		ResetClock bool `json:"reset_clock,omitempty"`
	}

	// UpdateTeamStat sets a team counter. Quarter is only read for
	// teamFoul; zero means the current quarter.
	UpdateTeamStat struct {
		TeamID  string   `json:"team_id"`
		Quarter int      `json:"quarter,omitempty"`
		Stat    TeamStat `json:"stat"`
		Value   int      `json:"value"`
	}

	// AddTimeout records a timeout for a team and stops the clock.
	AddTimeout struct {
		TeamID string `json:"team_id"`
	}

	// RemoveTimeout deletes a recorded timeout by position.
	RemoveTimeout struct {
		TeamID string `json:"team_id"`
		Index  int    `json:"index"`
	}

	// UpdatePlayerStat adds Delta to one player counter.
	UpdatePlayerStat struct {
		TeamID   string     `json:"team_id"`
		PlayerID string     `json:"player_id"`
		Stat     PlayerStat `json:"stat"`
		Delta    int        `json:"delta"`
	}

	// SubstitutePlayer puts OnCourtPlayerID on the floor and sends
	// BenchPlayerID to the bench.
	SubstitutePlayer struct {
		TeamID          string `json:"team_id"`
		OnCourtPlayerID string `json:"on_court_player_id"`
		BenchPlayerID   string `json:"bench_player_id"`
	}

	// Undo steps back one change.
	Undo struct{}

	// Redo re-applies the most recently undone change.
	Redo struct{}
)

func (ToggleTimer) Kind() Kind      { return KindToggleTimer }
func (SetTime) Kind() Kind          { return KindSetTime }
func (TimerTick) Kind() Kind        { return KindTimerTick }
func (ChangeQuarter) Kind() Kind    { return KindChangeQuarter }
func (UpdateTeamStat) Kind() Kind   { return KindUpdateTeamStat }
func (AddTimeout) Kind() Kind       { return KindAddTimeout }
func (RemoveTimeout) Kind() Kind    { return KindRemoveTimeout }
func (UpdatePlayerStat) Kind() Kind { return KindUpdatePlayerStat }
func (SubstitutePlayer) Kind() Kind { return KindSubstitutePlayer }
func (Undo) Kind() Kind             { return KindUndo }
func (Redo) Kind() Kind             { return KindRedo }

func (ToggleTimer) command()      {}
func (SetTime) command()          {}
func (TimerTick) command()        {}
func (ChangeQuarter) command()    {}
func (UpdateTeamStat) command()   {}
func (AddTimeout) command()       {}
func (RemoveTimeout) command()    {}
func (UpdatePlayerStat) command() {}
func (SubstitutePlayer) command() {}
func (Undo) command()             {}
func (Redo) command()             {}
