package match

import "sort"

// Apply performs one transition. The bool reports whether anything changed;
// when it is false the returned snapshot is s itself and callers must not
// record a history entry. Undo and Redo are history operations and are
// no-ops here.
func Apply(s Snapshot, c Command) (Snapshot, bool) {
	switch c := c.(type) {
	case ToggleTimer:
		next := s.Clone()
		next.TimerRunning = !s.TimerRunning
		return next, true

	case SetTime:
		if c.Seconds < 0 || c.Seconds == s.TimeSeconds {
			return s, false
		}
		next := s.Clone()
		next.TimeSeconds = c.Seconds
		if c.Seconds == 0 {
			next.TimerRunning = false
		}
		return next, true

	case TimerTick:
		return applyTick(s)

	case ChangeQuarter:
		return applyChangeQuarter(s, c)

	case UpdateTeamStat:
		return applyTeamStat(s, c)

	case AddTimeout:
		return applyAddTimeout(s, c)

	case RemoveTimeout:
		return applyRemoveTimeout(s, c)

	case UpdatePlayerStat:
		return applyPlayerStat(s, c)

	case SubstitutePlayer:
		return applySubstitute(s, c)
	}
	return s, false
}

// --------------------------------------------------------------------------
// Clock and periods
// --------------------------------------------------------------------------

func applyTick(s Snapshot) (Snapshot, bool) {
	if s.TimeSeconds <= 0 {
		if !s.TimerRunning && s.TimeSeconds == 0 {
			return s, false
		}
		next := s.Clone()
		next.TimeSeconds = 0
		next.TimerRunning = false
		return next, true
	}
	next := s.Clone()
	next.TimeSeconds--
	if next.TimeSeconds == 0 {
		next.TimerRunning = false
	}
	return next, true
}

func applyChangeQuarter(s Snapshot, c ChangeQuarter) (Snapshot, bool) {
	if c.Quarter < 1 {
		return s, false
	}
	next := s.Clone()
	next.CurrentQuarter = c.Quarter
	next.IsOvertime = c.Quarter > s.Quarters
	if c.ResetClock {
		next.TimeSeconds = next.periodSeconds()
		next.TimerRunning = false
	}
	if next.CurrentQuarter == s.CurrentQuarter && next.IsOvertime == s.IsOvertime &&
		next.TimeSeconds == s.TimeSeconds && next.TimerRunning == s.TimerRunning {
		return s, false
	}
	return next, true
}

// periodSeconds is the full length of the current period.
func (s Snapshot) periodSeconds() int {
	if s.IsOvertime {
		return s.OvertimeSeconds
	}
	return s.QuarterSeconds
}

// --------------------------------------------------------------------------
// Team counters and timeouts
// --------------------------------------------------------------------------

func applyTeamStat(s Snapshot, c UpdateTeamStat) (Snapshot, bool) {
	next := s.Clone()
	team, ok := next.Team(c.TeamID)
	if !ok {
		return s, false
	}
	value := max(c.Value, 0)

	switch c.Stat {
	case TeamStatFoul:
		quarter := c.Quarter
		if quarter < 1 {
			quarter = s.CurrentQuarter
		}
		if !upsertFouls(team, quarter, value) {
			return s, false
		}
	case TeamStatCoachT:
		if team.CoachT == value {
			return s, false
		}
		team.CoachT = value
	case TeamStatNoneMember:
		if team.NoneMemberT == value {
			return s, false
		}
		team.NoneMemberT = value
	default:
		return s, false
	}
	return next, true
}

// upsertFouls writes the foul count for a quarter, creating the record on
// first write. It reports whether the stored value changed.
func upsertFouls(t *TeamState, quarter, fouls int) bool {
	for i := range t.FoulsPerQuarter {
		if t.FoulsPerQuarter[i].Quarter == quarter {
			if t.FoulsPerQuarter[i].Fouls == fouls {
				return false
			}
			t.FoulsPerQuarter[i].Fouls = fouls
			return true
		}
	}
	t.FoulsPerQuarter = append(t.FoulsPerQuarter, QuarterFouls{Quarter: quarter, Fouls: fouls})
	return true
}

// addQuarterScore records delta points against quarter. A correction larger
// than the quarter's points is taken from the other quarters, latest first,
// so the records keep summing to the team total.
func addQuarterScore(t *TeamState, quarter, delta int) {
	if delta >= 0 {
		for i := range t.ScorePerQuarter {
			if t.ScorePerQuarter[i].Quarter == quarter {
				t.ScorePerQuarter[i].Score += delta
				return
			}
		}
		t.ScorePerQuarter = append(t.ScorePerQuarter, QuarterScore{Quarter: quarter, Score: delta})
		return
	}

	order := make([]int, len(t.ScorePerQuarter))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		qa, qb := t.ScorePerQuarter[order[a]].Quarter, t.ScorePerQuarter[order[b]].Quarter
		if (qa == quarter) != (qb == quarter) {
			return qa == quarter
		}
		return qa > qb
	})

	owed := -delta
	for _, i := range order {
		if owed == 0 {
			break
		}
		take := min(owed, t.ScorePerQuarter[i].Score)
		t.ScorePerQuarter[i].Score -= take
		owed -= take
	}
}

func applyAddTimeout(s Snapshot, c AddTimeout) (Snapshot, bool) {
	next := s.Clone()
	team, ok := next.Team(c.TeamID)
	if !ok {
		return s, false
	}
	team.Timeouts = append(team.Timeouts, Timeout{
		Quarter:      s.CurrentQuarter,
		ClockDisplay: FormatClock(s.TimeSeconds),
	})
	next.TimerRunning = false
	return next, true
}

func applyRemoveTimeout(s Snapshot, c RemoveTimeout) (Snapshot, bool) {
	next := s.Clone()
	team, ok := next.Team(c.TeamID)
	if !ok || c.Index < 0 || c.Index >= len(team.Timeouts) {
		return s, false
	}
	team.Timeouts = append(team.Timeouts[:c.Index], team.Timeouts[c.Index+1:]...)
	return next, true
}

// --------------------------------------------------------------------------
// Players
// --------------------------------------------------------------------------

func applyPlayerStat(s Snapshot, c UpdatePlayerStat) (Snapshot, bool) {
	next := s.Clone()
	team, ok := next.Team(c.TeamID)
	if !ok {
		return s, false
	}
	i := team.PlayerIndex(c.PlayerID)
	if i < 0 {
		return s, false
	}
	p := &team.Players[i]
	field := p.counter(c.Stat)
	if field == nil {
		return s, false
	}
	updated := max(*field+c.Delta, 0)
	if updated == *field {
		return s, false
	}
	*field = updated

	before := p.TotalScore
	p.TotalScore = ScorePlayer(p.Summary)
	if diff := p.TotalScore - before; diff != 0 {
		addQuarterScore(team, next.CurrentQuarter, diff)
	}
	next.HomeTotalScore = ScoreTeam(next.HomeTeam.Players)
	next.AwayTotalScore = ScoreTeam(next.AwayTeam.Players)
	return next, true
}

// counter returns a pointer to the named counter, or nil for an unknown
// stat.
func (p *PlayerState) counter(stat PlayerStat) *int {
	switch stat {
	case StatFG2M:
		return &p.Summary.FG2M
	case StatFG2A:
		return &p.Summary.FG2A
	case StatFG3M:
		return &p.Summary.FG3M
	case StatFG3A:
		return &p.Summary.FG3A
	case StatFTM:
		return &p.Summary.FTM
	case StatFTA:
		return &p.Summary.FTA
	case StatREB:
		return &p.Summary.REB
	case StatAST:
		return &p.Summary.AST
	case StatSTL:
		return &p.Summary.STL
	case StatBLK:
		return &p.Summary.BLK
	case StatTOV:
		return &p.Summary.TOV
	case StatPersonal:
		return &p.P
	case StatTech:
		return &p.T
	}
	return nil
}

func applySubstitute(s Snapshot, c SubstitutePlayer) (Snapshot, bool) {
	if c.OnCourtPlayerID == c.BenchPlayerID {
		return s, false
	}
	next := s.Clone()
	team, ok := next.Team(c.TeamID)
	if !ok {
		return s, false
	}
	in := team.PlayerIndex(c.OnCourtPlayerID)
	out := team.PlayerIndex(c.BenchPlayerID)
	if in < 0 || out < 0 {
		return s, false
	}
	if !team.Players[in].OnBench && team.Players[out].OnBench {
		return s, false
	}
	team.Players[in].OnBench = false
	team.Players[out].OnBench = true
	return next, true
}
