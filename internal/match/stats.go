package match

import "fmt"

// ScorePlayer returns the points a box score is worth.
func ScorePlayer(s Summary) int {
	return s.FG2M*2 + s.FG3M*3 + s.FTM
}

// ScoreTeam sums ScorePlayer over a roster.
func ScoreTeam(players []PlayerState) int {
	total := 0
	for _, p := range players {
		total += ScorePlayer(p.Summary)
	}
	return total
}

// FormatClock renders remaining seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (s Summary) clamped() Summary {
	s.FG2M = max(s.FG2M, 0)
	s.FG2A = max(s.FG2A, 0)
	s.FG3M = max(s.FG3M, 0)
	s.FG3A = max(s.FG3A, 0)
	s.FTM = max(s.FTM, 0)
	s.FTA = max(s.FTA, 0)
	s.REB = max(s.REB, 0)
	s.AST = max(s.AST, 0)
	s.STL = max(s.STL, 0)
	s.BLK = max(s.BLK, 0)
	s.TOV = max(s.TOV, 0)
	return s
}
