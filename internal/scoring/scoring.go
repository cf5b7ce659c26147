// Package scoring implements the handicap scoring engine: stroke allocation by
// stroke index, the extended Stableford points table, best-ball team aggregation
// and medal totals. Everything in this file is a pure function over the models so
// team points can always be re-derived from current Score rows.
package scoring

import (
	"math"

	"github.com/reidmcb/fairway-live/internal/models"
)

// AdjustedHandicap scales a course handicap by the competition's allowance
// percentage, rounded to the nearest whole stroke. An absent or non-positive
// allowance means "full handicap" (100%).
func AdjustedHandicap(courseHandicap, allowancePercent int) int {
	if allowancePercent <= 0 {
		allowancePercent = 100
	}
	return int(math.Round(float64(courseHandicap) * float64(allowancePercent) / 100))
}

// StrokesReceived returns how many handicap strokes a player with the given
// adjusted handicap receives on a hole with the given stroke index.
//
// Below 18 the player strokes on the hardest holes only: one stroke where the
// stroke index is within the handicap. From 18 up every hole gets a stroke, and a
// second stroke goes to holes covered by the remainder: either (adjusted-18) at or
// above the index, or the index within adjusted mod 18. Duplicate stroke indexes
// are not special-cased; holes sharing an index allocate identically.
func StrokesReceived(adjusted, strokeIndex int) int {
	switch {
	case adjusted <= 0:
		return 0
	case adjusted < 18:
		if strokeIndex <= adjusted {
			return 1
		}
		return 0
	default:
		if adjusted-18 >= strokeIndex || strokeIndex <= adjusted%18 {
			return 2
		}
		return 1
	}
}

// Points converts a net score into Stableford points.
//
// The table extends well past the standard one: the club's convention awards up to
// 6 points for net four-under, reachable when a high handicap receiving two
// strokes holes out with a gross eagle.
func Points(net, par int) int {
	switch net - par {
	case -4:
		return 6
	case -3:
		return 5
	case -2:
		return 4
	case -1:
		return 3
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}

// HolePoints computes the Stableford points for one player's gross strokes on one
// hole. A gross of zero or less means the hole wasn't played (or wasn't entered)
// and yields no points; it is excluded, not penalized.
func HolePoints(gross, par, strokeIndex, courseHandicap, allowancePercent int) int {
	if gross <= 0 {
		return 0
	}
	received := StrokesReceived(AdjustedHandicap(courseHandicap, allowancePercent), strokeIndex)
	return Points(gross-received, par)
}

// TeamPoints aggregates best-ball: for each hole, the maximum points among team
// members with a recorded positive gross on that hole, summed across all holes. A
// hole nobody scored contributes 0.
func TeamPoints(members []models.TeamMembership, scores []models.Score, holes []models.Hole, allowancePercent int) int {
	handicaps := make(map[string]int, len(members))
	for _, m := range members {
		handicaps[m.PlayerKey] = m.CourseHandicap
	}

	// player -> hole number -> gross
	gross := make(map[string]map[int]int, len(members))
	for _, sc := range scores {
		byHole := gross[sc.PlayerKey]
		if byHole == nil {
			byHole = make(map[int]int)
			gross[sc.PlayerKey] = byHole
		}
		byHole[sc.HoleNumber] = sc.Strokes
	}

	total := 0
	for _, hole := range holes {
		best := 0
		for player, holeScores := range gross {
			strokes, ok := holeScores[hole.Number]
			if !ok || strokes <= 0 {
				continue
			}
			pts := HolePoints(strokes, hole.Par, hole.StrokeIndex, handicaps[player], allowancePercent)
			if pts > best {
				best = pts
			}
		}
		total += best
	}
	return total
}

// PlayerTotals are a single player's medal figures over the holes they have scored.
type PlayerTotals struct {
	PlayerName  string `json:"playerName"`
	PlayerKey   string `json:"playerKey"`
	HolesPlayed int    `json:"holesPlayed"`
	Gross       int    `json:"gross"`
	Net         int    `json:"net"`
	Points      int    `json:"points"`
}

// Totals computes a member's gross, net and Stableford totals across the holes
// they have a recorded score on. Used for medal leaderboards and the per-player
// live feed.
func Totals(member models.TeamMembership, scores []models.Score, holes []models.Hole, allowancePercent int) PlayerTotals {
	holeByNumber := make(map[int]models.Hole, len(holes))
	for _, h := range holes {
		holeByNumber[h.Number] = h
	}
	adjusted := AdjustedHandicap(member.CourseHandicap, allowancePercent)

	out := PlayerTotals{PlayerName: member.PlayerName, PlayerKey: member.PlayerKey}
	for _, sc := range scores {
		if sc.PlayerKey != member.PlayerKey || sc.Strokes <= 0 {
			continue
		}
		hole, ok := holeByNumber[sc.HoleNumber]
		if !ok {
			continue
		}
		received := StrokesReceived(adjusted, hole.StrokeIndex)
		out.HolesPlayed++
		out.Gross += sc.Strokes
		out.Net += sc.Strokes - received
		out.Points += Points(sc.Strokes-received, hole.Par)
	}
	return out
}
