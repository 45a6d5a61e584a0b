// Package ranking defines the order over records and the derived views built from it.
//
// A record ranks above another when its score is higher. On equal scores the
// earlier record ranks above the later one, so a later equal score never
// displaces a best that is already on file.
package ranking

import (
	"sort"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Above reports whether a ranks strictly above b.
func Above(a, b model.Record) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Time.Before(b.Time)
}

// Below reports whether a ranks strictly below b.
func Below(a, b model.Record) bool {
	return Above(b, a)
}

// Equal reports whether neither record ranks above the other.
func Equal(a, b model.Record) bool {
	return !Above(a, b) && !Above(b, a)
}

// BestOf returns the highest ranked record. Among equal records the first one wins.
func BestOf(records []model.Record) (model.Record, bool) {
	if len(records) == 0 {
		return model.Record{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if Above(r, best) {
			best = r
		}
	}
	return best, true
}

// Derive rebuilds a leaderboard from history. Teams without records are left out.
func Derive(h model.History) model.Leaderboard {
	lb := make(model.Leaderboard, len(h))
	for team, recs := range h {
		if best, ok := BestOf(recs); ok {
			lb[team] = best
		}
	}
	return lb
}

// Standings orders the leaderboard best first and assigns ranks.
// Team name breaks exact ties so the output is deterministic.
func Standings(lb model.Leaderboard) []model.Standing {
	out := make([]model.Standing, 0, len(lb))
	for team, rec := range lb {
		out = append(out, model.Standing{Team: team, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		if Above(out[i].Record, out[j].Record) {
			return true
		}
		if Above(out[j].Record, out[i].Record) {
			return false
		}
		return out[i].Team < out[j].Team
	})
	assignRanks(out)
	return out
}

// assignRanks gives exactly equal records the same rank; the next distinct
// record takes the next consecutive rank.
func assignRanks(rows []model.Standing) {
	rank := 0
	for i := range rows {
		if i == 0 || !Equal(rows[i].Record, rows[i-1].Record) {
			rank++
		}
		rows[i].Rank = rank
	}
}
