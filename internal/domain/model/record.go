// Package model contains domain models passed between layers.
package model

import "time"

// Record is one score observation for a team.
type Record struct {
	Score float64   `json:"score"`
	Time  time.Time `json:"time"`
}

// NewRecord builds a Record with its time normalized to UTC.
func NewRecord(score float64, t time.Time) Record {
	return Record{Score: score, Time: t.UTC()}
}

// History maps a team to its records in arrival order.
type History map[string][]Record

// Clone returns a deep copy.
func (h History) Clone() History {
	out := make(History, len(h))
	for team, recs := range h {
		cp := make([]Record, len(recs))
		copy(cp, recs)
		out[team] = cp
	}
	return out
}

// Len returns the total number of records across all teams.
func (h History) Len() int {
	n := 0
	for _, recs := range h {
		n += len(recs)
	}
	return n
}

// Leaderboard maps a team to its best record.
type Leaderboard map[string]Record

// Clone returns a copy.
func (l Leaderboard) Clone() Leaderboard {
	out := make(Leaderboard, len(l))
	for team, rec := range l {
		out[team] = rec
	}
	return out
}

// Snapshot is a consistent copy of the store at one instant.
type Snapshot struct {
	History     History
	Leaderboard Leaderboard
	// Version counts mutations; equal versions mean equal content.
	Version uint64
	TakenAt time.Time
}
