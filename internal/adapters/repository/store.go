// Package repository holds the record store: per-team history plus the derived leaderboard.
package repository

import (
	"context"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Store provides read/write access to the scoreboard state.
type Store interface {
	// Admit checks rec against the team's current best and appends it, as one
	// atomic step. Returns ErrRegression if rec ranks below the best.
	Admit(ctx context.Context, team string, rec model.Record) (model.Record, error)

	// Append adds rec to the team's history unconditionally and moves the
	// leaderboard entry when rec ranks at or above the current best.
	// Returns true when the leaderboard entry changed.
	Append(ctx context.Context, team string, rec model.Record) bool

	// Get returns the team's best record, or ErrNotFound.
	Get(ctx context.Context, team string) (model.Record, error)

	// Standings returns the ranked leaderboard, best first.
	Standings(ctx context.Context) []model.Standing

	// Snapshot returns a deep copy of history and leaderboard taken at one instant.
	Snapshot(ctx context.Context) model.Snapshot

	// Count returns the number of teams on the leaderboard.
	Count(ctx context.Context) int

	// Version returns the mutation counter.
	Version(ctx context.Context) uint64
}
