package repository

import (
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithHistory seeds the store. The leaderboard is derived from it, never loaded.
func WithHistory(h model.History) Option {
	return func(s *MemoryStore) {
		if h != nil {
			s.seed = h
		}
	}
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
