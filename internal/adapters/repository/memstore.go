package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
	"github.com/okian/scoreboard/pkg/metrics"
)

// MemoryStore is the in-memory Store.
//
// One RWMutex guards history, leaderboard and version together. Every
// mutation holds the write lock across check and update, so readers never
// see an append whose leaderboard update is still pending.
type MemoryStore struct {
	mu      sync.RWMutex
	history model.History
	board   model.Leaderboard
	records int
	version uint64

	seed model.History
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store, optionally seeded with a history.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.history = make(model.History, len(s.seed))
	for team, recs := range s.seed {
		if team == "" || len(recs) == 0 {
			continue
		}
		cp := make([]model.Record, len(recs))
		copy(cp, recs)
		s.history[team] = cp
		s.records += len(cp)
	}
	s.seed = nil
	s.board = ranking.Derive(s.history)
	s.version = uint64(s.records)

	metrics.UpdateStoreSize(len(s.board), s.records)
	return s
}

// Admit implements Store.Admit.
func (s *MemoryStore) Admit(ctx context.Context, team string, rec model.Record) (model.Record, error) {
	if team == "" {
		return model.Record{}, ErrEmptyTeam
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	if best, ok := s.board[team]; ok && ranking.Below(rec, best) {
		s.mu.Unlock()
		return best, ErrRegression
	}
	s.appendLocked(team, rec)
	best := s.board[team]
	teams, records := len(s.board), s.records
	s.mu.Unlock()

	metrics.UpdateStoreSize(teams, records)
	return best, nil
}

// Append implements Store.Append.
func (s *MemoryStore) Append(ctx context.Context, team string, rec model.Record) bool {
	if team == "" {
		return false
	}
	s.mu.Lock()
	changed := s.appendLocked(team, rec)
	teams, records := len(s.board), s.records
	s.mu.Unlock()

	metrics.UpdateStoreSize(teams, records)
	return changed
}

// appendLocked requires s.mu held for writing.
func (s *MemoryStore) appendLocked(team string, rec model.Record) bool {
	s.history[team] = append(s.history[team], rec)
	s.records++
	s.version++

	best, ok := s.board[team]
	if ok && ranking.Below(rec, best) {
		return false
	}
	s.board[team] = rec
	return true
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, team string) (model.Record, error) {
	defer s.observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.board[team]
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return rec, nil
}

// Standings implements Store.Standings.
func (s *MemoryStore) Standings(ctx context.Context) []model.Standing {
	defer s.observeQuery(time.Now())

	s.mu.RLock()
	board := s.board.Clone()
	s.mu.RUnlock()

	return ranking.Standings(board)
}

// Snapshot implements Store.Snapshot. The copy is taken under the read lock;
// writers wait only for the copy itself.
func (s *MemoryStore) Snapshot(ctx context.Context) model.Snapshot {
	defer s.observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Snapshot{
		History:     s.history.Clone(),
		Leaderboard: s.board.Clone(),
		Version:     s.version,
		TakenAt:     s.now().UTC(),
	}
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.board)
}

// Version implements Store.Version.
func (s *MemoryStore) Version(ctx context.Context) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *MemoryStore) observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}
