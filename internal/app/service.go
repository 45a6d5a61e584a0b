// Package service wires the record store, its persistence and the submission
// gate into the service the HTTP API depends on.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scoreboard/internal/adapters/persistence"
	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Submission outcomes as reported in logs and metrics.
const (
	outcomeCreated      = "created"
	outcomeUnauthorized = "unauthorized"
	outcomeBadRequest   = "bad_request"
	outcomeConflict     = "conflict"
	outcomeInternal     = "internal"
)

// Submission is one incoming score observation.
type Submission struct {
	Team   string
	Score  float64
	Time   time.Time
	Secret string
}

// Service implements the API dependencies for the scoreboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     *repository.MemoryStore
	persister *persistence.Persister
	snapshots persistence.Snapshots

	// Configuration, fixed at construction
	secret        []byte
	dataPath      string
	flushInterval time.Duration

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSecret sets the shared secret submissions must present.
func WithSecret(secret string) Option {
	return func(s *Service) {
		s.secret = []byte(secret)
	}
}

// WithDataPath sets the snapshot file location.
func WithDataPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataPath = path
		}
	}
}

// WithFlushInterval sets the periodic flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithSnapshots replaces the snapshot file, e.g. with an in-memory fake.
func WithSnapshots(snapshots persistence.Snapshots) Option {
	return func(s *Service) {
		if snapshots != nil {
			s.snapshots = snapshots
		}
	}
}

// New constructs a Service. Nothing is loaded until Start.
func New(opts ...Option) *Service {
	s := &Service{
		dataPath:      "history.json",
		flushInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	return s
}

// Start loads the last snapshot, builds the store from it and starts the periodic flush.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoreboard service...")

	if s.snapshots == nil {
		s.snapshots = persistence.NewFile(s.dataPath, persistence.WithFileLogger(s.logger))
	}
	s.persister = persistence.New(s.snapshots,
		persistence.WithInterval(s.flushInterval),
		persistence.WithLogger(s.logger),
	)

	history := s.persister.Restore(ctx)
	s.store = repository.NewMemoryStore(repository.WithHistory(history))
	s.persister.Attach(ctx, s.store)
	s.persister.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.String("data", s.snapshots.Path()),
		logger.Int("teams", s.store.Count(ctx)),
		logger.Duration("flushInterval", s.persister.Interval()),
	)
	return nil
}

// StopFlusher stops the periodic flush loop and waits for it to exit.
func (s *Service) StopFlusher() {
	s.mu.RLock()
	p := s.persister
	s.mu.RUnlock()
	if p != nil {
		p.Stop()
	}
}

// FinalFlush writes the current state unconditionally.
func (s *Service) FinalFlush(ctx context.Context) error {
	s.mu.RLock()
	p := s.persister
	s.mu.RUnlock()
	if p == nil {
		return ErrNotStarted
	}
	if err := p.ForceFlush(ctx); err != nil {
		return fmt.Errorf("%w: final flush: %w", ErrInternal, err)
	}
	s.logger.Info(ctx, "final flush written", logger.String("path", s.snapshots.Path()))
	return nil
}

// Stop stops the flusher, writes a final snapshot and marks the service stopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil
	}

	s.logger.Info(ctx, "stopping scoreboard service...")
	s.StopFlusher()
	err := s.FinalFlush(ctx)

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "scoreboard service stopped")
	return err
}

// Submit is the submission gate: it checks the secret, validates the input
// and admits the record. The regression check and the append happen in one
// critical section inside the store.
func (s *Service) Submit(ctx context.Context, sub Submission) error {
	id := uuid.NewString()
	store, err := s.currentStore()
	if err != nil {
		s.reportSubmission(ctx, id, sub, outcomeInternal, err)
		return err
	}

	if !s.authorized(sub.Secret) {
		err := fmt.Errorf("%w: secret mismatch", ErrUnauthorized)
		s.reportSubmission(ctx, id, sub, outcomeUnauthorized, err)
		return err
	}

	if err := validate(sub); err != nil {
		s.reportSubmission(ctx, id, sub, outcomeBadRequest, err)
		return err
	}

	rec := model.NewRecord(sub.Score, sub.Time)
	best, err := store.Admit(ctx, sub.Team, rec)
	switch {
	case err == nil:
		s.reportSubmission(ctx, id, sub, outcomeCreated, nil, logger.Float64("best", best.Score))
		return nil
	case errors.Is(err, repository.ErrRegression):
		err = fmt.Errorf("%w: score is lower than current best %v", ErrConflict, best.Score)
		s.reportSubmission(ctx, id, sub, outcomeConflict, err)
		return err
	case errors.Is(err, repository.ErrEmptyTeam):
		err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		s.reportSubmission(ctx, id, sub, outcomeBadRequest, err)
		return err
	default:
		err = fmt.Errorf("%w: %w", ErrInternal, err)
		s.reportSubmission(ctx, id, sub, outcomeInternal, err)
		return err
	}
}

// authorized compares in constant time. An unset secret authorizes nobody.
func (s *Service) authorized(presented string) bool {
	if len(s.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.secret, []byte(presented)) == 1
}

func validate(sub Submission) error {
	switch {
	case strings.TrimSpace(sub.Team) == "":
		return fmt.Errorf("%w: missing team", ErrBadRequest)
	case math.IsNaN(sub.Score) || math.IsInf(sub.Score, 0):
		return fmt.Errorf("%w: score must be a finite number", ErrBadRequest)
	case sub.Time.IsZero():
		return fmt.Errorf("%w: missing time", ErrBadRequest)
	}
	return nil
}

func (s *Service) reportSubmission(ctx context.Context, id string, sub Submission, outcome string, err error, extra ...logger.Field) {
	metrics.RecordSubmission(outcome)
	fields := append([]logger.Field{
		logger.String("submission", id),
		logger.String("team", sub.Team),
		logger.Float64("score", sub.Score),
		logger.String("outcome", outcome),
	}, extra...)
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if outcome == outcomeInternal {
		s.logger.Error(ctx, "score submission failed", fields...)
		return
	}
	s.logger.Info(ctx, "score submission", fields...)
}

func (s *Service) currentStore() (*repository.MemoryStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, ErrNotStarted)
	}
	return s.store, nil
}

// Best returns a team's best record.
func (s *Service) Best(ctx context.Context, team string) (model.Record, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Record{}, err
	}
	rec, err := store.Get(ctx, team)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Record{}, fmt.Errorf("%w: team %q", ErrNotFound, team)
	}
	return rec, err
}

// Standings returns the ranked leaderboard.
func (s *Service) Standings(ctx context.Context) ([]model.Standing, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	return store.Standings(ctx), nil
}

// Snapshot returns a consistent copy of history and leaderboard.
func (s *Service) Snapshot(ctx context.Context) (model.Snapshot, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Snapshot{}, err
	}
	return store.Snapshot(ctx), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"dataPath":      s.dataPath,
		"flushInterval": s.flushInterval.String(),
	}
	if s.store != nil {
		stats["teams"] = s.store.Count(ctx)
		stats["version"] = s.store.Version(ctx)
	}
	if s.snapshots != nil {
		stats["dataPath"] = s.snapshots.Path()
	}
	return stats
}
