package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Snapshotter is the read side of the store the persister needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) model.Snapshot
	Version(ctx context.Context) uint64
}

// Snapshots is the durable side: where snapshots go and come from.
type Snapshots interface {
	Load(ctx context.Context) (model.History, error)
	Save(ctx context.Context, h model.History) error
	Quarantine(ctx context.Context) (string, error)
	Path() string
}

// Persister loads state at startup, flushes it on a timer and once more at shutdown.
type Persister struct {
	file     Snapshots
	interval time.Duration
	logger   logger.Logger

	// flushMu serializes flushes so the periodic loop and the final flush
	// never write concurrently.
	flushMu  sync.Mutex
	source   Snapshotter
	flushed  uint64
	hasFlush bool
	// guarded is set when an unreadable snapshot could not be moved aside.
	// Saving would then rename over history that was never loaded.
	guarded bool

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option applies a configuration option to the Persister.
type Option func(*Persister)

// WithInterval sets the periodic flush interval. Values below one second are raised to one second.
func WithInterval(d time.Duration) Option {
	return func(p *Persister) {
		if d < time.Second {
			d = time.Second
		}
		p.interval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Persister) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs a Persister writing to file.
func New(file Snapshots, opts ...Option) *Persister {
	p := &Persister{
		file:     file,
		interval: 5 * time.Second,
		logger:   logger.Discard(),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the effective flush interval.
func (p *Persister) Interval() time.Duration { return p.interval }

// Restore reads the last snapshot. It never fails: a missing file yields an
// empty history. A file that exists but cannot be read or decoded is logged,
// moved aside, and also yields an empty history. If it cannot be moved aside,
// later flushes refuse to replace it.
func (p *Persister) Restore(ctx context.Context) model.History {
	h, err := p.file.Load(ctx)
	switch {
	case err == nil:
		metrics.RecordLoad(metrics.LoadOK)
		p.logger.Info(ctx, "snapshot loaded",
			logger.String("path", p.file.Path()),
			logger.Int("teams", len(h)),
			logger.Int("records", h.Len()),
		)
		return h
	case errors.Is(err, ErrNoSnapshot):
		metrics.RecordLoad(metrics.LoadMissing)
		p.logger.Info(ctx, "no snapshot found; starting empty", logger.String("path", p.file.Path()))
		return model.History{}
	case errors.Is(err, ErrCorruptSnapshot):
		metrics.RecordLoad(metrics.LoadCorrupt)
		p.logger.Warn(ctx, "snapshot is corrupt; starting empty and discarding history",
			logger.String("path", p.file.Path()), logger.Error(err))
	default:
		metrics.RecordLoad(metrics.LoadError)
		p.logger.Warn(ctx, "snapshot unreadable; starting empty",
			logger.String("path", p.file.Path()), logger.Error(err))
	}
	p.setAside(ctx)
	return model.History{}
}

func (p *Persister) setAside(ctx context.Context) {
	dst, err := p.file.Quarantine(ctx)
	if err == nil {
		p.logger.Warn(ctx, "unusable snapshot moved aside", logger.String("to", dst))
		return
	}
	p.flushMu.Lock()
	p.guarded = true
	p.flushMu.Unlock()
	p.logger.Error(ctx, "could not move unusable snapshot aside; flushes will not replace it",
		logger.String("path", p.file.Path()), logger.Error(err))
}

// Attach sets the store to flush from. The store's current version counts as
// already persisted, since it was just restored from the same file.
func (p *Persister) Attach(ctx context.Context, source Snapshotter) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	p.source = source
	p.flushed = source.Version(ctx)
	p.hasFlush = true
}

// Flush writes a snapshot unless nothing changed since the last successful flush.
func (p *Persister) Flush(ctx context.Context) error {
	return p.flush(ctx, false)
}

// ForceFlush writes a snapshot regardless of the version.
func (p *Persister) ForceFlush(ctx context.Context) error {
	return p.flush(ctx, true)
}

func (p *Persister) flush(ctx context.Context, force bool) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	if p.source == nil {
		return ErrNotAttached
	}
	if p.guarded {
		metrics.RecordFlush(metrics.FlushError, 0)
		return ErrUnreadSnapshot
	}
	if !force && p.hasFlush && p.source.Version(ctx) == p.flushed {
		metrics.RecordFlush(metrics.FlushSkipped, 0)
		return nil
	}

	start := time.Now()
	snap := p.source.Snapshot(ctx)
	err := p.file.Save(ctx, snap.History)
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordFlush(metrics.FlushError, ms)
		p.logger.Error(ctx, "snapshot flush failed",
			logger.String("path", p.file.Path()),
			logger.Uint64("version", snap.Version),
			logger.Error(err),
		)
		return err
	}

	p.flushed = snap.Version
	p.hasFlush = true
	metrics.RecordFlush(metrics.FlushOK, ms)
	metrics.UpdateLastFlush(float64(snap.TakenAt.Unix()), snap.Version)
	p.logger.Debug(ctx, "snapshot flushed",
		logger.String("path", p.file.Path()),
		logger.Uint64("version", snap.Version),
		logger.Int("teams", len(snap.History)),
		logger.Time("takenAt", snap.TakenAt),
		logger.Float64("ms", ms),
	)
	return nil
}

// Start launches the periodic flush loop. The loop exits when ctx is done or Stop is called.
func (p *Persister) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopChan:
				return
			case <-ticker.C:
				// Errors are logged inside flush; the next tick tries again.
				_ = p.Flush(ctx)
			}
		}
	}()
	p.logger.Info(ctx, "periodic flush started", logger.Duration("interval", p.interval))
}

// Stop signals the loop and returns once it has exited. Safe to call more than once.
func (p *Persister) Stop() {
	p.mu.Lock()
	select {
	case <-p.stopChan:
		// Channel already closed
	default:
		close(p.stopChan)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
