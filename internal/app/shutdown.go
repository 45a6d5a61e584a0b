package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// State is the lifecycle state of the process.
type State int32

// Lifecycle states: Running -> ShuttingDown -> Stopped.
const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DrainFunc stops accepting new work and returns once in-flight work is done.
type DrainFunc func(ctx context.Context) error

// Finalizer is what the coordinator shuts down.
type Finalizer interface {
	// StopFlusher returns only after the periodic flush loop has exited.
	StopFlusher()
	FinalFlush(ctx context.Context) error
}

// Coordinator drives the shutdown sequence once the run context is cancelled.
type Coordinator struct {
	target       Finalizer
	drainTimeout time.Duration
	logger       logger.Logger

	state atomic.Int32
	done  chan struct{}
	once  sync.Once
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithDrainTimeout bounds how long the drain hook may take.
func WithDrainTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator returns a coordinator in the Running state.
func NewCoordinator(target Finalizer, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		target:       target,
		drainTimeout: 30 * time.Second,
		logger:       logger.Discard(),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.UpdateLifecycleState(int(StateRunning))
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// Done is closed when the Stopped state is reached.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	metrics.UpdateLifecycleState(int(s))
}

// Run blocks until ctx is cancelled, then shuts down in order: stop the
// flush loop, drain the HTTP layer, write the final snapshot. It returns the
// final flush error, if any; a failed flush is reported, never fatal.
// Only the first call runs the sequence; later calls wait for it.
func (c *Coordinator) Run(ctx context.Context, drain DrainFunc) error {
	var err error
	ran := false
	c.once.Do(func() {
		ran = true
		err = c.run(ctx, drain)
	})
	if !ran {
		<-c.done
	}
	return err
}

func (c *Coordinator) run(ctx context.Context, drain DrainFunc) error {
	<-ctx.Done()

	// Background context: the run context is already cancelled.
	bg := context.Background()
	c.setState(StateShuttingDown)
	c.logger.Info(bg, "shutting down", logger.String("state", StateShuttingDown.String()))

	c.target.StopFlusher()
	c.logger.Info(bg, "periodic flush stopped")

	if drain != nil {
		dctx, cancel := context.WithTimeout(bg, c.drainTimeout)
		if err := drain(dctx); err != nil {
			c.logger.Error(bg, "drain did not complete cleanly", logger.Error(err))
		}
		cancel()
		c.logger.Info(bg, "drain complete")
	}

	err := c.target.FinalFlush(bg)
	if err != nil {
		c.logger.Error(bg, "final flush failed; recent submissions may be lost", logger.Error(err))
	}

	c.setState(StateStopped)
	close(c.done)
	c.logger.Info(bg, "stopped",
		logger.String("state", StateStopped.String()),
		logger.Bool("flushed", err == nil),
	)
	return err
}
