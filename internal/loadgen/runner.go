package loadgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/scoreboard/pkg/logger"
)

// ErrMismatch is returned when the server state does not match what was sent.
var ErrMismatch = errors.New("leaderboard verification failed")

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Report, error) {
	var report Report
	if cfg.Teams < 1 || cfg.Submissions < 1 {
		return report, errors.New("teams and submissions must be positive")
	}
	start := time.Now()

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("submissionsPerTeam", cfg.Submissions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := c.get(ctx, "/healthz", nil); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and submit concurrently
	subs := generate(cfg, time.Now())
	outcomes := submitAll(ctx, c, subs, cfg.Workers, log)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("load run interrupted: %w", err)
	}
	report.Submitted = len(subs)
	for _, o := range outcomes {
		switch o {
		case OutcomeCreated:
			report.Created++
		case OutcomeConflict:
			report.Conflicts++
		default:
			report.Failed++
		}
	}

	// Step 3: Read back and verify
	st, err := c.fetchState(ctx)
	if err != nil {
		return report, fmt.Errorf("read back failed: %w", err)
	}
	verify(subs, outcomes, st, &report)
	report.Duration = time.Since(start)

	fields := []logger.Field{
		logger.Int("submitted", report.Submitted),
		logger.Int("created", report.Created),
		logger.Int("conflicts", report.Conflicts),
		logger.Int("failed", report.Failed),
		logger.Int("teamsVerified", report.Verified),
		logger.Int("teamsSkipped", report.Skipped),
		logger.Duration("duration", report.Duration),
	}
	if report.Duration > 0 {
		fields = append(fields, logger.Float64("submissionsPerSecond", float64(report.Submitted)/report.Duration.Seconds()))
	}
	log.Info(ctx, "load run finished", fields...)

	if !report.OK() {
		for _, m := range report.Mismatches {
			log.Error(ctx, "mismatch", logger.String("detail", m))
		}
		return report, fmt.Errorf("%w: %d problems", ErrMismatch, len(report.Mismatches))
	}
	return report, nil
}
