package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/scoreboard/internal/adapters/http/api"
	"github.com/okian/scoreboard/internal/adapters/http/swagger"
	app "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/internal/version"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// newServeCmd starts the server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scoreboard server",
		Long: `Start the scoreboard server.

The server will:
  - Load the last snapshot (a missing or corrupt file starts empty)
  - Accept submissions on POST / and serve the leaderboard on GET /
  - Write the history to disk every store.write_back seconds

On SIGINT or SIGTERM it stops the periodic writer, drains in-flight
requests, writes a final snapshot and exits.

Example:
  scoreboard serve -c /etc/scoreboard/scoreboard.toml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithHistogramBuckets(cfg.Metrics.Buckets),
		metrics.WithConstLabels(cfg.Metrics.Labels),
	)

	return serve(ctx, cfg, log)
}

// serve runs until ctx is cancelled, then shuts down in order.
func serve(ctx context.Context, cfg config.Config, log logger.Logger) error {
	log.Info(ctx, "starting scoreboard",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithSecret(cfg.Store.Secret),
		app.WithDataPath(cfg.Store.Data),
		app.WithFlushInterval(cfg.FlushInterval()),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	coord := app.NewCoordinator(svc,
		app.WithDrainTimeout(cfg.ShutdownTimeout),
		app.WithCoordinatorLogger(log.Named("shutdown")),
	)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithPage(cfg.Meta.Title, cfg.Meta.Year, loc),
		api.WithStateProvider(coord),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.RequestIDMiddleware(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		// Nothing was accepted yet; still leave the snapshot in place.
		_ = svc.Stop(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	// A serve failure cancels the run so the shutdown sequence still runs.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancelRun()
		}
	}()

	// A failed final flush is logged by the coordinator and does not change the exit code.
	_ = coord.Run(runCtx, srv.Shutdown)

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
	}
	log.Info(context.Background(), "server stopped")
	return nil
}
