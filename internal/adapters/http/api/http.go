// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitDependencies
	BoardDependencies
	HistoryDependencies
	TeamDependencies
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StateProvider reports the process lifecycle state.
type StateProvider interface {
	State() service.State
}

// Server wires HTTP routes for the business API.
type Server struct {
	submitHandler  *SubmitHandler
	boardHandler   *BoardHandler
	historyHandler *HistoryHandler
	teamHandler    *TeamHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	page   Page
	state  StateProvider
	logger logger.Logger
}

// WithPage sets the leaderboard page title, year and display timezone.
func WithPage(title string, year int, loc *time.Location) Option {
	return func(o *serverOptions) {
		o.page.Title = title
		o.page.Year = year
		if loc != nil {
			o.page.Location = loc
		}
	}
}

// WithStateProvider makes /healthz report the lifecycle state.
func WithStateProvider(sp StateProvider) Option {
	return func(o *serverOptions) {
		o.state = sp
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{
		page:   Page{Title: "Leaderboard", Year: time.Now().Year(), Location: time.UTC},
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		submitHandler:  NewSubmitHandler(deps, o.logger),
		boardHandler:   NewBoardHandler(deps, o.page, o.logger),
		historyHandler: NewHistoryHandler(deps, o.logger),
		teamHandler:    NewTeamHandler(deps, o.logger),
		healthHandler:  NewHealthHandler(o.state),
		statsHandler:   NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// "/{$}" matches only the root; every other unknown path is a 404.
	mux.HandleFunc("/{$}", MetricsMiddleware(s.handleRoot, "root"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleHistory, "history"))
	mux.HandleFunc("/teams/{team}", MetricsMiddleware(s.teamHandler.HandleTeam, "team"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// handleRoot serves POST / (submit) and GET / (leaderboard).
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.submitHandler.HandleSubmit(w, r)
	case http.MethodGet, http.MethodHead:
		s.boardHandler.HandleBoard(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		writeError(w, http.StatusMethodNotAllowed, nil)
	}
}

// Standing mirrors the read shape returned by leaderboard queries.
type Standing = model.Standing
