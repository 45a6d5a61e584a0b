package api

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/okian/scoreboard/pkg/logger"
)

// BoardDependencies defines the interface for leaderboard reads.
type BoardDependencies interface {
	Standings(ctx context.Context) ([]Standing, error)
}

// BoardHandler serves the ranked leaderboard.
type BoardHandler struct {
	deps   BoardDependencies
	page   Page
	logger logger.Logger
}

// NewBoardHandler creates a new leaderboard handler.
func NewBoardHandler(deps BoardDependencies, page Page, l logger.Logger) *BoardHandler {
	return &BoardHandler{deps: deps, page: page, logger: l}
}

// HandleBoard handles GET / requests: HTML by default, JSON when asked for.
func (h *BoardHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	standings, err := h.deps.Standings(r.Context())
	if err != nil {
		respondError(r.Context(), w, h.logger, op, err)
		return
	}
	if standings == nil {
		standings = []Standing{}
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, standings)
		return
	}

	// Render fully before writing so a template failure can still be a 500.
	var buf bytes.Buffer
	if err := h.page.render(&buf, standings); err != nil {
		respondError(r.Context(), w, h.logger, op, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
