package api

import (
	"context"
	"net/http"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// HistoryDependencies defines the interface for history reads.
type HistoryDependencies interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

type historyResponse struct {
	History     model.History     `json:"history"`
	Leaderboard model.Leaderboard `json:"leaderboard"`
	Version     uint64            `json:"version"`
}

// HistoryHandler serves every admitted record.
type HistoryHandler struct {
	deps   HistoryDependencies
	logger logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, l logger.Logger) *HistoryHandler {
	return &HistoryHandler{deps: deps, logger: l}
}

// HandleHistory handles GET /history requests.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		respondError(r.Context(), w, h.logger, op, err)
		return
	}
	if snap.History == nil {
		snap.History = model.History{}
	}
	if snap.Leaderboard == nil {
		snap.Leaderboard = model.Leaderboard{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		History:     snap.History,
		Leaderboard: snap.Leaderboard,
		Version:     snap.Version,
	})
}
