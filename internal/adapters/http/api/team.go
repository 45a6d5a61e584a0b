package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// TeamDependencies defines the interface for single-team reads.
type TeamDependencies interface {
	Best(ctx context.Context, team string) (model.Record, error)
}

type teamResponse struct {
	Team  string    `json:"team"`
	Score float64   `json:"score"`
	Time  time.Time `json:"time"`
}

// TeamHandler serves one team's best record.
type TeamHandler struct {
	deps   TeamDependencies
	logger logger.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(deps TeamDependencies, l logger.Logger) *TeamHandler {
	return &TeamHandler{deps: deps, logger: l}
}

// HandleTeam handles GET /teams/{team} requests.
func (h *TeamHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	team := r.PathValue("team")
	if strings.TrimSpace(team) == "" {
		writeError(w, http.StatusBadRequest, ErrMissingField)
		return
	}
	rec, err := h.deps.Best(r.Context(), team)
	if err != nil {
		respondError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, teamResponse{Team: team, Score: rec.Score, Time: rec.Time})
}
