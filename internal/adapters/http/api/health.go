package api

import (
	"net/http"

	service "github.com/okian/scoreboard/internal/app"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	state StateProvider
}

// NewHealthHandler creates a new health handler. A nil provider always reports running.
func NewHealthHandler(state StateProvider) *HealthHandler {
	return &HealthHandler{state: state}
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// HandleHealth handles GET /healthz requests. Anything but the running state is 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := service.StateRunning
	if h.state != nil {
		state = h.state.State()
	}
	if state != service.StateRunning {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", State: state.String()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", State: state.String()})
}
