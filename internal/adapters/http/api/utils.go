package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/scoreboard/internal/version"
	"github.com/okian/scoreboard/pkg/logger"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Msg string `json:"msg"`
	Ver string `json:"ver"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"msg","ver"}. Without an error the status text is the message.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Msg: msg, Ver: version.Version})
}

// respondError maps err to a status, logs server errors and writes the reply.
func respondError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed",
			logger.String("op", op),
			logger.String("requestID", RequestIDFrom(ctx)),
			logger.Error(err),
		)
	}
	writeError(w, status, err)
}
