package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/pkg/logger"
)

// SubmitDependencies defines the interface for score submission.
type SubmitDependencies interface {
	Submit(ctx context.Context, sub service.Submission) error
}

// submitRequest is the body of POST /. Pointers tell a missing field from a zero value.
type submitRequest struct {
	Team   *string  `json:"team"`
	Score  *float64 `json:"score"`
	Time   *string  `json:"time"`
	Secret *string  `json:"secret"`
}

func (req submitRequest) submission() (service.Submission, error) {
	switch {
	case req.Team == nil:
		return service.Submission{}, fmt.Errorf("%w: team", ErrMissingField)
	case req.Score == nil:
		return service.Submission{}, fmt.Errorf("%w: score", ErrMissingField)
	case req.Time == nil || strings.TrimSpace(*req.Time) == "":
		return service.Submission{}, fmt.Errorf("%w: time", ErrMissingField)
	case req.Secret == nil:
		return service.Submission{}, fmt.Errorf("%w: secret", ErrMissingField)
	}
	ts, err := time.Parse(time.RFC3339Nano, *req.Time)
	if err != nil {
		return service.Submission{}, errors.New("invalid time; must be RFC3339")
	}
	return service.Submission{
		Team:   *req.Team,
		Score:  *req.Score,
		Time:   ts,
		Secret: *req.Secret,
	}, nil
}

// SubmitHandler handles score submissions.
type SubmitHandler struct {
	deps   SubmitDependencies
	logger logger.Logger
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, l logger.Logger) *SubmitHandler {
	return &SubmitHandler{deps: deps, logger: l}
}

// HandleSubmit handles POST / requests. A success is 201 with an empty body.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	var req submitRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrMalformedBody, err))
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: trailing data after object", ErrMalformedBody))
		return
	}
	sub, err := req.submission()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.deps.Submit(r.Context(), sub); err != nil {
		respondError(r.Context(), w, h.logger, op, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
