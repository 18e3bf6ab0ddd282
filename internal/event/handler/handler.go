package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/event/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	dErrors "caseflow/pkg/domain-errors"
)

// Dispatcher executes parsed docket events.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.SubmitEventRequest) (*models.SubmitEventResponse, error)
}

// Handler exposes the unified event submission endpoint.
type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(dispatcher Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger, metrics: m}
}

// Register mounts the event endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/events", h.handleSubmitEvent)
}

func (h *Handler) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SubmitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit event request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.dispatcher.Dispatch(ctx, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, resp)
}
