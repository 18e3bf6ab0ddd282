package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/service"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
)

// Service is the case read surface.
type Service interface {
	GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Timeline(ctx context.Context, caseID id.CaseID, limit, offset int) ([]service.TimelineItem, error)
}

// Handler exposes case reads and the merged activity timeline.
type Handler struct {
	cases   Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(cases Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{cases: cases, logger: logger, metrics: m}
}

// Register mounts the case read endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/cases/{id}", h.handleGetCase)
	r.Get("/api/cases/{id}/timeline", h.handleTimeline)
}

type caseResponse struct {
	ID         string    `json:"id"`
	CaseNumber string    `json:"case_number"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *Handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := h.cases.GetCase(r.Context(), caseID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caseResponse{
		ID:         c.ID.String(),
		CaseNumber: c.CaseNumber,
		Title:      c.Title,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.cases.Timeline(r.Context(), caseID, limit, offset)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, items)
}
