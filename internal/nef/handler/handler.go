package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/nef/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
)

// Service is the notice lookup surface.
type Service interface {
	GetByID(ctx context.Context, nefID id.NefID) (*models.Nef, error)
	GetByFiling(ctx context.Context, filingID id.FilingID) (*models.Nef, error)
	GetByDocketEntry(ctx context.Context, entryID id.DocketEntryID) (*models.Nef, error)
}

// Handler exposes the three NEF lookup paths.
type Handler struct {
	nefs    Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(nefs Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{nefs: nefs, logger: logger, metrics: m}
}

// Register mounts the three NEF lookup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/nefs/{id}", h.handleGetByID)
	r.Get("/api/nefs/docket-entry/{id}", h.handleGetByDocketEntry)
	r.Get("/api/filings/{id}/nef", h.handleGetByFiling)
}

type nefResponse struct {
	ID            string             `json:"id"`
	FilingID      string             `json:"filing_id"`
	DocumentID    string             `json:"document_id"`
	CaseID        string             `json:"case_id"`
	DocketEntryID string             `json:"docket_entry_id"`
	Recipients    []models.Recipient `json:"recipients"`
	HTMLSnapshot  string             `json:"html_snapshot"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toNefResponse(n *models.Nef) nefResponse {
	return nefResponse{
		ID:            n.ID.String(),
		FilingID:      n.FilingID.String(),
		DocumentID:    n.DocumentID.String(),
		CaseID:        n.CaseID.String(),
		DocketEntryID: n.DocketEntryID.String(),
		Recipients:    n.Recipients,
		HTMLSnapshot:  n.HTMLSnapshot,
		CreatedAt:     n.CreatedAt,
	}
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	nefID, err := id.ParseNefID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	nef, err := h.nefs.GetByID(r.Context(), nefID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toNefResponse(nef))
}

func (h *Handler) handleGetByFiling(w http.ResponseWriter, r *http.Request) {
	filingID, err := id.ParseFilingID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	nef, err := h.nefs.GetByFiling(r.Context(), filingID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toNefResponse(nef))
}

func (h *Handler) handleGetByDocketEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDocketEntryID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	nef, err := h.nefs.GetByDocketEntry(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toNefResponse(nef))
}
