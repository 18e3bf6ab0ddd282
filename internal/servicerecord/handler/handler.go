package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/platform/metrics"
	"caseflow/internal/servicerecord/models"
	"caseflow/internal/servicerecord/service"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// Service is the service-tracking surface the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.ServiceRecord, error)
	Complete(ctx context.Context, recordID id.ServiceRecordID) (*models.ServiceRecord, error)
	ListWithProgress(ctx context.Context, docID id.DocumentID) ([]models.ServiceRecord, models.Progress, error)
}

// Handler exposes service-of-process tracking.
type Handler struct {
	records Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(records Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{records: records, logger: logger, metrics: m}
}

// Register mounts the service-tracking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/service-records", h.handleCreate)
	r.Post("/api/service-records/{id}/complete", h.handleComplete)
	r.Get("/api/documents/{id}/service-records", h.handleList)
}

type createRequest struct {
	DocumentID           string     `json:"document_id"`
	PartyID              string     `json:"party_id"`
	ServiceMethod        string     `json:"service_method"`
	ServedBy             string     `json:"served_by"`
	ServiceDate          *time.Time `json:"service_date,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CertificateOfService string     `json:"certificate_of_service,omitempty"`
}

type recordResponse struct {
	ID                   string    `json:"id"`
	DocumentID           string    `json:"document_id"`
	PartyID              string    `json:"party_id"`
	ServiceMethod        string    `json:"service_method"`
	ServedBy             string    `json:"served_by"`
	ServiceDate          time.Time `json:"service_date"`
	Successful           bool      `json:"successful"`
	ProofOfServiceFiled  bool      `json:"proof_of_service_filed"`
	Attempts             int       `json:"attempts"`
	Notes                string    `json:"notes,omitempty"`
	CertificateOfService string    `json:"certificate_of_service,omitempty"`
}

func toRecordResponse(rec *models.ServiceRecord) recordResponse {
	return recordResponse{
		ID:                   rec.ID.String(),
		DocumentID:           rec.DocumentID.String(),
		PartyID:              rec.PartyID.String(),
		ServiceMethod:        rec.ServiceMethod,
		ServedBy:             rec.ServedBy,
		ServiceDate:          rec.ServiceDate,
		Successful:           rec.Successful,
		ProofOfServiceFiled:  rec.ProofOfServiceFiled,
		Attempts:             rec.Attempts,
		Notes:                rec.Notes,
		CertificateOfService: rec.CertificateOfService,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create service record request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	docID, err := id.ParseDocumentID(req.DocumentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	partyID, err := id.ParsePartyID(req.PartyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.records.Create(ctx, service.CreateInput{
		DocumentID:           docID,
		PartyID:              partyID,
		ServiceMethod:        req.ServiceMethod,
		ServedBy:             req.ServedBy,
		ServiceDate:          req.ServiceDate,
		Notes:                req.Notes,
		CertificateOfService: req.CertificateOfService,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseServiceRecordID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.records.Complete(r.Context(), recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

type listResponse struct {
	Records  []recordResponse `json:"records"`
	Progress models.Progress  `json:"progress"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	records, progress, err := h.records.ListWithProgress(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := listResponse{Records: make([]recordResponse, 0, len(records)), Progress: progress}
	for i := range records {
		resp.Records = append(resp.Records, toRecordResponse(&records[i]))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
