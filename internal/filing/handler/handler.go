package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/filing/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// Service is the filing workflow surface the handler needs.
type Service interface {
	Validate(ctx context.Context, req models.SubmitFilingRequest) (*models.ValidateFilingResponse, error)
	Submit(ctx context.Context, req models.SubmitFilingRequest) (*models.SubmissionResult, error)
	GetFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error)
	InitUpload(ctx context.Context, filename, contentType string, fileSize int64) (*models.FilingUpload, *url.URL, error)
	FinalizeUpload(ctx context.Context, uploadID id.UploadID, sha256 string) (*models.FilingUpload, error)
}

// Handler exposes filing submission and upload staging.
type Handler struct {
	filings Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(filings Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{filings: filings, logger: logger, metrics: m}
}

// Register mounts the filing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/filings/validate", h.handleValidate)
	r.Post("/api/filings", h.handleSubmit)
	r.Post("/api/filings/uploads", h.handleInitUpload)
	r.Post("/api/filings/uploads/{id}/finalize", h.handleFinalizeUpload)
	r.Get("/api/filings/{id}", h.handleGetFiling)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SubmitFilingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid validate filing request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.filings.Validate(ctx, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type submitResponse struct {
	FilingID      string            `json:"filing_id"`
	DocumentID    string            `json:"document_id"`
	DocketEntryID string            `json:"docket_entry_id"`
	EntryNumber   int               `json:"entry_number"`
	Status        string            `json:"status"`
	FiledDate     time.Time         `json:"filed_date"`
	Nef           models.NefSummary `json:"nef"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SubmitFilingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit filing request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.filings.Submit(ctx, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, submitResponse{
		FilingID:      result.Filing.ID.String(),
		DocumentID:    result.Document.ID.String(),
		DocketEntryID: result.DocketEntryID.String(),
		EntryNumber:   result.EntryNumber,
		Status:        result.Filing.Status,
		FiledDate:     result.Filing.FiledDate,
		Nef:           result.Nef,
	})
}

type initUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type uploadResponse struct {
	UploadID   string     `json:"upload_id"`
	StorageKey string     `json:"storage_key"`
	UploadURL  string     `json:"upload_url,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

func (h *Handler) handleInitUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req initUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid init upload request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	upload, uploadURL, err := h.filings.InitUpload(ctx, req.Filename, req.ContentType, req.FileSize)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, uploadResponse{
		UploadID:   upload.ID.String(),
		StorageKey: upload.StorageKey,
		UploadURL:  uploadURL.String(),
	})
}

type finalizeUploadRequest struct {
	SHA256 string `json:"sha256"`
}

func (h *Handler) handleFinalizeUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uploadID, err := id.ParseUploadID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req finalizeUploadRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	upload, err := h.filings.FinalizeUpload(ctx, uploadID, req.SHA256)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, uploadResponse{
		UploadID:   upload.ID.String(),
		StorageKey: upload.StorageKey,
		UploadedAt: upload.UploadedAt,
	})
}

type filingResponse struct {
	ID            string    `json:"id"`
	CaseID        string    `json:"case_id"`
	FilingType    string    `json:"filing_type"`
	FiledBy       string    `json:"filed_by"`
	FiledDate     time.Time `json:"filed_date"`
	Status        string    `json:"status"`
	DocumentID    string    `json:"document_id"`
	DocketEntryID string    `json:"docket_entry_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) handleGetFiling(w http.ResponseWriter, r *http.Request) {
	filingID, err := id.ParseFilingID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	filing, err := h.filings.GetFiling(r.Context(), filingID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, filingResponse{
		ID:            filing.ID.String(),
		CaseID:        filing.CaseID.String(),
		FilingType:    filing.FilingType,
		FiledBy:       filing.FiledBy,
		FiledDate:     filing.FiledDate,
		Status:        filing.Status,
		DocumentID:    filing.DocumentID.String(),
		DocketEntryID: filing.DocketEntryID.String(),
		CreatedAt:     filing.CreatedAt,
	})
}
