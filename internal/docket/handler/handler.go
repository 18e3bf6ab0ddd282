package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/docket/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// Service is the docket surface the handler needs.
type Service interface {
	GetEntry(ctx context.Context, entryID id.DocketEntryID) (*models.DocketEntry, error)
	ListEntries(ctx context.Context, caseID id.CaseID, limit, offset int) ([]models.DocketEntry, error)
	InitAttachmentUpload(ctx context.Context, entryID id.DocketEntryID, filename, contentType string, fileSize int64) (*models.DocketAttachment, *url.URL, error)
	FinalizeAttachmentUpload(ctx context.Context, attID id.AttachmentID, sha256 string) (*models.DocketAttachment, error)
	ListAttachments(ctx context.Context, entryID id.DocketEntryID) ([]models.DocketAttachment, error)
	DownloadAttachment(ctx context.Context, attID id.AttachmentID) (*url.URL, error)
}

// Handler exposes docket entries and attachments.
type Handler struct {
	docket  Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(docket Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{docket: docket, logger: logger, metrics: m}
}

// Register mounts the docket endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/docket-entries/{id}", h.handleGetEntry)
	r.Post("/api/docket-entries/{id}/attachments", h.handleInitAttachment)
	r.Get("/api/docket-entries/{id}/attachments", h.handleListAttachments)
	r.Post("/api/attachments/{id}/finalize", h.handleFinalizeAttachment)
	r.Get("/api/attachments/{id}/download", h.handleDownloadAttachment)
	r.Get("/api/cases/{id}/docket", h.handleListEntries)
}

type entryResponse struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	EntryNumber int       `json:"entry_number"`
	EntryType   string    `json:"entry_type"`
	Description string    `json:"description"`
	FiledBy     string    `json:"filed_by,omitempty"`
	DateFiled   time.Time `json:"date_filed"`
	IsSealed    bool      `json:"is_sealed"`
	DocumentID  *string   `json:"document_id,omitempty"`
}

func toEntryResponse(e *models.DocketEntry) entryResponse {
	resp := entryResponse{
		ID:          e.ID.String(),
		CaseID:      e.CaseID.String(),
		EntryNumber: e.EntryNumber,
		EntryType:   e.EntryType,
		Description: e.Description,
		FiledBy:     e.FiledBy,
		DateFiled:   e.DateFiled,
		IsSealed:    e.IsSealed,
	}
	if e.DocumentID != nil {
		s := e.DocumentID.String()
		resp.DocumentID = &s
	}
	return resp
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDocketEntryID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entry, err := h.docket.GetEntry(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.docket.ListEntries(r.Context(), caseID, limit, offset)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]entryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, toEntryResponse(&entries[i]))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type initAttachmentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type attachmentResponse struct {
	ID            string     `json:"id"`
	DocketEntryID string     `json:"docket_entry_id"`
	Filename      string     `json:"filename"`
	FileSize      int64      `json:"file_size"`
	ContentType   string     `json:"content_type"`
	StorageKey    string     `json:"storage_key"`
	SHA256        string     `json:"sha256,omitempty"`
	UploadedAt    *time.Time `json:"uploaded_at,omitempty"`
	UploadURL     string     `json:"upload_url,omitempty"`
}

func toAttachmentResponse(a *models.DocketAttachment) attachmentResponse {
	return attachmentResponse{
		ID:            a.ID.String(),
		DocketEntryID: a.DocketEntryID.String(),
		Filename:      a.Filename,
		FileSize:      a.FileSize,
		ContentType:   a.ContentType,
		StorageKey:    a.StorageKey,
		SHA256:        a.SHA256,
		UploadedAt:    a.UploadedAt,
	}
}

func (h *Handler) handleInitAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entryID, err := id.ParseDocketEntryID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req initAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid init attachment request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	att, uploadURL, err := h.docket.InitAttachmentUpload(ctx, entryID, req.Filename, req.ContentType, req.FileSize)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := toAttachmentResponse(att)
	resp.UploadURL = uploadURL.String()
	shared.WriteJSON(w, http.StatusCreated, resp)
}

type finalizeAttachmentRequest struct {
	SHA256 string `json:"sha256"`
}

func (h *Handler) handleFinalizeAttachment(w http.ResponseWriter, r *http.Request) {
	attID, err := id.ParseAttachmentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req finalizeAttachmentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	att, err := h.docket.FinalizeAttachmentUpload(r.Context(), attID, req.SHA256)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAttachmentResponse(att))
}

func (h *Handler) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDocketEntryID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	atts, err := h.docket.ListAttachments(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]attachmentResponse, 0, len(atts))
	for i := range atts {
		resp = append(resp, toAttachmentResponse(&atts[i]))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	attID, err := id.ParseAttachmentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	downloadURL, err := h.docket.DownloadAttachment(r.Context(), attID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"download_url": downloadURL.String()})
}
