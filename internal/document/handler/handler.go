package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/document/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/transport/http/shared"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// Service is the document lifecycle surface the handler needs.
type Service interface {
	Get(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Seal(ctx context.Context, docID id.DocumentID, level, reasonCode, motionID string) (*models.Document, error)
	Unseal(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Strike(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Replace(ctx context.Context, docID id.DocumentID, uploadID id.UploadID, title string) (*models.Document, error)
	Promote(ctx context.Context, attID id.AttachmentID, title, documentType string) (*models.Document, error)
	ListEvents(ctx context.Context, docID id.DocumentID) ([]models.DocumentEvent, error)
}

// Handler exposes document lifecycle operations.
type Handler struct {
	documents Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(documents Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{documents: documents, logger: logger, metrics: m}
}

// Register mounts the document lifecycle endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/documents/{id}/seal", h.handleSeal)
	r.Post("/api/documents/{id}/unseal", h.handleUnseal)
	r.Post("/api/documents/{id}/strike", h.handleStrike)
	r.Post("/api/documents/{id}/replace", h.handleReplace)
	r.Post("/api/documents/promote", h.handlePromote)
	r.Get("/api/documents/{id}", h.handleGet)
	r.Get("/api/documents/{id}/events", h.handleListEvents)
}

type documentResponse struct {
	ID                 string    `json:"id"`
	CaseID             string    `json:"case_id"`
	Title              string    `json:"title"`
	DocumentType       string    `json:"document_type"`
	StorageKey         string    `json:"storage_key"`
	FileSize           int64     `json:"file_size"`
	ContentType        string    `json:"content_type"`
	Checksum           string    `json:"checksum,omitempty"`
	SealingLevel       string    `json:"sealing_level"`
	SealReasonCode     string    `json:"seal_reason_code,omitempty"`
	SealMotionID       string    `json:"seal_motion_id,omitempty"`
	Status             string    `json:"status"`
	UploadedBy         string    `json:"uploaded_by"`
	SourceAttachmentID *string   `json:"source_attachment_id,omitempty"`
	Supersedes         *string   `json:"supersedes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func toDocumentResponse(d *models.Document) documentResponse {
	resp := documentResponse{
		ID:             d.ID.String(),
		CaseID:         d.CaseID.String(),
		Title:          d.Title,
		DocumentType:   d.DocumentType,
		StorageKey:     d.StorageKey,
		FileSize:       d.FileSize,
		ContentType:    d.ContentType,
		Checksum:       d.Checksum,
		SealingLevel:   string(d.SealingLevel),
		SealReasonCode: d.SealReasonCode,
		SealMotionID:   d.SealMotionID,
		Status:         string(d.Status),
		UploadedBy:     d.UploadedBy,
		CreatedAt:      d.CreatedAt,
	}
	if d.SourceAttachmentID != nil {
		s := d.SourceAttachmentID.String()
		resp.SourceAttachmentID = &s
	}
	if d.Supersedes != nil {
		s := d.Supersedes.String()
		resp.Supersedes = &s
	}
	return resp
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.documents.Get(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type sealRequest struct {
	SealingLevel string `json:"sealing_level"`
	ReasonCode   string `json:"reason_code"`
	SealMotionID string `json:"seal_motion_id"`
}

func (h *Handler) handleSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req sealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid seal request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.documents.Seal(ctx, docID, req.SealingLevel, req.ReasonCode, req.SealMotionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleUnseal(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.documents.Unseal(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleStrike(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.documents.Strike(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type replaceRequest struct {
	UploadID string `json:"upload_id"`
	Title    string `json:"title"`
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid replace request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	uploadID, err := id.ParseUploadID(req.UploadID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, err := h.documents.Replace(ctx, docID, uploadID, req.Title)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

type promoteRequest struct {
	AttachmentID string `json:"attachment_id"`
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid promote request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	attID, err := id.ParseAttachmentID(req.AttachmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, err := h.documents.Promote(ctx, attID, req.Title, req.DocumentType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type eventResponse struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	Actor     string          `json:"actor"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.documents.ListEvents(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, eventResponse{
			ID:        ev.ID,
			EventType: ev.EventType,
			Actor:     ev.Actor,
			Detail:    ev.Detail,
			CreatedAt: ev.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
