package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	docketmodels "caseflow/internal/docket/models"
	"caseflow/internal/document/models"
	filingmodels "caseflow/internal/filing/models"
	"caseflow/internal/platform/metrics"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/requestcontext"
)

// Store is the document persistence surface.
type Store interface {
	Create(ctx context.Context, d models.Document) error
	FindByID(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error)
	FindBySourceAttachment(ctx context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.Document, error)
	FindReplacement(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error)
	SetSealing(ctx context.Context, tenant id.TenantID, docID id.DocumentID, level models.SealingLevel, reasonCode, motionID string) error
	ClearSealing(ctx context.Context, tenant id.TenantID, docID id.DocumentID) error
	SetStatus(ctx context.Context, tenant id.TenantID, docID id.DocumentID, status models.DocumentStatus) error
	AppendEvent(ctx context.Context, ev models.DocumentEvent) error
	ListEventsByDocument(ctx context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.DocumentEvent, error)
}

// AttachmentStore is the slice of the docket needed for promotion.
type AttachmentStore interface {
	FindAttachmentByID(ctx context.Context, tenant id.TenantID, attID id.AttachmentID) (*docketmodels.DocketAttachment, error)
	FindEntryByID(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*docketmodels.DocketEntry, error)
	LinkDocument(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID, docID id.DocumentID) error
}

// UploadStore resolves finalized filing uploads for replacements.
type UploadStore interface {
	FindUploadByID(ctx context.Context, tenant id.TenantID, uploadID id.UploadID) (*filingmodels.FilingUpload, error)
}

// Service manages the document lifecycle: sealing, striking, replacement, and
// promotion of docket attachments. Every mutation appends to the document
// event log.
type Service struct {
	store       Store
	attachments AttachmentStore
	uploads     UploadStore
	runner      tx.Runner
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, attachments AttachmentStore, uploads UploadStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:       store,
		attachments: attachments,
		uploads:     uploads,
		runner:      runner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, requestcontext.Tenant(ctx), docID)
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	return doc, nil
}

// Seal restricts access to a document. Re-sealing overwrites the previous
// level; striking does not block sealing.
func (s *Service) Seal(ctx context.Context, docID id.DocumentID, level, reasonCode, motionID string) (*models.Document, error) {
	if level == "" {
		level = string(models.SealingCourtOnly)
	}
	parsed, err := models.ParseSealingLevel(level)
	if err != nil {
		return nil, err
	}
	if !parsed.Sealed() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "seal requires a sealed level, not Public")
	}
	if reasonCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason_code is required to seal a document")
	}

	tenant := requestcontext.Tenant(ctx)
	if _, err := s.store.FindByID(ctx, tenant, docID); err != nil {
		return nil, translateStoreErr(err, "document")
	}

	detail := mustDetail(struct {
		Level      string `json:"level"`
		ReasonCode string `json:"reason_code"`
		MotionID   string `json:"seal_motion_id,omitempty"`
	}{level, reasonCode, motionID})

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SetSealing(ctx, tenant, docID, parsed, reasonCode, motionID); err != nil {
			return err
		}
		return s.store.AppendEvent(ctx, s.event(ctx, docID, models.EventSealed, detail))
	})
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	if s.metrics != nil {
		s.metrics.IncrementDocumentsSealed()
	}
	return s.Get(ctx, docID)
}

// Unseal restores public access and clears the seal reason.
func (s *Service) Unseal(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	tenant := requestcontext.Tenant(ctx)
	if _, err := s.store.FindByID(ctx, tenant, docID); err != nil {
		return nil, translateStoreErr(err, "document")
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.ClearSealing(ctx, tenant, docID); err != nil {
			return err
		}
		return s.store.AppendEvent(ctx, s.event(ctx, docID, models.EventUnsealed, nil))
	})
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	return s.Get(ctx, docID)
}

// Strike removes a document from the record. Striking an already-stricken
// document returns it unchanged without a duplicate audit row.
func (s *Service) Strike(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	tenant := requestcontext.Tenant(ctx)
	doc, err := s.store.FindByID(ctx, tenant, docID)
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	if doc.Stricken() {
		return doc, nil
	}
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SetStatus(ctx, tenant, docID, models.StatusStricken); err != nil {
			return err
		}
		return s.store.AppendEvent(ctx, s.event(ctx, docID, models.EventStricken, nil))
	})
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	if s.metrics != nil {
		s.metrics.IncrementDocumentsStricken()
	}
	return s.Get(ctx, docID)
}

// Replace swaps a document's content by minting a new row that supersedes the
// original. The original row keeps status Active and is never mutated; the
// version chain lives in the supersedes reference and the replaced event.
func (s *Service) Replace(ctx context.Context, docID id.DocumentID, uploadID id.UploadID, title string) (*models.Document, error) {
	tenant := requestcontext.Tenant(ctx)

	original, err := s.store.FindByID(ctx, tenant, docID)
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	if original.Stricken() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "cannot replace a stricken document")
	}
	if _, err := s.store.FindReplacement(ctx, tenant, docID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "document has already been replaced")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translateStoreErr(err, "document")
	}

	upload, err := s.uploads.FindUploadByID(ctx, tenant, uploadID)
	if err != nil {
		return nil, translateStoreErr(err, "upload")
	}
	if !upload.Uploaded() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "upload has not been finalized")
	}
	if title == "" {
		title = original.Title
	}

	replacement := models.Document{
		ID:             id.NewDocumentID(),
		Tenant:         tenant,
		CaseID:         original.CaseID,
		Title:          title,
		DocumentType:   original.DocumentType,
		StorageKey:     upload.StorageKey,
		FileSize:       upload.FileSize,
		ContentType:    upload.ContentType,
		Checksum:       upload.SHA256,
		SealingLevel:   original.SealingLevel,
		SealReasonCode: original.SealReasonCode,
		SealMotionID:   original.SealMotionID,
		Status:         models.StatusActive,
		UploadedBy:     requestcontext.Actor(ctx),
		Supersedes:     &original.ID,
		CreatedAt:      requestcontext.Now(ctx),
	}

	detail := mustDetail(struct {
		ReplacementDocumentID string `json:"replacement_document_id"`
	}{replacement.ID.String()})

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, replacement); err != nil {
			return err
		}
		return s.store.AppendEvent(ctx, s.event(ctx, original.ID, models.EventReplaced, detail))
	})
	if err != nil {
		return nil, translateStoreErr(err, "document")
	}
	if s.metrics != nil {
		s.metrics.IncrementDocumentsReplaced()
	}
	s.logger.Info("document replaced",
		"original_id", original.ID, "replacement_id", replacement.ID, "case_id", original.CaseID)
	return &replacement, nil
}

// Promote turns an uploaded docket attachment into a canonical document.
// Idempotent: repeat calls for the same attachment return the first document.
func (s *Service) Promote(ctx context.Context, attID id.AttachmentID, title, documentType string) (*models.Document, error) {
	tenant := requestcontext.Tenant(ctx)

	att, err := s.attachments.FindAttachmentByID(ctx, tenant, attID)
	if err != nil {
		return nil, translateStoreErr(err, "attachment")
	}
	if !att.Uploaded() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "attachment upload was never finalized")
	}

	if existing, err := s.store.FindBySourceAttachment(ctx, tenant, attID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translateStoreErr(err, "document")
	}

	entry, err := s.attachments.FindEntryByID(ctx, tenant, att.DocketEntryID)
	if err != nil {
		return nil, translateStoreErr(err, "docket entry")
	}

	if title == "" {
		title = att.Filename
	}
	if documentType == "" {
		documentType = "Other"
	}
	if !models.IsValidDocumentType(documentType) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid document_type "+documentType)
	}

	srcID := attID
	doc := models.Document{
		ID:                 id.NewDocumentID(),
		Tenant:             tenant,
		CaseID:             entry.CaseID,
		Title:              title,
		DocumentType:       documentType,
		StorageKey:         att.StorageKey,
		FileSize:           att.FileSize,
		ContentType:        att.ContentType,
		Checksum:           att.SHA256,
		SealingLevel:       models.SealingPublic,
		Status:             models.StatusActive,
		UploadedBy:         requestcontext.Actor(ctx),
		SourceAttachmentID: &srcID,
		CreatedAt:          requestcontext.Now(ctx),
	}

	if err := s.store.Create(ctx, doc); err != nil {
		// A concurrent promotion won the insert race; hand back its document.
		if errors.Is(err, sentinel.ErrConflict) {
			winner, findErr := s.store.FindBySourceAttachment(ctx, tenant, attID)
			if findErr != nil {
				return nil, translateStoreErr(findErr, "document")
			}
			return winner, nil
		}
		return nil, translateStoreErr(err, "document")
	}

	// Best effort: the promotion stands even if the back-link fails.
	if err := s.attachments.LinkDocument(ctx, tenant, att.DocketEntryID, doc.ID); err != nil {
		s.logger.Warn("link promoted document to docket entry failed",
			"attachment_id", attID, "document_id", doc.ID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementAttachmentsPromoted()
	}
	s.logger.Info("attachment promoted to document",
		"attachment_id", attID, "document_id", doc.ID, "case_id", entry.CaseID)
	return &doc, nil
}

// ListEvents returns a document's audit trail oldest first.
func (s *Service) ListEvents(ctx context.Context, docID id.DocumentID) ([]models.DocumentEvent, error) {
	tenant := requestcontext.Tenant(ctx)
	if _, err := s.store.FindByID(ctx, tenant, docID); err != nil {
		return nil, translateStoreErr(err, "document")
	}
	events, err := s.store.ListEventsByDocument(ctx, tenant, docID)
	if err != nil {
		return nil, translateStoreErr(err, "document events")
	}
	return events, nil
}

func (s *Service) event(ctx context.Context, docID id.DocumentID, eventType string, detail json.RawMessage) models.DocumentEvent {
	return models.DocumentEvent{
		Tenant:     requestcontext.Tenant(ctx),
		DocumentID: docID,
		EventType:  eventType,
		Actor:      requestcontext.Actor(ctx),
		Detail:     detail,
		CreatedAt:  requestcontext.Now(ctx),
	}
}

func mustDetail(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(b)
}

func translateStoreErr(err error, noun string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, noun+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, noun+" conflict")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, noun+" is not in a valid state for this operation")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, noun+" operation failed")
	}
}
