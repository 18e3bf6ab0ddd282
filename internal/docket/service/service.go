package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"caseflow/internal/docket/models"
	"caseflow/internal/platform/metrics"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/requestcontext"
)

// maxEntryNumberRetries bounds transactional retries when two writers race
// for the same entry number. The counter allocation makes this rare; the
// unique index makes it safe.
const maxEntryNumberRetries = 3

const presignExpiry = 15 * time.Minute

// Store is the docket persistence surface.
type Store interface {
	NextEntryNumber(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (int, error)
	CreateEntry(ctx context.Context, e models.DocketEntry) error
	FindEntryByID(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.DocketEntry, error)
	ListEntriesByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID, limit, offset int) ([]models.DocketEntry, error)
	LinkDocument(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID, docID id.DocumentID) error
	CreatePendingAttachment(ctx context.Context, a models.DocketAttachment) error
	MarkAttachmentUploaded(ctx context.Context, tenant id.TenantID, attID id.AttachmentID, sha256 string) error
	FindAttachmentByID(ctx context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.DocketAttachment, error)
	ListUploadedAttachments(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) ([]models.DocketAttachment, error)
}

// CaseStore answers case existence checks.
type CaseStore interface {
	Exists(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (bool, error)
}

// Gateway is the slice of object storage the docket needs.
type Gateway interface {
	Head(ctx context.Context, key string) (bool, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
}

// Service owns the docket: numbered entries and their attachments.
type Service struct {
	store   Store
	cases   CaseStore
	gateway Gateway
	runner  tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, cases CaseStore, gateway Gateway, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cases:   cases,
		gateway: gateway,
		runner:  runner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTextEntry records a docket event with no document, for example a
// hearing or a minute order. It owns its transaction and retries number
// collisions.
func (s *Service) CreateTextEntry(ctx context.Context, in models.CreateEntryInput) (*models.DocketEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireCase(ctx, in.CaseID); err != nil {
		return nil, err
	}

	var entry *models.DocketEntry
	for attempt := 0; ; attempt++ {
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			e, err := s.MintEntry(ctx, in)
			if err != nil {
				return err
			}
			entry = e
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < maxEntryNumberRetries {
			if s.metrics != nil {
				s.metrics.IncrementEntryNumberConflicts()
			}
			continue
		}
		return nil, translateStoreErr(err, "docket entry")
	}

	if s.metrics != nil {
		s.metrics.IncrementDocketEntriesCreated()
	}
	s.logger.Info("docket entry created",
		"case_id", entry.CaseID, "entry_number", entry.EntryNumber, "entry_type", entry.EntryType)
	return entry, nil
}

// MintEntry allocates the next entry number and inserts the row using the
// transaction already on ctx. Callers that own the transaction also own the
// conflict retry.
func (s *Service) MintEntry(ctx context.Context, in models.CreateEntryInput) (*models.DocketEntry, error) {
	tenant := requestcontext.Tenant(ctx)
	number, err := s.store.NextEntryNumber(ctx, tenant, in.CaseID)
	if err != nil {
		return nil, fmt.Errorf("allocate entry number: %w", err)
	}
	entry := models.DocketEntry{
		ID:          id.NewDocketEntryID(),
		Tenant:      tenant,
		CaseID:      in.CaseID,
		EntryNumber: number,
		EntryType:   in.EntryType,
		Description: in.Description,
		FiledBy:     in.FiledBy,
		DateFiled:   requestcontext.Now(ctx),
		IsSealed:    in.IsSealed,
		DocumentID:  in.DocumentID,
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) GetEntry(ctx context.Context, entryID id.DocketEntryID) (*models.DocketEntry, error) {
	entry, err := s.store.FindEntryByID(ctx, requestcontext.Tenant(ctx), entryID)
	if err != nil {
		return nil, translateStoreErr(err, "docket entry")
	}
	return entry, nil
}

// ListEntries pages through a case's docket in entry-number order.
func (s *Service) ListEntries(ctx context.Context, caseID id.CaseID, limit, offset int) ([]models.DocketEntry, error) {
	if err := s.requireCase(ctx, caseID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.store.ListEntriesByCase(ctx, requestcontext.Tenant(ctx), caseID, limit, offset)
	if err != nil {
		return nil, translateStoreErr(err, "docket entries")
	}
	return entries, nil
}

// LinkDocument points an entry at its promoted or filed document.
func (s *Service) LinkDocument(ctx context.Context, entryID id.DocketEntryID, docID id.DocumentID) error {
	if err := s.store.LinkDocument(ctx, requestcontext.Tenant(ctx), entryID, docID); err != nil {
		return translateStoreErr(err, "docket entry")
	}
	return nil
}

// InitAttachmentUpload stages an attachment row and hands back a presigned PUT
// URL. The row stays pending until FinalizeAttachmentUpload confirms the bytes.
func (s *Service) InitAttachmentUpload(ctx context.Context, entryID id.DocketEntryID, filename, contentType string, fileSize int64) (*models.DocketAttachment, *url.URL, error) {
	if filename == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "filename is required")
	}
	if fileSize <= 0 {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "file_size must be positive")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	tenant := requestcontext.Tenant(ctx)
	if _, err := s.store.FindEntryByID(ctx, tenant, entryID); err != nil {
		return nil, nil, translateStoreErr(err, "docket entry")
	}

	attID := id.NewAttachmentID()
	att := models.DocketAttachment{
		ID:            attID,
		Tenant:        tenant,
		DocketEntryID: entryID,
		Filename:      filename,
		FileSize:      fileSize,
		ContentType:   contentType,
		StorageKey:    path.Join(tenant.String(), "attachments", attID.String(), filename),
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.CreatePendingAttachment(ctx, att); err != nil {
		return nil, nil, translateStoreErr(err, "attachment")
	}
	uploadURL, err := s.gateway.PresignPut(ctx, att.StorageKey, presignExpiry)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "presign attachment upload")
	}
	return &att, uploadURL, nil
}

// FinalizeAttachmentUpload verifies the object landed and flips the row to
// uploaded. Finalizing twice, or before the bytes exist, is InvalidState.
func (s *Service) FinalizeAttachmentUpload(ctx context.Context, attID id.AttachmentID, sha256 string) (*models.DocketAttachment, error) {
	tenant := requestcontext.Tenant(ctx)
	att, err := s.store.FindAttachmentByID(ctx, tenant, attID)
	if err != nil {
		return nil, translateStoreErr(err, "attachment")
	}
	if att.Uploaded() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "attachment already finalized")
	}
	exists, err := s.gateway.Head(ctx, att.StorageKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check attachment object")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeInvalidState, "attachment bytes not found in object storage")
	}
	if err := s.store.MarkAttachmentUploaded(ctx, tenant, attID, sha256); err != nil {
		return nil, translateStoreErr(err, "attachment")
	}
	return s.store.FindAttachmentByID(ctx, tenant, attID)
}

// GetAttachment returns one attachment regardless of upload state.
func (s *Service) GetAttachment(ctx context.Context, attID id.AttachmentID) (*models.DocketAttachment, error) {
	att, err := s.store.FindAttachmentByID(ctx, requestcontext.Tenant(ctx), attID)
	if err != nil {
		return nil, translateStoreErr(err, "attachment")
	}
	return att, nil
}

// ListAttachments returns only confirmed uploads for an entry.
func (s *Service) ListAttachments(ctx context.Context, entryID id.DocketEntryID) ([]models.DocketAttachment, error) {
	tenant := requestcontext.Tenant(ctx)
	if _, err := s.store.FindEntryByID(ctx, tenant, entryID); err != nil {
		return nil, translateStoreErr(err, "docket entry")
	}
	atts, err := s.store.ListUploadedAttachments(ctx, tenant, entryID)
	if err != nil {
		return nil, translateStoreErr(err, "attachments")
	}
	return atts, nil
}

// DownloadAttachment presigns a GET for a confirmed upload.
func (s *Service) DownloadAttachment(ctx context.Context, attID id.AttachmentID) (*url.URL, error) {
	att, err := s.store.FindAttachmentByID(ctx, requestcontext.Tenant(ctx), attID)
	if err != nil {
		return nil, translateStoreErr(err, "attachment")
	}
	if !att.Uploaded() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "attachment upload was never finalized")
	}
	downloadURL, err := s.gateway.PresignGet(ctx, att.StorageKey, presignExpiry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "presign attachment download")
	}
	return downloadURL, nil
}

func (s *Service) requireCase(ctx context.Context, caseID id.CaseID) error {
	exists, err := s.cases.Exists(ctx, requestcontext.Tenant(ctx), caseID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check case")
	}
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return nil
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
