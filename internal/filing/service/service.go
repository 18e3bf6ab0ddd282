package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	casemodels "caseflow/internal/cases/models"
	docketmodels "caseflow/internal/docket/models"
	documentmodels "caseflow/internal/document/models"
	"caseflow/internal/filing/models"
	nefmodels "caseflow/internal/nef/models"
	nefservice "caseflow/internal/nef/service"
	notifymodels "caseflow/internal/notify/models"
	"caseflow/internal/platform/metrics"
	srmodels "caseflow/internal/servicerecord/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/email"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/requestcontext"
)

const (
	maxSubmitRetries = 3
	presignExpiry    = 15 * time.Minute
)

var tracer = otel.Tracer("caseflow/filing")

// Store is the filing persistence surface.
type Store interface {
	CreateFiling(ctx context.Context, f models.Filing) error
	FindFilingByID(ctx context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Filing, error)
	CreatePendingUpload(ctx context.Context, u models.FilingUpload) error
	MarkUploadFinalized(ctx context.Context, tenant id.TenantID, uploadID id.UploadID, sha256 string) error
	FindUploadByID(ctx context.Context, tenant id.TenantID, uploadID id.UploadID) (*models.FilingUpload, error)
}

// DocumentStore inserts the canonical document row for a submission.
type DocumentStore interface {
	Create(ctx context.Context, d documentmodels.Document) error
}

// CaseStore resolves cases and their active parties.
type CaseStore interface {
	FindByID(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (*casemodels.Case, error)
}

// PartyStore lists the parties entitled to service of a filing.
type PartyStore interface {
	ListActiveByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]casemodels.Party, error)
}

// ServiceRecordStore seeds per-party service rows during submission.
type ServiceRecordStore interface {
	Create(ctx context.Context, r srmodels.ServiceRecord) error
}

// EntryMinter allocates and inserts docket entries inside the caller's
// transaction.
type EntryMinter interface {
	MintEntry(ctx context.Context, in docketmodels.CreateEntryInput) (*docketmodels.DocketEntry, error)
}

// NefGenerator creates the notice of electronic filing.
type NefGenerator interface {
	Generate(ctx context.Context, in nefservice.GenerateInput) (*nefmodels.Nef, error)
}

// OutboxStore queues the NEF delivery notification within the submission
// transaction.
type OutboxStore interface {
	Append(ctx context.Context, m notifymodels.OutboxMessage) error
}

// Gateway is the slice of object storage filings need.
type Gateway interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Head(ctx context.Context, key string) (bool, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
}

// Service runs the filing submission workflow: one transaction that turns an
// uploaded file into a Document, a numbered DocketEntry, a Filing row, seeded
// service records, and a NEF.
type Service struct {
	store     Store
	documents DocumentStore
	cases     CaseStore
	parties   PartyStore
	records   ServiceRecordStore
	docket    EntryMinter
	nefs      NefGenerator
	outbox    OutboxStore
	gateway   Gateway
	runner    tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Deps struct {
	Store     Store
	Documents DocumentStore
	Cases     CaseStore
	Parties   PartyStore
	Records   ServiceRecordStore
	Docket    EntryMinter
	Nefs      NefGenerator
	Outbox    OutboxStore
	Gateway   Gateway
	Runner    tx.Runner
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:     deps.Store,
		documents: deps.Documents,
		cases:     deps.Cases,
		parties:   deps.Parties,
		records:   deps.Records,
		docket:    deps.Docket,
		nefs:      deps.Nefs,
		outbox:    deps.Outbox,
		gateway:   deps.Gateway,
		runner:    deps.Runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks a submission without mutating anything. Field problems are
// errors; a missing file is only a warning because text-only filings are
// legal.
func (s *Service) Validate(ctx context.Context, req models.SubmitFilingRequest) (*models.ValidateFilingResponse, error) {
	resp := &models.ValidateFilingResponse{
		Errors:   []models.ValidationIssue{},
		Warnings: []models.ValidationIssue{},
	}
	addError := func(field, msg string) {
		resp.Errors = append(resp.Errors, models.ValidationIssue{Field: field, Message: msg, Severity: "error"})
	}

	if req.Title == "" {
		addError("title", "title must not be empty")
	}
	if req.FiledBy == "" {
		addError("filed_by", "filed_by must not be empty")
	}
	if !documentmodels.IsValidDocumentType(req.DocumentType) {
		addError("document_type", "invalid document_type "+req.DocumentType)
	}

	tenant := requestcontext.Tenant(ctx)
	caseID, err := id.ParseCaseID(req.CaseID)
	if err != nil {
		addError("case_id", "case_id must be a valid UUID")
	} else if _, err := s.cases.FindByID(ctx, tenant, caseID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			addError("case_id", "case not found")
		} else {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check case")
		}
	}

	if req.IsSealed {
		if req.SealingLevel != nil {
			if level, err := documentmodels.ParseSealingLevel(*req.SealingLevel); err != nil || !level.Sealed() {
				addError("sealing_level", "sealing_level must be a sealed variant")
			}
		}
		if req.ReasonCode == nil || *req.ReasonCode == "" {
			addError("reason_code", "reason_code is required for sealed filings")
		}
	}

	if req.UploadID == nil {
		resp.Warnings = append(resp.Warnings, models.ValidationIssue{
			Field:    "upload_id",
			Message:  "no file attached; filing will be docketed without a document file",
			Severity: "warning",
		})
	} else {
		uploadID, err := id.ParseUploadID(*req.UploadID)
		if err != nil {
			addError("upload_id", "upload_id must be a valid UUID")
		} else if upload, err := s.store.FindUploadByID(ctx, tenant, uploadID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				addError("upload_id", "upload not found")
			} else {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check upload")
			}
		} else if !upload.Uploaded() {
			addError("upload_id", "upload has not been finalized")
		}
	}

	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}

// Submit runs the full submission workflow in one transaction. An entry
// number race rolls the whole transaction back and retries it, so no partial
// Document-without-DocketEntry state can ever commit.
func (s *Service) Submit(ctx context.Context, req models.SubmitFilingRequest) (*models.SubmissionResult, error) {
	ctx, span := tracer.Start(ctx, "filing.submit", trace.WithAttributes(
		attribute.String("case_id", req.CaseID),
		attribute.String("document_type", req.DocumentType),
	))
	defer span.End()

	result, err := s.submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("filing_id", result.Filing.ID.String()),
		attribute.Int("entry_number", result.EntryNumber),
	)
	return result, nil
}

func (s *Service) submit(ctx context.Context, req models.SubmitFilingRequest) (*models.SubmissionResult, error) {
	validation, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		first := validation.Errors[0]
		return nil, dErrors.New(dErrors.CodeValidation, first.Field+": "+first.Message)
	}

	tenant := requestcontext.Tenant(ctx)
	now := requestcontext.Now(ctx)

	caseID, err := id.ParseCaseID(req.CaseID)
	if err != nil {
		return nil, err
	}
	kase, err := s.cases.FindByID(ctx, tenant, caseID)
	if err != nil {
		return nil, translateStoreErr(err, "case")
	}

	storageKey, fileSize, contentType, checksum, err := s.resolveContent(ctx, tenant, req)
	if err != nil {
		return nil, err
	}

	sealingLevel := documentmodels.SealingPublic
	reasonCode := ""
	if req.IsSealed {
		sealingLevel = documentmodels.SealingCourtOnly
		if req.SealingLevel != nil {
			sealingLevel, _ = documentmodels.ParseSealingLevel(*req.SealingLevel)
		}
		reasonCode = *req.ReasonCode
	}

	parties, err := s.parties.ListActiveByCase(ctx, tenant, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list case parties")
	}

	var result *models.SubmissionResult
	for attempt := 0; ; attempt++ {
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			doc := documentmodels.Document{
				ID:             id.NewDocumentID(),
				Tenant:         tenant,
				CaseID:         caseID,
				Title:          req.Title,
				DocumentType:   req.DocumentType,
				StorageKey:     storageKey,
				FileSize:       fileSize,
				ContentType:    contentType,
				Checksum:       checksum,
				SealingLevel:   sealingLevel,
				SealReasonCode: reasonCode,
				Status:         documentmodels.StatusActive,
				UploadedBy:     req.FiledBy,
				CreatedAt:      now,
			}
			if err := s.documents.Create(ctx, doc); err != nil {
				return err
			}

			docID := doc.ID
			entry, err := s.docket.MintEntry(ctx, docketmodels.CreateEntryInput{
				CaseID:      caseID,
				EntryType:   models.EntryTypeForDocument(req.DocumentType),
				Description: "Filing: " + req.Title,
				FiledBy:     req.FiledBy,
				IsSealed:    sealingLevel.Sealed(),
				DocumentID:  &docID,
			})
			if err != nil {
				return err
			}

			filing := models.Filing{
				ID:            id.NewFilingID(),
				Tenant:        tenant,
				CaseID:        caseID,
				FilingType:    models.FilingTypeForDocument(req.DocumentType),
				FiledBy:       req.FiledBy,
				FiledDate:     now,
				Status:        models.StatusFiled,
				DocumentID:    doc.ID,
				DocketEntryID: entry.ID,
				CreatedAt:     now,
			}
			if err := s.store.CreateFiling(ctx, filing); err != nil {
				return err
			}

			recipients, err := s.seedServiceRecords(ctx, tenant, doc.ID, req.FiledBy, now, parties)
			if err != nil {
				return err
			}

			nef, err := s.nefs.Generate(ctx, nefservice.GenerateInput{
				FilingID:      filing.ID,
				DocumentID:    doc.ID,
				CaseID:        caseID,
				DocketEntryID: entry.ID,
				CaseNumber:    kase.CaseNumber,
				DocumentTitle: doc.Title,
				FiledBy:       req.FiledBy,
				EntryNumber:   entry.EntryNumber,
				Recipients:    recipients,
			})
			if err != nil {
				return err
			}

			if err := s.queueDelivery(ctx, nef); err != nil {
				return err
			}

			result = &models.SubmissionResult{
				Filing:        filing,
				Document:      doc,
				DocketEntryID: entry.ID,
				EntryNumber:   entry.EntryNumber,
				Nef: models.NefSummary{
					NefID:        nef.ID,
					CaseNumber:   kase.CaseNumber,
					Title:        doc.Title,
					FiledBy:      req.FiledBy,
					FiledDate:    now.UTC().Format(time.RFC3339),
					DocketNumber: entry.EntryNumber,
				},
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < maxSubmitRetries {
			if s.metrics != nil {
				s.metrics.IncrementEntryNumberConflicts()
			}
			continue
		}
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, translateStoreErr(err, "filing")
	}

	if s.metrics != nil {
		s.metrics.IncrementFilingsSubmitted()
	}
	s.logger.Info("filing submitted",
		"filing_id", result.Filing.ID, "case_id", caseID,
		"entry_number", result.EntryNumber, "document_type", req.DocumentType)
	return result, nil
}

// resolveContent returns the storage facts for the submission: the finalized
// upload's if one is referenced, otherwise a zero-byte placeholder.
func (s *Service) resolveContent(ctx context.Context, tenant id.TenantID, req models.SubmitFilingRequest) (storageKey string, fileSize int64, contentType, checksum string, err error) {
	if req.UploadID == nil {
		// File-less filings still get a real zero-byte object so every
		// document row's storage key resolves.
		key := path.Join(tenant.String(), "filings", id.NewUploadID().String(), "placeholder")
		if err := s.gateway.Put(ctx, key, "application/octet-stream", bytes.NewReader(nil), 0); err != nil {
			return "", 0, "", "", fmt.Errorf("write placeholder object: %w", err)
		}
		return key, 0, "application/octet-stream", "", nil
	}
	uploadID, err := id.ParseUploadID(*req.UploadID)
	if err != nil {
		return "", 0, "", "", err
	}
	upload, err := s.store.FindUploadByID(ctx, tenant, uploadID)
	if err != nil {
		return "", 0, "", "", translateStoreErr(err, "upload")
	}
	if !upload.Uploaded() {
		return "", 0, "", "", dErrors.New(dErrors.CodeInvalidState, "upload has not been finalized")
	}
	return upload.StorageKey, upload.FileSize, upload.ContentType, upload.SHA256, nil
}

// seedServiceRecords creates one record per active party. Electronic service
// completes immediately with proof on file; anything else waits for manual
// completion.
func (s *Service) seedServiceRecords(ctx context.Context, tenant id.TenantID, docID id.DocumentID, filedBy string, now time.Time, parties []casemodels.Party) ([]nefmodels.Recipient, error) {
	recipients := make([]nefmodels.Recipient, 0, len(parties))
	for _, party := range parties {
		electronic := party.IsElectronic()
		record := srmodels.ServiceRecord{
			ID:                  id.NewServiceRecordID(),
			Tenant:              tenant,
			DocumentID:          docID,
			PartyID:             party.ID,
			ServiceMethod:       party.EffectiveServiceMethod(),
			ServedBy:            filedBy,
			ServiceDate:         now,
			Successful:          electronic,
			ProofOfServiceFiled: electronic,
			Attempts:            1,
		}
		if err := s.records.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("seed service record: %w", err)
		}
		name := party.Name
		if name == "" {
			name = email.DisplayName(party.Email)
		}
		recipients = append(recipients, nefmodels.Recipient{
			PartyID:       party.ID,
			Name:          name,
			ServiceMethod: party.EffectiveServiceMethod(),
			Electronic:    electronic,
			Email:         party.Email,
			Phone:         party.Phone,
		})
	}
	return recipients, nil
}

func (s *Service) queueDelivery(ctx context.Context, nef *nefmodels.Nef) error {
	payload, err := json.Marshal(notifymodels.NefDelivery{
		NefID:         nef.ID.String(),
		Tenant:        nef.Tenant.String(),
		FilingID:      nef.FilingID.String(),
		CaseID:        nef.CaseID.String(),
		DocketEntryID: nef.DocketEntryID.String(),
		Recipients:    len(nef.Recipients),
		CreatedAt:     nef.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode nef delivery: %w", err)
	}
	return s.outbox.Append(ctx, notifymodels.OutboxMessage{
		Tenant:    nef.Tenant,
		Key:       nef.ID.String(),
		Payload:   payload,
		CreatedAt: nef.CreatedAt,
	})
}

// GetFiling returns one filing row.
func (s *Service) GetFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error) {
	filing, err := s.store.FindFilingByID(ctx, requestcontext.Tenant(ctx), filingID)
	if err != nil {
		return nil, translateStoreErr(err, "filing")
	}
	return filing, nil
}

// InitUpload stages an upload and presigns the PUT for the caller.
func (s *Service) InitUpload(ctx context.Context, filename, contentType string, fileSize int64) (*models.FilingUpload, *url.URL, error) {
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
	uploadID := id.NewUploadID()
	upload := models.FilingUpload{
		ID:          uploadID,
		Tenant:      tenant,
		Filename:    filename,
		FileSize:    fileSize,
		ContentType: contentType,
		StorageKey:  path.Join(tenant.String(), "filings", uploadID.String(), filename),
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.CreatePendingUpload(ctx, upload); err != nil {
		return nil, nil, translateStoreErr(err, "upload")
	}
	uploadURL, err := s.gateway.PresignPut(ctx, upload.StorageKey, presignExpiry)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "presign filing upload")
	}
	return &upload, uploadURL, nil
}

// FinalizeUpload confirms the bytes landed and flips the row to uploaded.
func (s *Service) FinalizeUpload(ctx context.Context, uploadID id.UploadID, sha256 string) (*models.FilingUpload, error) {
	tenant := requestcontext.Tenant(ctx)
	upload, err := s.store.FindUploadByID(ctx, tenant, uploadID)
	if err != nil {
		return nil, translateStoreErr(err, "upload")
	}
	if upload.Uploaded() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "upload already finalized")
	}
	exists, err := s.gateway.Head(ctx, upload.StorageKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check upload object")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeInvalidState, "upload bytes not found in object storage")
	}
	if err := s.store.MarkUploadFinalized(ctx, tenant, uploadID, sha256); err != nil {
		return nil, translateStoreErr(err, "upload")
	}
	return s.store.FindUploadByID(ctx, tenant, uploadID)
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
