package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	documentmodels "caseflow/internal/document/models"
	"caseflow/internal/servicerecord/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/requestcontext"
)

// Store is the service-record persistence surface.
type Store interface {
	Create(ctx context.Context, r models.ServiceRecord) error
	FindByID(ctx context.Context, tenant id.TenantID, recordID id.ServiceRecordID) (*models.ServiceRecord, error)
	Complete(ctx context.Context, tenant id.TenantID, recordID id.ServiceRecordID) error
	ListByDocument(ctx context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.ServiceRecord, error)
	CountProgress(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (served, total int, err error)
}

// DocumentStore answers document lookups.
type DocumentStore interface {
	FindByID(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (*documentmodels.Document, error)
}

// PartyStore answers party existence checks.
type PartyStore interface {
	Exists(ctx context.Context, tenant id.TenantID, partyID id.PartyID) (bool, error)
}

// Service tracks service of process per party per document.
type Service struct {
	store     Store
	documents DocumentStore
	parties   PartyStore
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, documents DocumentStore, parties PartyStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		documents: documents,
		parties:   parties,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields for a new service record.
type CreateInput struct {
	DocumentID           id.DocumentID
	PartyID              id.PartyID
	ServiceMethod        string
	ServedBy             string
	ServiceDate          *time.Time
	Notes                string
	CertificateOfService string
}

// Create inserts a record in its initial state: not yet successful, one
// attempt. A certificate supplied up front puts the proof on file immediately,
// but completion still requires the complete call.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ServiceRecord, error) {
	method, err := models.ParseServiceMethod(in.ServiceMethod)
	if err != nil {
		return nil, err
	}
	if in.ServedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "served_by is required")
	}

	tenant := requestcontext.Tenant(ctx)
	if _, err := s.documents.FindByID(ctx, tenant, in.DocumentID); err != nil {
		return nil, translateStoreErr(err, "document")
	}
	exists, err := s.parties.Exists(ctx, tenant, in.PartyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check party")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "party not found")
	}

	serviceDate := requestcontext.Now(ctx)
	if in.ServiceDate != nil {
		serviceDate = *in.ServiceDate
	}

	record := models.ServiceRecord{
		ID:                   id.NewServiceRecordID(),
		Tenant:               tenant,
		DocumentID:           in.DocumentID,
		PartyID:              in.PartyID,
		ServiceMethod:        method,
		ServedBy:             in.ServedBy,
		ServiceDate:          serviceDate,
		Successful:           false,
		ProofOfServiceFiled:  in.CertificateOfService != "",
		Attempts:             1,
		Notes:                in.Notes,
		CertificateOfService: in.CertificateOfService,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, translateStoreErr(err, "service record")
	}
	return &record, nil
}

// Complete marks service done with proof filed. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, recordID id.ServiceRecordID) (*models.ServiceRecord, error) {
	tenant := requestcontext.Tenant(ctx)
	if err := s.store.Complete(ctx, tenant, recordID); err != nil {
		return nil, translateStoreErr(err, "service record")
	}
	record, err := s.store.FindByID(ctx, tenant, recordID)
	if err != nil {
		return nil, translateStoreErr(err, "service record")
	}
	return record, nil
}

// ListWithProgress returns a document's records in service-date order plus
// completion progress.
func (s *Service) ListWithProgress(ctx context.Context, docID id.DocumentID) ([]models.ServiceRecord, models.Progress, error) {
	tenant := requestcontext.Tenant(ctx)
	if _, err := s.documents.FindByID(ctx, tenant, docID); err != nil {
		return nil, models.Progress{}, translateStoreErr(err, "document")
	}
	records, err := s.store.ListByDocument(ctx, tenant, docID)
	if err != nil {
		return nil, models.Progress{}, translateStoreErr(err, "service records")
	}
	served, total, err := s.store.CountProgress(ctx, tenant, docID)
	if err != nil {
		return nil, models.Progress{}, translateStoreErr(err, "service records")
	}
	return records, models.NewProgress(served, total), nil
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
