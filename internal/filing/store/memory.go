package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caseflow/internal/filing/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore for unit tests.
type InMemoryStore struct {
	mu      sync.Mutex
	filings map[string]models.Filing
	uploads map[string]models.FilingUpload
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		filings: make(map[string]models.Filing),
		uploads: make(map[string]models.FilingUpload),
	}
}

func (s *InMemoryStore) CreateFiling(_ context.Context, f models.Filing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filings[f.Tenant.String()+"/"+f.ID.String()] = f
	return nil
}

func (s *InMemoryStore) FindFilingByID(_ context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Filing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.filings[tenant.String()+"/"+filingID.String()]; ok {
		return &f, nil
	}
	return nil, fmt.Errorf("find filing: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) CreatePendingUpload(_ context.Context, u models.FilingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[u.Tenant.String()+"/"+u.ID.String()] = u
	return nil
}

func (s *InMemoryStore) MarkUploadFinalized(_ context.Context, tenant id.TenantID, uploadID id.UploadID, sha256 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenant.String() + "/" + uploadID.String()
	u, ok := s.uploads[key]
	if !ok || u.UploadedAt != nil {
		return fmt.Errorf("finalize filing upload: %w", sentinel.ErrInvalidState)
	}
	now := time.Now()
	u.UploadedAt = &now
	if sha256 != "" {
		u.SHA256 = sha256
	}
	s.uploads[key] = u
	return nil
}

func (s *InMemoryStore) FindUploadByID(_ context.Context, tenant id.TenantID, uploadID id.UploadID) (*models.FilingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.uploads[tenant.String()+"/"+uploadID.String()]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("find filing upload: %w", sentinel.ErrNotFound)
}
