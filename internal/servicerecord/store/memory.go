package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"caseflow/internal/servicerecord/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore for unit tests.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]models.ServiceRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.ServiceRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, r models.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Tenant.String()+"/"+r.ID.String()] = r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenant id.TenantID, recordID id.ServiceRecordID) (*models.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[tenant.String()+"/"+recordID.String()]; ok {
		return &r, nil
	}
	return nil, fmt.Errorf("find service record: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Complete(_ context.Context, tenant id.TenantID, recordID id.ServiceRecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenant.String() + "/" + recordID.String()
	r, ok := s.records[key]
	if !ok {
		return fmt.Errorf("complete service record: %w", sentinel.ErrNotFound)
	}
	r.Successful = true
	r.ProofOfServiceFiled = true
	s.records[key] = r
	return nil
}

func (s *InMemoryStore) ListByDocument(_ context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.ServiceRecord
	for _, r := range s.records {
		if r.Tenant == tenant && r.DocumentID == docID {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].ServiceDate.Equal(records[j].ServiceDate) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].ServiceDate.Before(records[j].ServiceDate)
	})
	return records, nil
}

func (s *InMemoryStore) CountProgress(_ context.Context, tenant id.TenantID, docID id.DocumentID) (served, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Tenant == tenant && r.DocumentID == docID {
			total++
			if r.Complete() {
				served++
			}
		}
	}
	return served, total, nil
}
