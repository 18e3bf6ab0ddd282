package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"caseflow/internal/nef/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore for unit tests, including the
// one-notice-per-filing backstop.
type InMemoryStore struct {
	mu       sync.Mutex
	nefs     map[string]models.Nef
	byFiling map[string]id.NefID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nefs:     make(map[string]models.Nef),
		byFiling: make(map[string]id.NefID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, n models.Nef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	filingKey := n.Tenant.String() + "/" + n.FilingID.String()
	if _, exists := s.byFiling[filingKey]; exists {
		return fmt.Errorf("insert nef: %w", sentinel.ErrConflict)
	}
	s.byFiling[filingKey] = n.ID
	s.nefs[n.Tenant.String()+"/"+n.ID.String()] = n
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenant id.TenantID, nefID id.NefID) (*models.Nef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nefs[tenant.String()+"/"+nefID.String()]; ok {
		return &n, nil
	}
	return nil, fmt.Errorf("find nef: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByFiling(_ context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Nef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nefID, ok := s.byFiling[tenant.String()+"/"+filingID.String()]
	if !ok {
		return nil, fmt.Errorf("find nef: %w", sentinel.ErrNotFound)
	}
	n := s.nefs[tenant.String()+"/"+nefID.String()]
	return &n, nil
}

func (s *InMemoryStore) FindByDocketEntry(_ context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.Nef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nefs {
		if n.Tenant == tenant && n.DocketEntryID == entryID {
			return &n, nil
		}
	}
	return nil, fmt.Errorf("find nef: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByCase(_ context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.Nef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var nefs []models.Nef
	for _, n := range s.nefs {
		if n.Tenant == tenant && n.CaseID == caseID {
			nefs = append(nefs, n)
		}
	}
	sort.Slice(nefs, func(i, j int) bool { return nefs[i].CreatedAt.After(nefs[j].CreatedAt) })
	return nefs, nil
}
