package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// In-memory stores keep unit tests free of Postgres. They intentionally favor
// clarity over performance.
type InMemoryCaseStore struct {
	mu    sync.RWMutex
	cases map[string]models.Case
}

func NewInMemoryCaseStore() *InMemoryCaseStore {
	return &InMemoryCaseStore{cases: make(map[string]models.Case)}
}

func caseKey(tenant id.TenantID, caseID id.CaseID) string {
	return tenant.String() + "/" + caseID.String()
}

func (s *InMemoryCaseStore) Create(_ context.Context, c models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[caseKey(c.Tenant, c.ID)] = c
	return nil
}

func (s *InMemoryCaseStore) FindByID(_ context.Context, tenant id.TenantID, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cases[caseKey(tenant, caseID)]; ok {
		return &c, nil
	}
	return nil, fmt.Errorf("find case: %w", sentinel.ErrNotFound)
}

func (s *InMemoryCaseStore) Exists(_ context.Context, tenant id.TenantID, caseID id.CaseID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cases[caseKey(tenant, caseID)]
	return ok, nil
}

type InMemoryPartyStore struct {
	mu      sync.RWMutex
	parties map[string]models.Party
}

func NewInMemoryPartyStore() *InMemoryPartyStore {
	return &InMemoryPartyStore{parties: make(map[string]models.Party)}
}

func (s *InMemoryPartyStore) Create(_ context.Context, p models.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[p.Tenant.String()+"/"+p.ID.String()] = p
	return nil
}

func (s *InMemoryPartyStore) ListActiveByCase(_ context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var parties []models.Party
	for _, p := range s.parties {
		if p.Tenant == tenant && p.CaseID == caseID && p.Status == "Active" {
			parties = append(parties, p)
		}
	}
	sort.Slice(parties, func(i, j int) bool { return parties[i].Name < parties[j].Name })
	return parties, nil
}

func (s *InMemoryPartyStore) Exists(_ context.Context, tenant id.TenantID, partyID id.PartyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.parties[tenant.String()+"/"+partyID.String()]
	return ok, nil
}
