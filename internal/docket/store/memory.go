package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"caseflow/internal/docket/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore for unit tests. The counter map plays
// the role of docket_counters; the entries index enforces the unique
// (tenant, case, entry_number) backstop.
type InMemoryStore struct {
	mu          sync.Mutex
	counters    map[string]int
	entries     map[string]models.DocketEntry
	entryIndex  map[string]struct{}
	attachments map[string]models.DocketAttachment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		counters:    make(map[string]int),
		entries:     make(map[string]models.DocketEntry),
		entryIndex:  make(map[string]struct{}),
		attachments: make(map[string]models.DocketAttachment),
	}
}

func counterKey(tenant id.TenantID, caseID id.CaseID) string {
	return tenant.String() + "/" + caseID.String()
}

func (s *InMemoryStore) NextEntryNumber(_ context.Context, tenant id.TenantID, caseID id.CaseID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey(tenant, caseID)
	s.counters[key]++
	return s.counters[key], nil
}

func (s *InMemoryStore) CreateEntry(_ context.Context, e models.DocketEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idxKey := fmt.Sprintf("%s/%s/%d", e.Tenant, e.CaseID, e.EntryNumber)
	if _, exists := s.entryIndex[idxKey]; exists {
		return fmt.Errorf("insert docket entry: %w", sentinel.ErrConflict)
	}
	s.entryIndex[idxKey] = struct{}{}
	s.entries[e.Tenant.String()+"/"+e.ID.String()] = e
	return nil
}

func (s *InMemoryStore) FindEntryByID(_ context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.DocketEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[tenant.String()+"/"+entryID.String()]; ok {
		return &e, nil
	}
	return nil, fmt.Errorf("find docket entry: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListEntriesByCase(_ context.Context, tenant id.TenantID, caseID id.CaseID, limit, offset int) ([]models.DocketEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.DocketEntry
	for _, e := range s.entries {
		if e.Tenant == tenant && e.CaseID == caseID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryNumber < entries[j].EntryNumber })
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) LinkDocument(_ context.Context, tenant id.TenantID, entryID id.DocketEntryID, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenant.String() + "/" + entryID.String()
	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("link document: %w", sentinel.ErrNotFound)
	}
	e.DocumentID = &docID
	s.entries[key] = e
	return nil
}

func (s *InMemoryStore) CreatePendingAttachment(_ context.Context, a models.DocketAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[a.Tenant.String()+"/"+a.ID.String()] = a
	return nil
}

func (s *InMemoryStore) MarkAttachmentUploaded(_ context.Context, tenant id.TenantID, attID id.AttachmentID, sha256 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenant.String() + "/" + attID.String()
	a, ok := s.attachments[key]
	if !ok || a.UploadedAt != nil {
		return fmt.Errorf("mark attachment uploaded: %w", sentinel.ErrInvalidState)
	}
	now := time.Now()
	a.UploadedAt = &now
	if sha256 != "" {
		a.SHA256 = sha256
	}
	s.attachments[key] = a
	return nil
}

func (s *InMemoryStore) FindAttachmentByID(_ context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.DocketAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attachments[tenant.String()+"/"+attID.String()]; ok {
		return &a, nil
	}
	return nil, fmt.Errorf("find attachment: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListUploadedAttachments(_ context.Context, tenant id.TenantID, entryID id.DocketEntryID) ([]models.DocketAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var attachments []models.DocketAttachment
	for _, a := range s.attachments {
		if a.Tenant == tenant && a.DocketEntryID == entryID && a.UploadedAt != nil {
			attachments = append(attachments, a)
		}
	}
	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].CreatedAt.After(attachments[j].CreatedAt)
	})
	return attachments, nil
}
