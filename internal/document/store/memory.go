package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"caseflow/internal/document/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemoryStore mirrors PostgresStore for unit tests, including the
// one-document-per-attachment uniqueness backstop.
type InMemoryStore struct {
	mu           sync.Mutex
	documents    map[string]models.Document
	byAttachment map[string]id.DocumentID
	events       map[string][]models.DocumentEvent
	nextEventID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		documents:    make(map[string]models.Document),
		byAttachment: make(map[string]id.DocumentID),
		events:       make(map[string][]models.DocumentEvent),
	}
}

func docKey(tenant id.TenantID, docID id.DocumentID) string {
	return tenant.String() + "/" + docID.String()
}

func (s *InMemoryStore) Create(_ context.Context, d models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.SourceAttachmentID != nil {
		attKey := d.Tenant.String() + "/" + d.SourceAttachmentID.String()
		if _, exists := s.byAttachment[attKey]; exists {
			return fmt.Errorf("insert document: %w", sentinel.ErrConflict)
		}
		s.byAttachment[attKey] = d.ID
	}
	s.documents[docKey(d.Tenant, d.ID)] = d
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[docKey(tenant, docID)]; ok {
		return &d, nil
	}
	return nil, fmt.Errorf("find document: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindBySourceAttachment(_ context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docID, ok := s.byAttachment[tenant.String()+"/"+attID.String()]
	if !ok {
		return nil, fmt.Errorf("find document by attachment: %w", sentinel.ErrNotFound)
	}
	d := s.documents[docKey(tenant, docID)]
	return &d, nil
}

func (s *InMemoryStore) FindReplacement(_ context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.Tenant == tenant && d.Supersedes != nil && *d.Supersedes == docID {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("find replacement: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) SetSealing(_ context.Context, tenant id.TenantID, docID id.DocumentID, level models.SealingLevel, reasonCode, motionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey(tenant, docID)
	d, ok := s.documents[key]
	if !ok {
		return fmt.Errorf("seal document: %w", sentinel.ErrNotFound)
	}
	d.SealingLevel = level
	d.SealReasonCode = reasonCode
	d.SealMotionID = motionID
	s.documents[key] = d
	return nil
}

func (s *InMemoryStore) ClearSealing(_ context.Context, tenant id.TenantID, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey(tenant, docID)
	d, ok := s.documents[key]
	if !ok {
		return fmt.Errorf("unseal document: %w", sentinel.ErrNotFound)
	}
	d.SealingLevel = models.SealingPublic
	d.SealReasonCode = ""
	d.SealMotionID = ""
	s.documents[key] = d
	return nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, tenant id.TenantID, docID id.DocumentID, status models.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey(tenant, docID)
	d, ok := s.documents[key]
	if !ok {
		return fmt.Errorf("update document status: %w", sentinel.ErrNotFound)
	}
	d.Status = status
	s.documents[key] = d
	return nil
}

func (s *InMemoryStore) AppendEvent(_ context.Context, ev models.DocumentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	ev.ID = s.nextEventID
	key := docKey(ev.Tenant, ev.DocumentID)
	s.events[key] = append(s.events[key], ev)
	return nil
}

func (s *InMemoryStore) ListEventsByDocument(_ context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.DocumentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[docKey(tenant, docID)]
	return append([]models.DocumentEvent{}, events...), nil
}

func (s *InMemoryStore) ListEventsByCase(_ context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.DocumentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []models.DocumentEvent
	for _, evs := range s.events {
		for _, ev := range evs {
			doc, ok := s.documents[docKey(tenant, ev.DocumentID)]
			if ok && doc.CaseID == caseID && ev.Tenant == tenant {
				events = append(events, ev)
			}
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}
