package store

import (
	"context"
	"sync"
	"time"

	"caseflow/internal/notify/models"
)

// InMemoryStore mirrors PostgresStore for unit tests.
type InMemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []models.OutboxMessage
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, m models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.messages = append(s.messages, m)
	return nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]models.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.OutboxMessage
	for _, m := range s.messages {
		if m.PublishedAt == nil {
			pending = append(pending, m)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, want := range ids {
		for i := range s.messages {
			if s.messages[i].ID == want {
				t := now
				s.messages[i].PublishedAt = &t
			}
		}
	}
	return nil
}

// All returns every message, published or not, for assertions.
func (s *InMemoryStore) All() []models.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OutboxMessage{}, s.messages...)
}
