package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"caseflow/pkg/platform/sentinel"
)

var _ Gateway = (*InMemoryGateway)(nil)

// InMemoryGateway keeps objects in a map. It intentionally favors clarity over
// performance and exists for unit tests and local development.
type InMemoryGateway struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewInMemoryGateway() *InMemoryGateway {
	return &InMemoryGateway{objects: make(map[string]memoryObject)}
}

func (g *InMemoryGateway) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[key] = memoryObject{contentType: contentType, data: data}
	return nil
}

func (g *InMemoryGateway) Head(_ context.Context, key string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.objects[key]
	return ok, nil
}

func (g *InMemoryGateway) PresignPut(_ context.Context, key string, _ time.Duration) (*url.URL, error) {
	return &url.URL{Scheme: "memory", Host: "uploads", Path: "/" + key}, nil
}

func (g *InMemoryGateway) PresignGet(_ context.Context, key string, _ time.Duration) (*url.URL, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.objects[key]; !ok {
		return nil, fmt.Errorf("presign get %q: %w", key, sentinel.ErrNotFound)
	}
	return &url.URL{Scheme: "memory", Host: "downloads", Path: "/" + key}, nil
}

// SeedObject places bytes directly into the fake, for tests exercising the
// finalize path without a real upload.
func (g *InMemoryGateway) SeedObject(key, contentType string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[key] = memoryObject{contentType: contentType, data: data}
}
