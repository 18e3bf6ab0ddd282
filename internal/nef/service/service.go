package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"caseflow/internal/nef/models"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/platform/redis"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	pstrings "caseflow/pkg/platform/strings"
	"caseflow/pkg/requestcontext"
)

const cacheTTL = 10 * time.Minute

// Store is the NEF persistence surface.
type Store interface {
	Create(ctx context.Context, n models.Nef) error
	FindByID(ctx context.Context, tenant id.TenantID, nefID id.NefID) (*models.Nef, error)
	FindByFiling(ctx context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Nef, error)
	FindByDocketEntry(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.Nef, error)
	ListByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.Nef, error)
}

// Service generates and serves notices of electronic filing. Reads by id go
// through a Redis cache with request coalescing; the snapshot never changes
// after creation so cached copies cannot go stale.
type Service struct {
	store   Store
	cache   *redis.Client
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables Redis-backed reads. A nil client disables caching.
func WithCache(cache *redis.Client) Option {
	return func(s *Service) { s.cache = cache }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateInput carries everything needed to render and persist a notice.
type GenerateInput struct {
	FilingID      id.FilingID
	DocumentID    id.DocumentID
	CaseID        id.CaseID
	DocketEntryID id.DocketEntryID
	CaseNumber    string
	DocumentTitle string
	FiledBy       string
	EntryNumber   int
	Recipients    []models.Recipient
}

// Generate creates the notice for a filing. At most one notice exists per
// filing: a repeat call returns the first notice unchanged.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*models.Nef, error) {
	tenant := requestcontext.Tenant(ctx)

	if existing, err := s.store.FindByFiling(ctx, tenant, in.FilingID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translateStoreErr(err)
	}

	nef := models.Nef{
		ID:            id.NewNefID(),
		Tenant:        tenant,
		FilingID:      in.FilingID,
		DocumentID:    in.DocumentID,
		CaseID:        in.CaseID,
		DocketEntryID: in.DocketEntryID,
		Recipients:    in.Recipients,
		HTMLSnapshot: buildHTMLSnapshot(in.CaseNumber, in.DocumentTitle,
			in.FiledBy, in.EntryNumber, in.Recipients, requestcontext.Now(ctx)),
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, nef); err != nil {
		// Lost the race to a concurrent generation for the same filing.
		if errors.Is(err, sentinel.ErrConflict) {
			winner, findErr := s.store.FindByFiling(ctx, tenant, in.FilingID)
			if findErr != nil {
				return nil, translateStoreErr(findErr)
			}
			return winner, nil
		}
		return nil, translateStoreErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementNefsGenerated()
	}
	// Warm the read cache; the snapshot never changes, so this cannot go
	// stale. Failures only log.
	s.cacheSet(ctx, fmt.Sprintf("nef:%s:%s", tenant, nef.ID), &nef)
	return &nef, nil
}

// GetByID serves a notice through the cache.
func (s *Service) GetByID(ctx context.Context, nefID id.NefID) (*models.Nef, error) {
	tenant := requestcontext.Tenant(ctx)
	key := fmt.Sprintf("nef:%s:%s", tenant, nefID)

	if cached := s.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		nef, err := s.store.FindByID(ctx, tenant, nefID)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, nef)
		return nef, nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return v.(*models.Nef), nil
}

func (s *Service) GetByFiling(ctx context.Context, filingID id.FilingID) (*models.Nef, error) {
	nef, err := s.store.FindByFiling(ctx, requestcontext.Tenant(ctx), filingID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return nef, nil
}

func (s *Service) GetByDocketEntry(ctx context.Context, entryID id.DocketEntryID) (*models.Nef, error) {
	nef, err := s.store.FindByDocketEntry(ctx, requestcontext.Tenant(ctx), entryID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return nef, nil
}

func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]models.Nef, error) {
	nefs, err := s.store.ListByCase(ctx, requestcontext.Tenant(ctx), caseID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return nefs, nil
}

func (s *Service) cacheGet(ctx context.Context, key string) *models.Nef {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var nef models.Nef
	if err := json.Unmarshal(data, &nef); err != nil {
		return nil
	}
	return &nef
}

func (s *Service) cacheSet(ctx context.Context, key string, nef *models.Nef) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(nef)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		s.logger.Warn("nef cache write failed", "key", key, "error", err)
	}
}

// buildHTMLSnapshot renders the CM/ECF-style notice body. The output is a
// point-in-time record: it is stored verbatim and never re-rendered.
func buildHTMLSnapshot(caseNumber, documentTitle, filedBy string, entryNumber int, recipients []models.Recipient, now time.Time) string {
	lines := make([]string, 0, len(recipients))
	for _, r := range recipients {
		method := r.ServiceMethod
		if method == "" {
			method = "Electronic"
		}
		lines = append(lines, html.EscapeString(r.Name)+" &mdash; "+html.EscapeString(method))
	}

	var items strings.Builder
	for _, line := range pstrings.DedupeAndTrim(lines) {
		fmt.Fprintf(&items, "  <li>%s</li>\n", line)
	}

	return fmt.Sprintf(`<div class="nef">
  <h2>NOTICE OF ELECTRONIC FILING</h2>
  <p><strong>Case:</strong> %s</p>
  <p><strong>Document:</strong> %s</p>
  <p><strong>Filed by:</strong> %s</p>
  <p><strong>Date:</strong> %s</p>
  <p><strong>Docket #:</strong> %d</p>
  <h3>Recipients</h3>
  <ul>
%s  </ul>
</div>`,
		html.EscapeString(caseNumber),
		html.EscapeString(documentTitle),
		html.EscapeString(filedBy),
		now.UTC().Format("January 02, 2006 at 03:04 PM UTC"),
		entryNumber,
		items.String())
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "nef not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "nef already exists for this filing")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "nef operation failed")
	}
}
