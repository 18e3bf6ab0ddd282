package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"caseflow/internal/cases/models"
	docketmodels "caseflow/internal/docket/models"
	documentmodels "caseflow/internal/document/models"
	nefmodels "caseflow/internal/nef/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/requestcontext"
)

// timelineFetchLimit caps how much of a case's docket feeds the merged
// timeline. Pagination applies after the merge.
const timelineFetchLimit = 1000

// CaseStore reads case rows.
type CaseStore interface {
	FindByID(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (*models.Case, error)
}

// DocketStore lists a case's entries.
type DocketStore interface {
	ListEntriesByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID, limit, offset int) ([]docketmodels.DocketEntry, error)
}

// DocumentEventStore lists a case's document lifecycle events.
type DocumentEventStore interface {
	ListEventsByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]documentmodels.DocumentEvent, error)
}

// NefStore lists a case's notices.
type NefStore interface {
	ListByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]nefmodels.Nef, error)
}

// Service serves case reads and the merged activity timeline.
type Service struct {
	cases     CaseStore
	docket    DocketStore
	docEvents DocumentEventStore
	nefs      NefStore
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(cases CaseStore, docket DocketStore, docEvents DocumentEventStore, nefs NefStore, opts ...Option) *Service {
	s := &Service{
		cases:     cases,
		docket:    docket,
		docEvents: docEvents,
		nefs:      nefs,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.cases.FindByID(ctx, requestcontext.Tenant(ctx), caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find case")
	}
	return c, nil
}

// TimelineItem is one row of the merged case activity feed.
type TimelineItem struct {
	Kind        string          `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
	EntryNumber int             `json:"entry_number,omitempty"`
	EntryType   string          `json:"entry_type,omitempty"`
	Description string          `json:"description,omitempty"`
	EventType   string          `json:"event_type,omitempty"`
	Actor       string          `json:"actor,omitempty"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	DocumentID  string          `json:"document_id,omitempty"`
	NefID       string          `json:"nef_id,omitempty"`
	FilingID    string          `json:"filing_id,omitempty"`
}

// Timeline merges docket entries, document lifecycle events, and NEFs into
// one newest-first feed, paginated after the merge.
func (s *Service) Timeline(ctx context.Context, caseID id.CaseID, limit, offset int) ([]TimelineItem, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	tenant := requestcontext.Tenant(ctx)

	entries, err := s.docket.ListEntriesByCase(ctx, tenant, caseID, timelineFetchLimit, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list docket entries")
	}
	events, err := s.docEvents.ListEventsByCase(ctx, tenant, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list document events")
	}
	nefs, err := s.nefs.ListByCase(ctx, tenant, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list nefs")
	}

	items := make([]TimelineItem, 0, len(entries)+len(events)+len(nefs))
	for _, e := range entries {
		item := TimelineItem{
			Kind:        "docket_entry",
			OccurredAt:  e.DateFiled,
			EntryNumber: e.EntryNumber,
			EntryType:   e.EntryType,
			Description: e.Description,
			Actor:       e.FiledBy,
		}
		if e.DocumentID != nil {
			item.DocumentID = e.DocumentID.String()
		}
		items = append(items, item)
	}
	for _, ev := range events {
		items = append(items, TimelineItem{
			Kind:       "document_event",
			OccurredAt: ev.CreatedAt,
			EventType:  ev.EventType,
			Actor:      ev.Actor,
			Detail:     ev.Detail,
			DocumentID: ev.DocumentID.String(),
		})
	}
	for _, n := range nefs {
		items = append(items, TimelineItem{
			Kind:       "nef",
			OccurredAt: n.CreatedAt,
			NefID:      n.ID.String(),
			FilingID:   n.FilingID.String(),
			DocumentID: n.DocumentID.String(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})

	if offset >= len(items) {
		return []TimelineItem{}, nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}
