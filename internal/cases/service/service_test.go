package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	docketmodels "caseflow/internal/docket/models"
	docketstore "caseflow/internal/docket/store"
	documentmodels "caseflow/internal/document/models"
	documentstore "caseflow/internal/document/store"
	nefmodels "caseflow/internal/nef/models"
	nefstore "caseflow/internal/nef/store"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

type CaseServiceSuite struct {
	suite.Suite
	cases     *store.InMemoryCaseStore
	docket    *docketstore.InMemoryStore
	documents *documentstore.InMemoryStore
	nefs      *nefstore.InMemoryStore
	service   *Service
	ctx       context.Context
	tenant    id.TenantID
	caseID    id.CaseID
	base      time.Time
}

func TestCaseServiceSuite(t *testing.T) {
	suite.Run(t, new(CaseServiceSuite))
}

func (s *CaseServiceSuite) SetupTest() {
	s.cases = store.NewInMemoryCaseStore()
	s.docket = docketstore.NewInMemoryStore()
	s.documents = documentstore.NewInMemoryStore()
	s.nefs = nefstore.NewInMemoryStore()
	s.service = NewService(s.cases, s.docket, s.documents, s.nefs)

	s.tenant = id.TenantID("district-9")
	s.base = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTenant(context.Background(), s.tenant)

	s.caseID = id.NewCaseID()
	s.Require().NoError(s.cases.Create(s.ctx, models.Case{
		ID:         s.caseID,
		Tenant:     s.tenant,
		CaseNumber: "2:26-cv-00142",
		Title:      "Ortiz v. Lumen Corp",
		Status:     "Open",
		CreatedAt:  s.base,
	}))
}

func (s *CaseServiceSuite) TestGetCase() {
	c, err := s.service.GetCase(s.ctx, s.caseID)
	s.Require().NoError(err)
	s.Equal("2:26-cv-00142", c.CaseNumber)

	_, err = s.service.GetCase(s.ctx, id.NewCaseID())
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaseServiceSuite) TestTimeline() {
	docID := id.NewDocumentID()
	s.Require().NoError(s.documents.Create(s.ctx, documentmodels.Document{
		ID:           docID,
		Tenant:       s.tenant,
		CaseID:       s.caseID,
		Title:        "Motion to Compel Discovery",
		DocumentType: "Motion",
		StorageKey:   "district-9/filings/m/motion.pdf",
		SealingLevel: documentmodels.SealingPublic,
		Status:       documentmodels.StatusActive,
		UploadedBy:   "efiler-diaz",
		CreatedAt:    s.base,
	}))

	// 8:00 entry, 9:00 document event, 10:00 NEF, 11:00 entry.
	s.Require().NoError(s.docket.CreateEntry(s.ctx, docketmodels.DocketEntry{
		ID:          id.NewDocketEntryID(),
		Tenant:      s.tenant,
		CaseID:      s.caseID,
		EntryNumber: 1,
		EntryType:   "notice",
		Description: "Case opened",
		DateFiled:   s.base,
	}))
	s.Require().NoError(s.documents.AppendEvent(s.ctx, documentmodels.DocumentEvent{
		Tenant:     s.tenant,
		DocumentID: docID,
		EventType:  documentmodels.EventSealed,
		Actor:      "judge-alvarez",
		CreatedAt:  s.base.Add(time.Hour),
	}))
	s.Require().NoError(s.nefs.Create(s.ctx, nefmodels.Nef{
		ID:            id.NewNefID(),
		Tenant:        s.tenant,
		FilingID:      id.NewFilingID(),
		DocumentID:    docID,
		CaseID:        s.caseID,
		DocketEntryID: id.NewDocketEntryID(),
		Recipients:    []nefmodels.Recipient{},
		HTMLSnapshot:  "<div/>",
		CreatedAt:     s.base.Add(2 * time.Hour),
	}))
	s.Require().NoError(s.docket.CreateEntry(s.ctx, docketmodels.DocketEntry{
		ID:          id.NewDocketEntryID(),
		Tenant:      s.tenant,
		CaseID:      s.caseID,
		EntryNumber: 2,
		EntryType:   "motion",
		Description: "Motion filed",
		DateFiled:   s.base.Add(3 * time.Hour),
	}))

	s.Run("merges all sources newest first", func() {
		items, err := s.service.Timeline(s.ctx, s.caseID, 0, 0)
		s.Require().NoError(err)
		s.Require().Len(items, 4)
		s.Equal("docket_entry", items[0].Kind)
		s.Equal(2, items[0].EntryNumber)
		s.Equal("nef", items[1].Kind)
		s.Equal("document_event", items[2].Kind)
		s.Equal("sealed", items[2].EventType)
		s.Equal("docket_entry", items[3].Kind)
		s.Equal(1, items[3].EntryNumber)
	})

	s.Run("paginates after the merge", func() {
		items, err := s.service.Timeline(s.ctx, s.caseID, 2, 1)
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal("nef", items[0].Kind)
		s.Equal("document_event", items[1].Kind)
	})

	s.Run("document event attribution survives the merge", func() {
		items, err := s.service.Timeline(s.ctx, s.caseID, 0, 0)
		s.Require().NoError(err)
		s.Equal("judge-alvarez", items[2].Actor)
		s.Equal(docID.String(), items[2].DocumentID)
	})

	s.Run("offset past the end returns empty", func() {
		items, err := s.service.Timeline(s.ctx, s.caseID, 10, 99)
		s.Require().NoError(err)
		s.Empty(items)
	})

	s.Run("unknown case reports not found", func() {
		_, err := s.service.Timeline(s.ctx, id.NewCaseID(), 0, 0)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
