package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"caseflow/internal/nef/models"
	"caseflow/internal/nef/store"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

type NefServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	ctx     context.Context
	tenant  id.TenantID
}

func TestNefServiceSuite(t *testing.T) {
	suite.Run(t, new(NefServiceSuite))
}

func (s *NefServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.service = NewService(s.store)

	s.tenant = id.TenantID("district-9")
	now := time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)
	s.ctx = requestcontext.WithTenant(context.Background(), s.tenant)
	s.ctx = requestcontext.WithTime(s.ctx, now)
}

func (s *NefServiceSuite) generateInput() GenerateInput {
	return GenerateInput{
		FilingID:      id.NewFilingID(),
		DocumentID:    id.NewDocumentID(),
		CaseID:        id.NewCaseID(),
		DocketEntryID: id.NewDocketEntryID(),
		CaseNumber:    "2:26-cv-00142",
		DocumentTitle: "Motion to Compel <Discovery>",
		FiledBy:       "efiler-diaz",
		EntryNumber:   7,
		Recipients: []models.Recipient{
			{PartyID: id.NewPartyID(), Name: "Maria Ortiz", ServiceMethod: "Electronic", Electronic: true},
			{PartyID: id.NewPartyID(), Name: "Lumen & Sons", ServiceMethod: "Mail"},
		},
	}
}

func (s *NefServiceSuite) TestGenerate() {
	in := s.generateInput()

	nef, err := s.service.Generate(s.ctx, in)
	s.Require().NoError(err)
	s.Equal(in.FilingID, nef.FilingID)
	s.Len(nef.Recipients, 2)

	s.Run("snapshot escapes HTML and lists recipients", func() {
		s.Contains(nef.HTMLSnapshot, "NOTICE OF ELECTRONIC FILING")
		s.Contains(nef.HTMLSnapshot, "Motion to Compel &lt;Discovery&gt;")
		s.Contains(nef.HTMLSnapshot, "Lumen &amp; Sons &mdash; Mail")
		s.Contains(nef.HTMLSnapshot, "Maria Ortiz &mdash; Electronic")
		s.Contains(nef.HTMLSnapshot, "<p><strong>Docket #:</strong> 7</p>")
		s.Contains(nef.HTMLSnapshot, "March 14, 2026 at 03:04 PM UTC")
	})

	s.Run("repeat generate returns the first notice", func() {
		again, err := s.service.Generate(s.ctx, in)
		s.Require().NoError(err)
		s.Equal(nef.ID, again.ID)
	})
}

func (s *NefServiceSuite) TestLookups() {
	in := s.generateInput()
	nef, err := s.service.Generate(s.ctx, in)
	s.Require().NoError(err)

	s.Run("by id", func() {
		got, err := s.service.GetByID(s.ctx, nef.ID)
		s.Require().NoError(err)
		s.Equal(nef.ID, got.ID)
	})

	s.Run("by filing", func() {
		got, err := s.service.GetByFiling(s.ctx, in.FilingID)
		s.Require().NoError(err)
		s.Equal(nef.ID, got.ID)
	})

	s.Run("by docket entry", func() {
		got, err := s.service.GetByDocketEntry(s.ctx, in.DocketEntryID)
		s.Require().NoError(err)
		s.Equal(nef.ID, got.ID)
	})

	s.Run("missing notice reports not found", func() {
		_, err := s.service.GetByID(s.ctx, id.NewNefID())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *NefServiceSuite) TestListByCase() {
	in := s.generateInput()
	_, err := s.service.Generate(s.ctx, in)
	s.Require().NoError(err)

	second := s.generateInput()
	second.CaseID = in.CaseID
	_, err = s.service.Generate(s.ctx, second)
	s.Require().NoError(err)

	nefs, err := s.service.ListByCase(s.ctx, in.CaseID)
	s.Require().NoError(err)
	s.Len(nefs, 2)
}
