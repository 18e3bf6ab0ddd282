package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	docketmodels "caseflow/internal/docket/models"
	documentmodels "caseflow/internal/document/models"
	"caseflow/internal/event/models"
	filingmodels "caseflow/internal/filing/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

type fakeDocket struct {
	lastInput docketmodels.CreateEntryInput
	entry     docketmodels.DocketEntry
}

func (f *fakeDocket) CreateTextEntry(_ context.Context, in docketmodels.CreateEntryInput) (*docketmodels.DocketEntry, error) {
	f.lastInput = in
	e := f.entry
	return &e, nil
}

type fakeFilings struct {
	lastRequest filingmodels.SubmitFilingRequest
	result      filingmodels.SubmissionResult
}

func (f *fakeFilings) Submit(_ context.Context, req filingmodels.SubmitFilingRequest) (*filingmodels.SubmissionResult, error) {
	f.lastRequest = req
	r := f.result
	return &r, nil
}

type fakeDocuments struct {
	doc documentmodels.Document
}

func (f *fakeDocuments) Promote(_ context.Context, _ id.AttachmentID, _, _ string) (*documentmodels.Document, error) {
	d := f.doc
	return &d, nil
}

type DispatcherSuite struct {
	suite.Suite
	docket     *fakeDocket
	filings    *fakeFilings
	documents  *fakeDocuments
	dispatcher *Dispatcher
	caseID     id.CaseID
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.caseID = id.NewCaseID()
	s.docket = &fakeDocket{entry: docketmodels.DocketEntry{
		ID:          id.NewDocketEntryID(),
		CaseID:      s.caseID,
		EntryNumber: 12,
	}}
	s.filings = &fakeFilings{result: filingmodels.SubmissionResult{
		Filing:        filingmodels.Filing{ID: id.NewFilingID()},
		Document:      documentmodels.Document{ID: id.NewDocumentID()},
		DocketEntryID: id.NewDocketEntryID(),
		EntryNumber:   3,
		Nef:           filingmodels.NefSummary{NefID: id.NewNefID()},
	}}
	s.documents = &fakeDocuments{doc: documentmodels.Document{ID: id.NewDocumentID()}}
	s.dispatcher = NewDispatcher(s.docket, s.filings, s.documents)
}

func strp(s string) *string { return &s }

func (s *DispatcherSuite) TestDispatchTextEntry() {
	resp, err := s.dispatcher.Dispatch(context.Background(), models.SubmitEventRequest{
		EventKind:   "text_entry",
		CaseID:      s.caseID.String(),
		EntryType:   strp("hearing"),
		Description: strp("  Status conference held  "),
		FiledBy:     strp("clerk-jones"),
	})
	s.Require().NoError(err)
	s.Equal("text_entry", resp.EventKind)
	s.Equal(12, resp.EntryNumber)
	s.Nil(resp.DocumentID)
	s.Nil(resp.FilingID)
	s.Nil(resp.NefID)
	s.Equal("Status conference held", s.docket.lastInput.Description)
}

func (s *DispatcherSuite) TestDispatchFiling() {
	resp, err := s.dispatcher.Dispatch(context.Background(), models.SubmitEventRequest{
		EventKind:    "filing",
		CaseID:       s.caseID.String(),
		Title:        strp("Motion to Compel"),
		DocumentType: strp("Motion"),
		FiledBy:      strp("efiler-diaz"),
	})
	s.Require().NoError(err)
	s.Equal("filing", resp.EventKind)
	s.Equal(3, resp.EntryNumber)
	s.Require().NotNil(resp.FilingID)
	s.Equal(s.filings.result.Filing.ID.String(), *resp.FilingID)
	s.Require().NotNil(resp.NefID)
	s.Equal("Motion", s.filings.lastRequest.DocumentType)
}

func (s *DispatcherSuite) TestDispatchPromote() {
	resp, err := s.dispatcher.Dispatch(context.Background(), models.SubmitEventRequest{
		EventKind:    "promote_attachment",
		CaseID:       s.caseID.String(),
		AttachmentID: strp(id.NewAttachmentID().String()),
	})
	s.Require().NoError(err)
	s.Equal("promote_attachment", resp.EventKind)
	s.Require().NotNil(resp.DocumentID)
	s.Equal(s.documents.doc.ID.String(), *resp.DocumentID)
	s.Nil(resp.FilingID)
	s.Zero(resp.EntryNumber)
}

func (s *DispatcherSuite) TestDispatchRejectsMalformed() {
	cases := []struct {
		name string
		req  models.SubmitEventRequest
	}{
		{"unknown kind", models.SubmitEventRequest{EventKind: "sidebar", CaseID: s.caseID.String()}},
		{"text entry without description", models.SubmitEventRequest{
			EventKind: "text_entry", CaseID: s.caseID.String(), EntryType: strp("hearing"),
		}},
		{"filing without title", models.SubmitEventRequest{
			EventKind: "filing", CaseID: s.caseID.String(),
			DocumentType: strp("Motion"), FiledBy: strp("efiler-diaz"),
		}},
		{"promote without attachment", models.SubmitEventRequest{
			EventKind: "promote_attachment", CaseID: s.caseID.String(),
		}},
		{"bad case id", models.SubmitEventRequest{
			EventKind: "text_entry", CaseID: "nope",
			EntryType: strp("hearing"), Description: strp("x"),
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.dispatcher.Dispatch(context.Background(), tc.req)
			s.Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation) ||
				dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}
