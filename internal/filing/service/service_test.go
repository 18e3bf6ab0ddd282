package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	casemodels "caseflow/internal/cases/models"
	casesstore "caseflow/internal/cases/store"
	docketservice "caseflow/internal/docket/service"
	docketstore "caseflow/internal/docket/store"
	documentstore "caseflow/internal/document/store"
	"caseflow/internal/filing/models"
	"caseflow/internal/filing/store"
	nefservice "caseflow/internal/nef/service"
	nefstore "caseflow/internal/nef/store"
	notifymodels "caseflow/internal/notify/models"
	notifystore "caseflow/internal/notify/store"
	srstore "caseflow/internal/servicerecord/store"
	"caseflow/internal/storage"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/requestcontext"
)

type FilingServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	documents *documentstore.InMemoryStore
	cases     *casesstore.InMemoryCaseStore
	parties   *casesstore.InMemoryPartyStore
	records   *srstore.InMemoryStore
	nefs      *nefstore.InMemoryStore
	outbox    *notifystore.InMemoryStore
	gateway   *storage.InMemoryGateway
	service   *Service
	ctx       context.Context
	tenant    id.TenantID
	caseID    id.CaseID
	now       time.Time
}

func TestFilingServiceSuite(t *testing.T) {
	suite.Run(t, new(FilingServiceSuite))
}

func (s *FilingServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.documents = documentstore.NewInMemoryStore()
	s.cases = casesstore.NewInMemoryCaseStore()
	s.parties = casesstore.NewInMemoryPartyStore()
	s.records = srstore.NewInMemoryStore()
	s.nefs = nefstore.NewInMemoryStore()
	s.outbox = notifystore.NewInMemoryStore()
	s.gateway = storage.NewInMemoryGateway()

	runner := tx.NewMemoryRunner()
	docketStore := docketstore.NewInMemoryStore()
	docketSvc := docketservice.NewService(docketStore, s.cases, s.gateway, runner)
	nefSvc := nefservice.NewService(s.nefs)

	s.service = NewService(Deps{
		Store:     s.store,
		Documents: s.documents,
		Cases:     s.cases,
		Parties:   s.parties,
		Records:   s.records,
		Docket:    docketSvc,
		Nefs:      nefSvc,
		Outbox:    s.outbox,
		Gateway:   s.gateway,
		Runner:    runner,
	})

	s.tenant = id.TenantID("district-9")
	s.now = time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)
	s.ctx = requestcontext.WithTenant(context.Background(), s.tenant)
	s.ctx = requestcontext.WithActor(s.ctx, "efiler-diaz")
	s.ctx = requestcontext.WithTime(s.ctx, s.now)

	s.caseID = id.NewCaseID()
	s.Require().NoError(s.cases.Create(s.ctx, casemodels.Case{
		ID:         s.caseID,
		Tenant:     s.tenant,
		CaseNumber: "2:26-cv-00142",
		Title:      "Ortiz v. Lumen Corp",
		Status:     "Open",
		CreatedAt:  s.now,
	}))
	s.seedParty("Maria Ortiz", "Electronic", "Active")
	s.seedParty("Lumen Corp", "Mail", "Active")
	s.seedParty("Former Counsel", "Electronic", "Withdrawn")
}

func (s *FilingServiceSuite) seedParty(name, method, status string) {
	s.Require().NoError(s.parties.Create(s.ctx, casemodels.Party{
		ID:            id.NewPartyID(),
		Tenant:        s.tenant,
		CaseID:        s.caseID,
		Name:          name,
		PartyType:     "Plaintiff",
		ServiceMethod: method,
		Status:        status,
	}))
}

func (s *FilingServiceSuite) finalizedUpload() *models.FilingUpload {
	upload, uploadURL, err := s.service.InitUpload(s.ctx, "motion.pdf", "application/pdf", 4096)
	s.Require().NoError(err)
	s.Require().Contains(uploadURL.String(), upload.StorageKey)
	s.gateway.SeedObject(upload.StorageKey, "application/pdf", []byte("%PDF-1.7"))
	final, err := s.service.FinalizeUpload(s.ctx, upload.ID, "deadbeef")
	s.Require().NoError(err)
	return final
}

func (s *FilingServiceSuite) submitRequest(uploadID *string) models.SubmitFilingRequest {
	return models.SubmitFilingRequest{
		CaseID:       s.caseID.String(),
		DocumentType: "Motion",
		Title:        "Motion to Compel Discovery",
		FiledBy:      "efiler-diaz",
		UploadID:     uploadID,
	}
}

func (s *FilingServiceSuite) TestValidate() {
	s.Run("missing fields collect as errors", func() {
		resp, err := s.service.Validate(s.ctx, models.SubmitFilingRequest{
			CaseID:       "not-a-uuid",
			DocumentType: "Scribble",
		})
		s.Require().NoError(err)
		s.False(resp.Valid)

		fields := make(map[string]bool)
		for _, issue := range resp.Errors {
			fields[issue.Field] = true
		}
		s.True(fields["title"])
		s.True(fields["filed_by"])
		s.True(fields["document_type"])
		s.True(fields["case_id"])
	})

	s.Run("missing upload is only a warning", func() {
		resp, err := s.service.Validate(s.ctx, s.submitRequest(nil))
		s.Require().NoError(err)
		s.True(resp.Valid)
		s.Require().Len(resp.Warnings, 1)
		s.Equal("upload_id", resp.Warnings[0].Field)
	})

	s.Run("pending upload is an error", func() {
		upload, _, err := s.service.InitUpload(s.ctx, "draft.pdf", "application/pdf", 10)
		s.Require().NoError(err)
		uploadID := upload.ID.String()
		resp, err := s.service.Validate(s.ctx, s.submitRequest(&uploadID))
		s.Require().NoError(err)
		s.False(resp.Valid)
		s.Equal("upload_id", resp.Errors[0].Field)
	})

	s.Run("sealed filing needs a reason code", func() {
		req := s.submitRequest(nil)
		req.IsSealed = true
		resp, err := s.service.Validate(s.ctx, req)
		s.Require().NoError(err)
		s.False(resp.Valid)
		s.Equal("reason_code", resp.Errors[0].Field)
	})
}

func (s *FilingServiceSuite) TestSubmit() {
	upload := s.finalizedUpload()
	uploadID := upload.ID.String()

	result, err := s.service.Submit(s.ctx, s.submitRequest(&uploadID))
	s.Require().NoError(err)

	s.Run("filing links document and docket entry", func() {
		s.Equal(models.StatusFiled, result.Filing.Status)
		s.Equal("Motion", result.Filing.FilingType)
		s.Equal(result.Document.ID, result.Filing.DocumentID)
		s.Equal(result.DocketEntryID, result.Filing.DocketEntryID)
		s.Equal(1, result.EntryNumber)
		s.Equal(upload.StorageKey, result.Document.StorageKey)
		s.Equal("deadbeef", result.Document.Checksum)
	})

	s.Run("filing is retrievable", func() {
		filing, err := s.service.GetFiling(s.ctx, result.Filing.ID)
		s.Require().NoError(err)
		s.Equal(result.Filing.ID, filing.ID)
	})

	s.Run("service records seed one row per active party", func() {
		records, err := s.records.ListByDocument(s.ctx, s.tenant, result.Document.ID)
		s.Require().NoError(err)
		s.Require().Len(records, 2)

		byMethod := make(map[string]bool)
		for _, r := range records {
			s.Equal("efiler-diaz", r.ServedBy)
			s.Equal(1, r.Attempts)
			byMethod[r.ServiceMethod] = r.Complete()
		}
		s.True(byMethod["Electronic"], "electronic service completes immediately")
		s.False(byMethod["Mail"], "mail service starts pending")
	})

	s.Run("nef snapshot captures the filing", func() {
		nef, err := s.nefs.FindByFiling(s.ctx, s.tenant, result.Filing.ID)
		s.Require().NoError(err)
		s.Len(nef.Recipients, 2)
		s.Contains(nef.HTMLSnapshot, "NOTICE OF ELECTRONIC FILING")
		s.Contains(nef.HTMLSnapshot, "2:26-cv-00142")
		s.Contains(nef.HTMLSnapshot, "Motion to Compel Discovery")
		s.Contains(nef.HTMLSnapshot, "Maria Ortiz")
		s.Equal(nef.ID, result.Nef.NefID)
		s.Equal(1, result.Nef.DocketNumber)
	})

	s.Run("delivery is queued in the outbox", func() {
		msgs := s.outbox.All()
		s.Require().Len(msgs, 1)
		s.Equal(result.Nef.NefID.String(), msgs[0].Key)

		var payload notifymodels.NefDelivery
		s.Require().NoError(json.Unmarshal(msgs[0].Payload, &payload))
		s.Equal(result.Filing.ID.String(), payload.FilingID)
		s.Equal(2, payload.Recipients)
	})

	s.Run("entry numbers advance on the next submission", func() {
		next, err := s.service.Submit(s.ctx, s.submitRequest(nil))
		s.Require().NoError(err)
		s.Equal(2, next.EntryNumber)
	})
}

func (s *FilingServiceSuite) TestSubmitWithoutFile() {
	result, err := s.service.Submit(s.ctx, s.submitRequest(nil))
	s.Require().NoError(err)
	s.Zero(result.Document.FileSize)
	s.Equal("application/octet-stream", result.Document.ContentType)
	s.Contains(result.Document.StorageKey, "placeholder")

	exists, err := s.gateway.Head(s.ctx, result.Document.StorageKey)
	s.Require().NoError(err)
	s.True(exists, "placeholder object should be written to storage")
}

func (s *FilingServiceSuite) TestSubmitSealed() {
	req := s.submitRequest(nil)
	req.IsSealed = true
	reason := "PRIV-01"
	req.ReasonCode = &reason

	result, err := s.service.Submit(s.ctx, req)
	s.Require().NoError(err)
	s.True(result.Document.Sealed())
	s.Equal("PRIV-01", result.Document.SealReasonCode)
}

func (s *FilingServiceSuite) TestSubmitRejectsInvalid() {
	req := s.submitRequest(nil)
	req.Title = ""
	_, err := s.service.Submit(s.ctx, req)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(dErrors.MessageOf(err), "title")
}

func (s *FilingServiceSuite) TestFinalizeUpload() {
	upload, _, err := s.service.InitUpload(s.ctx, "brief.pdf", "application/pdf", 512)
	s.Require().NoError(err)

	s.Run("finalize fails when the object never arrived", func() {
		_, err := s.service.FinalizeUpload(s.ctx, upload.ID, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.gateway.SeedObject(upload.StorageKey, "application/pdf", []byte("%PDF-1.7"))

	s.Run("finalize records the checksum", func() {
		final, err := s.service.FinalizeUpload(s.ctx, upload.ID, "0ddba11")
		s.Require().NoError(err)
		s.True(final.Uploaded())
		s.Equal("0ddba11", final.SHA256)
	})

	s.Run("double finalize reports invalid state", func() {
		_, err := s.service.FinalizeUpload(s.ctx, upload.ID, "0ddba11")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}
