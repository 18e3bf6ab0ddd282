package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	docketmodels "caseflow/internal/docket/models"
	docketstore "caseflow/internal/docket/store"
	"caseflow/internal/document/models"
	"caseflow/internal/document/store"
	filingmodels "caseflow/internal/filing/models"
	filingstore "caseflow/internal/filing/store"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/requestcontext"
)

type DocumentServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	docket  *docketstore.InMemoryStore
	uploads *filingstore.InMemoryStore
	service *Service
	ctx     context.Context
	tenant  id.TenantID
	caseID  id.CaseID
	now     time.Time
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.docket = docketstore.NewInMemoryStore()
	s.uploads = filingstore.NewInMemoryStore()
	s.service = NewService(s.store, s.docket, s.uploads, tx.NewMemoryRunner())

	s.tenant = id.TenantID("district-9")
	s.caseID = id.NewCaseID()
	s.now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTenant(context.Background(), s.tenant)
	s.ctx = requestcontext.WithActor(s.ctx, "judge-alvarez")
	s.ctx = requestcontext.WithTime(s.ctx, s.now)
}

func (s *DocumentServiceSuite) seedDocument() models.Document {
	doc := models.Document{
		ID:           id.NewDocumentID(),
		Tenant:       s.tenant,
		CaseID:       s.caseID,
		Title:        "Motion to Compel Discovery",
		DocumentType: "Motion",
		StorageKey:   "district-9/filings/x/motion.pdf",
		FileSize:     4096,
		ContentType:  "application/pdf",
		Checksum:     "deadbeef",
		SealingLevel: models.SealingPublic,
		Status:       models.StatusActive,
		UploadedBy:   "attorney-kim",
		CreatedAt:    s.now,
	}
	s.Require().NoError(s.store.Create(s.ctx, doc))
	return doc
}

func (s *DocumentServiceSuite) seedFinalizedUpload() filingmodels.FilingUpload {
	u := filingmodels.FilingUpload{
		ID:          id.NewUploadID(),
		Tenant:      s.tenant,
		Filename:    "corrected-motion.pdf",
		FileSize:    8192,
		ContentType: "application/pdf",
		StorageKey:  "district-9/filings/y/corrected-motion.pdf",
		SHA256:      "cafef00d",
		CreatedAt:   s.now,
	}
	s.Require().NoError(s.uploads.CreatePendingUpload(s.ctx, u))
	s.Require().NoError(s.uploads.MarkUploadFinalized(s.ctx, s.tenant, u.ID, u.SHA256))
	return u
}

func (s *DocumentServiceSuite) TestSeal() {
	doc := s.seedDocument()

	s.Run("reason code is required", func() {
		_, err := s.service.Seal(s.ctx, doc.ID, "SealedCourtOnly", "", "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("sealing with Public is refused", func() {
		_, err := s.service.Seal(s.ctx, doc.ID, "Public", "PRIV-01", "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("empty level defaults to court only", func() {
		sealed, err := s.service.Seal(s.ctx, doc.ID, "", "PRIV-01", "MOT-778")
		s.Require().NoError(err)
		s.Equal(models.SealingCourtOnly, sealed.SealingLevel)
		s.Equal("PRIV-01", sealed.SealReasonCode)
		s.Equal("MOT-778", sealed.SealMotionID)
	})

	s.Run("re-sealing overwrites the level", func() {
		sealed, err := s.service.Seal(s.ctx, doc.ID, "SealedAttorneysOnly", "PRIV-02", "")
		s.Require().NoError(err)
		s.Equal(models.SealingAttorneysOnly, sealed.SealingLevel)
	})

	s.Run("each seal appends an audit event", func() {
		events, err := s.service.ListEvents(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(models.EventSealed, events[0].EventType)
		s.Equal("judge-alvarez", events[0].Actor)

		var detail struct {
			Level      string `json:"level"`
			ReasonCode string `json:"reason_code"`
		}
		s.Require().NoError(json.Unmarshal(events[1].Detail, &detail))
		s.Equal("SealedAttorneysOnly", detail.Level)
		s.Equal("PRIV-02", detail.ReasonCode)
	})
}

func (s *DocumentServiceSuite) TestUnseal() {
	doc := s.seedDocument()
	_, err := s.service.Seal(s.ctx, doc.ID, "SealedCaseParticipants", "PRIV-03", "")
	s.Require().NoError(err)

	unsealed, err := s.service.Unseal(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.SealingPublic, unsealed.SealingLevel)
	s.Empty(unsealed.SealReasonCode)

	events, err := s.service.ListEvents(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(models.EventUnsealed, events[1].EventType)
}

func (s *DocumentServiceSuite) TestStrike() {
	doc := s.seedDocument()

	stricken, err := s.service.Strike(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusStricken, stricken.Status)

	s.Run("re-strike is a no-op without a duplicate event", func() {
		again, err := s.service.Strike(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusStricken, again.Status)

		events, err := s.service.ListEvents(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Len(events, 1)
	})

	s.Run("unknown document reports not found", func() {
		_, err := s.service.Strike(s.ctx, id.NewDocumentID())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DocumentServiceSuite) TestReplace() {
	s.Run("replacement supersedes the original and leaves it active", func() {
		doc := s.seedDocument()
		_, err := s.service.Seal(s.ctx, doc.ID, "SealedCourtOnly", "PRIV-01", "")
		s.Require().NoError(err)
		upload := s.seedFinalizedUpload()

		replacement, err := s.service.Replace(s.ctx, doc.ID, upload.ID, "")
		s.Require().NoError(err)
		s.Equal(doc.Title, replacement.Title)
		s.Equal(doc.DocumentType, replacement.DocumentType)
		s.Equal(upload.StorageKey, replacement.StorageKey)
		s.Equal(upload.SHA256, replacement.Checksum)
		s.Equal(models.SealingCourtOnly, replacement.SealingLevel)
		s.Equal("judge-alvarez", replacement.UploadedBy)
		s.Require().NotNil(replacement.Supersedes)
		s.Equal(doc.ID, *replacement.Supersedes)

		original, err := s.service.Get(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, original.Status)

		events, err := s.service.ListEvents(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(models.EventReplaced, events[1].EventType)

		var detail struct {
			ReplacementDocumentID string `json:"replacement_document_id"`
		}
		s.Require().NoError(json.Unmarshal(events[1].Detail, &detail))
		s.Equal(replacement.ID.String(), detail.ReplacementDocumentID)
	})

	s.Run("a second replacement is refused", func() {
		doc := s.seedDocument()
		upload := s.seedFinalizedUpload()
		_, err := s.service.Replace(s.ctx, doc.ID, upload.ID, "")
		s.Require().NoError(err)

		second := s.seedFinalizedUpload()
		_, err = s.service.Replace(s.ctx, doc.ID, second.ID, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("stricken documents cannot be replaced", func() {
		doc := s.seedDocument()
		_, err := s.service.Strike(s.ctx, doc.ID)
		s.Require().NoError(err)

		upload := s.seedFinalizedUpload()
		_, err = s.service.Replace(s.ctx, doc.ID, upload.ID, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("pending uploads cannot back a replacement", func() {
		doc := s.seedDocument()
		pending := filingmodels.FilingUpload{
			ID:          id.NewUploadID(),
			Tenant:      s.tenant,
			Filename:    "draft.pdf",
			FileSize:    100,
			ContentType: "application/pdf",
			StorageKey:  "district-9/filings/z/draft.pdf",
			CreatedAt:   s.now,
		}
		s.Require().NoError(s.uploads.CreatePendingUpload(s.ctx, pending))

		_, err := s.service.Replace(s.ctx, doc.ID, pending.ID, "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *DocumentServiceSuite) TestPromote() {
	entry := docketmodels.DocketEntry{
		ID:          id.NewDocketEntryID(),
		Tenant:      s.tenant,
		CaseID:      s.caseID,
		EntryNumber: 4,
		EntryType:   "hearing",
		Description: "Hearing exhibit received",
		DateFiled:   s.now,
	}
	s.Require().NoError(s.docket.CreateEntry(s.ctx, entry))

	att := docketmodels.DocketAttachment{
		ID:            id.NewAttachmentID(),
		Tenant:        s.tenant,
		DocketEntryID: entry.ID,
		Filename:      "exhibit-a.pdf",
		FileSize:      1024,
		ContentType:   "application/pdf",
		StorageKey:    "district-9/attachments/a/exhibit-a.pdf",
		CreatedAt:     s.now,
	}
	s.Require().NoError(s.docket.CreatePendingAttachment(s.ctx, att))

	s.Run("pending attachment cannot be promoted", func() {
		_, err := s.service.Promote(s.ctx, att.ID, "", "")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Require().NoError(s.docket.MarkAttachmentUploaded(s.ctx, s.tenant, att.ID, "feedface"))

	s.Run("invalid document type is rejected", func() {
		_, err := s.service.Promote(s.ctx, att.ID, "", "Scribble")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("promotion defaults title and type, links the entry", func() {
		doc, err := s.service.Promote(s.ctx, att.ID, "", "")
		s.Require().NoError(err)
		s.Equal("exhibit-a.pdf", doc.Title)
		s.Equal("Other", doc.DocumentType)
		s.Equal(s.caseID, doc.CaseID)
		s.Equal(att.StorageKey, doc.StorageKey)
		s.Require().NotNil(doc.SourceAttachmentID)
		s.Equal(att.ID, *doc.SourceAttachmentID)

		linked, err := s.docket.FindEntryByID(s.ctx, s.tenant, entry.ID)
		s.Require().NoError(err)
		s.Require().NotNil(linked.DocumentID)
		s.Equal(doc.ID, *linked.DocumentID)
	})

	s.Run("repeat promotion returns the same document", func() {
		first, err := s.service.Promote(s.ctx, att.ID, "", "")
		s.Require().NoError(err)
		second, err := s.service.Promote(s.ctx, att.ID, "Renamed", "Exhibit")
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
	})
}
