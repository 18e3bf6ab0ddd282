//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	casemodels "caseflow/internal/cases/models"
	casesstore "caseflow/internal/cases/store"
	"caseflow/internal/docket/models"
	"caseflow/internal/docket/store"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/platform/tx"
	"caseflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	runner   *tx.SQLRunner
	tenant   id.TenantID
	caseID   id.CaseID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.runner = tx.NewSQLRunner(s.postgres.DB)
	s.tenant = id.TenantID("district-9")
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"docket_attachments", "docket_entries", "docket_counters", "cases"))

	s.caseID = id.NewCaseID()
	caseStore := casesstore.NewPostgresCaseStore(s.postgres.DB)
	s.Require().NoError(caseStore.Create(ctx, casemodels.Case{
		ID:         s.caseID,
		Tenant:     s.tenant,
		CaseNumber: "2:26-cv-00142",
		Title:      "Ortiz v. Lumen Corp",
		Status:     "Open",
		CreatedAt:  time.Now().UTC(),
	}))
}

func (s *PostgresStoreSuite) mintEntry(ctx context.Context) (*models.DocketEntry, error) {
	var entry models.DocketEntry
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.store.NextEntryNumber(ctx, s.tenant, s.caseID)
		if err != nil {
			return err
		}
		entry = models.DocketEntry{
			ID:          id.NewDocketEntryID(),
			Tenant:      s.tenant,
			CaseID:      s.caseID,
			EntryNumber: n,
			EntryType:   "notice",
			Description: "Notice entered",
			DateFiled:   time.Now().UTC(),
		}
		return s.store.CreateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *PostgresStoreSuite) TestEntryNumbersAreSequential() {
	ctx := context.Background()
	for want := 1; want <= 5; want++ {
		entry, err := s.mintEntry(ctx)
		s.Require().NoError(err)
		s.Equal(want, entry.EntryNumber)
	}
}

func (s *PostgresStoreSuite) TestConcurrentMintsNeverDuplicate() {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	numbers := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := s.mintEntry(ctx)
			if err == nil {
				numbers <- entry.EntryNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		s.False(seen[n], "entry number %d allocated twice", n)
		seen[n] = true
	}
	s.Len(seen, writers)
}

func (s *PostgresStoreSuite) TestDuplicateEntryNumberSurfacesConflict() {
	ctx := context.Background()
	entry, err := s.mintEntry(ctx)
	s.Require().NoError(err)

	dup := models.DocketEntry{
		ID:          id.NewDocketEntryID(),
		Tenant:      s.tenant,
		CaseID:      s.caseID,
		EntryNumber: entry.EntryNumber,
		EntryType:   "notice",
		Description: "Collides with the first entry",
		DateFiled:   time.Now().UTC(),
	}
	err = s.store.CreateEntry(ctx, dup)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestAttachmentLifecycle() {
	ctx := context.Background()
	entry, err := s.mintEntry(ctx)
	s.Require().NoError(err)

	att := models.DocketAttachment{
		ID:            id.NewAttachmentID(),
		Tenant:        s.tenant,
		DocketEntryID: entry.ID,
		Filename:      "exhibit-a.pdf",
		FileSize:      1024,
		ContentType:   "application/pdf",
		StorageKey:    "district-9/attachments/a/exhibit-a.pdf",
		CreatedAt:     time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreatePendingAttachment(ctx, att))

	pending, err := s.store.ListUploadedAttachments(ctx, s.tenant, entry.ID)
	s.Require().NoError(err)
	s.Empty(pending, "pending attachments are invisible")

	s.Require().NoError(s.store.MarkAttachmentUploaded(ctx, s.tenant, att.ID, "feedface"))

	err = s.store.MarkAttachmentUploaded(ctx, s.tenant, att.ID, "feedface")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	uploaded, err := s.store.ListUploadedAttachments(ctx, s.tenant, entry.ID)
	s.Require().NoError(err)
	s.Require().Len(uploaded, 1)
	s.Equal("feedface", uploaded[0].SHA256)
	s.NotNil(uploaded[0].UploadedAt)
}

func (s *PostgresStoreSuite) TestListEntriesPaginates() {
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := s.mintEntry(ctx)
		s.Require().NoError(err)
	}

	entries, err := s.store.ListEntriesByCase(ctx, s.tenant, s.caseID, 2, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(2, entries[0].EntryNumber)
	s.Equal(3, entries[1].EntryNumber)
}
