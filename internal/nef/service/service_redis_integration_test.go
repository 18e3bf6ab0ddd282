//go:build integration

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"caseflow/internal/nef/models"
	"caseflow/internal/nef/store"
	platformredis "caseflow/internal/platform/redis"
	id "caseflow/pkg/domain"
	"caseflow/pkg/requestcontext"
	"caseflow/pkg/testutil/containers"
)

type NefCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	store   *store.InMemoryStore
	service *Service
	ctx     context.Context
	tenant  id.TenantID
}

func TestNefCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(NefCacheSuite))
}

func (s *NefCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *NefCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))

	s.store = store.NewInMemoryStore()
	s.service = NewService(s.store,
		WithCache(&platformredis.Client{Client: s.redis.Client}))

	s.tenant = id.TenantID("district-9")
	s.ctx = requestcontext.WithTenant(context.Background(), s.tenant)
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC))
}

func (s *NefCacheSuite) seedNotice() *models.Nef {
	nef, err := s.service.Generate(s.ctx, GenerateInput{
		FilingID:      id.NewFilingID(),
		DocumentID:    id.NewDocumentID(),
		CaseID:        id.NewCaseID(),
		DocketEntryID: id.NewDocketEntryID(),
		CaseNumber:    "2:26-cv-00142",
		DocumentTitle: "Motion to Compel Discovery",
		FiledBy:       "efiler-diaz",
		EntryNumber:   7,
		Recipients: []models.Recipient{
			{PartyID: id.NewPartyID(), Name: "Maria Ortiz", ServiceMethod: "Electronic", Electronic: true},
		},
	})
	s.Require().NoError(err)
	return nef
}

func (s *NefCacheSuite) TestGenerateWarmsCache() {
	nef := s.seedNotice()

	key := fmt.Sprintf("nef:%s:%s", s.tenant, nef.ID)
	data, err := s.redis.Client.Get(context.Background(), key).Bytes()
	s.Require().NoError(err, "generation should populate the cache")

	var cached models.Nef
	s.Require().NoError(json.Unmarshal(data, &cached))
	s.Equal(nef.ID, cached.ID)
	s.Equal(nef.HTMLSnapshot, cached.HTMLSnapshot)
}

func (s *NefCacheSuite) TestGetByIDWritesThroughCache() {
	nef := s.seedNotice()

	// Start cold so the read path itself does the caching.
	s.Require().NoError(s.redis.Flush(context.Background()))

	got, err := s.service.GetByID(s.ctx, nef.ID)
	s.Require().NoError(err)
	s.Equal(nef.ID, got.ID)

	key := fmt.Sprintf("nef:%s:%s", s.tenant, nef.ID)
	data, err := s.redis.Client.Get(context.Background(), key).Bytes()
	s.Require().NoError(err)

	var cached models.Nef
	s.Require().NoError(json.Unmarshal(data, &cached))
	s.Equal(nef.ID, cached.ID)
	s.Equal(nef.HTMLSnapshot, cached.HTMLSnapshot)

	ttl, err := s.redis.Client.TTL(context.Background(), key).Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *NefCacheSuite) TestGetByIDServesFromCache() {
	// Plant a notice in Redis only. A cache hit never touches the store, so
	// the lookup succeeds even though no row exists.
	nef := models.Nef{
		ID:           id.NewNefID(),
		Tenant:       s.tenant,
		FilingID:     id.NewFilingID(),
		CaseID:       id.NewCaseID(),
		HTMLSnapshot: "<div class=\"nef\"></div>",
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(&nef)
	s.Require().NoError(err)

	key := fmt.Sprintf("nef:%s:%s", s.tenant, nef.ID)
	s.Require().NoError(s.redis.Client.Set(context.Background(), key, data, time.Minute).Err())

	got, err := s.service.GetByID(s.ctx, nef.ID)
	s.Require().NoError(err)
	s.Equal(nef.ID, got.ID)
	s.Equal(nef.HTMLSnapshot, got.HTMLSnapshot)
}

func (s *NefCacheSuite) TestCacheMissFallsBackToStore() {
	nef := s.seedNotice()

	s.Require().NoError(s.redis.Flush(context.Background()))

	got, err := s.service.GetByID(s.ctx, nef.ID)
	s.Require().NoError(err)
	s.Equal(nef.ID, got.ID)
}
