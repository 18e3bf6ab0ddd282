package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docketstore "caseflow/internal/docket/store"
	"caseflow/internal/document/models"
	"caseflow/internal/document/service"
	"caseflow/internal/document/store"
	filingstore "caseflow/internal/filing/store"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/platform/middleware"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/tx"
)

const testDistrict = "district-9"

// metrics.New registers on the global Prometheus registry, so it can only run
// once per test binary.
var testMetrics = metrics.New()

func newDocumentRouter(t *testing.T) (chi.Router, *store.InMemoryStore) {
	t.Helper()
	docs := store.NewInMemoryStore()
	svc := service.NewService(docs, docketstore.NewInMemoryStore(),
		filingstore.NewInMemoryStore(), tx.NewMemoryRunner())

	logger := slog.Default()
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Actor)
	router.Use(middleware.RequireTenant(logger))
	New(svc, logger, testMetrics).Register(router)
	return router, docs
}

func seedDocument(t *testing.T, docs *store.InMemoryStore) models.Document {
	t.Helper()
	doc := models.Document{
		ID:           id.NewDocumentID(),
		Tenant:       id.TenantID(testDistrict),
		CaseID:       id.NewCaseID(),
		Title:        "Motion to Compel Discovery",
		DocumentType: "Motion",
		StorageKey:   "district-9/filings/x/motion.pdf",
		FileSize:     4096,
		ContentType:  "application/pdf",
		SealingLevel: models.SealingPublic,
		Status:       models.StatusActive,
		UploadedBy:   "attorney-kim",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, docs.Create(context.Background(), doc))
	return doc
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, testDistrict)
	req.Header.Set("X-Actor", "judge-alvarez")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTenantHeaderRequired(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	rec := do(t, router, http.MethodGet, "/api/documents/"+doc.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		SealingLevel string `json:"sealing_level"`
		Status       string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, doc.ID.String(), resp.ID)
	assert.Equal(t, "Motion to Compel Discovery", resp.Title)
	assert.Equal(t, "Public", resp.SealingLevel)
	assert.Equal(t, "Active", resp.Status)
}

func TestGetDocumentNotFound(t *testing.T) {
	router, _ := newDocumentRouter(t)
	rec := do(t, router, http.MethodGet, "/api/documents/"+id.NewDocumentID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSealUnsealRoundTrip(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	rec := do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/seal", map[string]string{
		"sealing_level": "SealedAttorneysOnly",
		"reason_code":   "PRIV-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var sealed struct {
		SealingLevel   string `json:"sealing_level"`
		SealReasonCode string `json:"seal_reason_code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sealed))
	assert.Equal(t, "SealedAttorneysOnly", sealed.SealingLevel)
	assert.Equal(t, "PRIV-01", sealed.SealReasonCode)

	rec = do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/unseal", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var unsealed struct {
		SealingLevel string `json:"sealing_level"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&unsealed))
	assert.Equal(t, "Public", unsealed.SealingLevel)
}

func TestSealWithoutReasonFails(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	rec := do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/seal", map[string]string{
		"sealing_level": "SealedCourtOnly",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStrikeThenEventLog(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	rec := do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/strike", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/documents/"+doc.ID.String()+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []struct {
		EventType string `json:"event_type"`
		Actor     string `json:"actor"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "stricken", events[0].EventType)
	assert.Equal(t, "judge-alvarez", events[0].Actor)
}

func TestReplaceStrickenDocumentConflicts(t *testing.T) {
	router, docs := newDocumentRouter(t)
	doc := seedDocument(t, docs)

	rec := do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/strike", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/documents/"+doc.ID.String()+"/replace", map[string]string{
		"upload_id": id.NewUploadID().String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
