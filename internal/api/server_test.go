package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
)

// fakeDiscoverer creates companies through a real pipeline and records the
// enrichments it is asked to run.
type fakeDiscoverer struct {
	creator *pipeline.Pipeline

	mu       sync.Mutex
	reqs     []pipeline.DiscoverRequest
	enriched []string
	err      error
}

func (f *fakeDiscoverer) Create(ctx context.Context, req pipeline.DiscoverRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.creator.Create(ctx, req)
}

func (f *fakeDiscoverer) Enrich(_ context.Context, companyID string) (*pipeline.EnrichmentReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enriched = append(f.enriched, companyID)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.EnrichmentReport{CompanyID: companyID}, nil
}

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore, *fakeDiscoverer) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	d := &fakeDiscoverer{creator: pipeline.New(st, audit.NewRecorder(st), nil)}
	s := NewServer(context.Background(), d, st, []string{"*"})
	s.async = func(fn func()) { fn() }
	return s, st, d
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s.Routes(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s.Routes(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnrichWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{name: "accepted", body: `{"domain":"https://www.Acme.com/","name":"Acme","source":"form"}`, wantStatus: http.StatusAccepted, wantCalls: 1},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "missing domain", body: `{"name":"Acme"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid domain", body: `{"domain":"localhost"}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, d := newTestServer(t)
			rec := do(t, s.Routes(), http.MethodPost, "/webhook/enrich", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Len(t, d.reqs, tt.wantCalls)
			assert.Len(t, d.enriched, tt.wantCalls)
		})
	}
}

func TestEnrichWebhook_ReturnsCompanyID(t *testing.T) {
	s, st, d := newTestServer(t)
	rec := do(t, s.Routes(), http.MethodPost, "/webhook/enrich", `{"domain":"acme.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "acme.com", body["domain"])
	require.NotEmpty(t, body["company_id"])

	c, err := st.GetCompanyByDomain(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, body["company_id"])
	assert.Equal(t, "webhook", c.SourceTag)

	require.Len(t, d.reqs, 1)
	assert.Equal(t, pipeline.DiscoverRequest{Domain: "acme.com", SourceTag: "webhook"}, d.reqs[0])
	assert.Equal(t, []string{c.ID}, d.enriched)
}

func TestEnrichWebhook_EnrichErrorStillAccepted(t *testing.T) {
	s, _, d := newTestServer(t)
	d.err = errors.New("adapters down")
	rec := do(t, s.Routes(), http.MethodPost, "/webhook/enrich", `{"domain":"acme.com"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, d.enriched, 1)
}

func TestEnrichWebhook_DuplicateConflict(t *testing.T) {
	s, st, d := newTestServer(t)
	c, err := st.CreateCompany(context.Background(), model.Company{Domain: "acme.com", Name: "Acme"})
	require.NoError(t, err)

	rec := do(t, s.Routes(), http.MethodPost, "/webhook/enrich", `{"domain":"www.acme.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, c.ID, body["company_id"])
	assert.Empty(t, d.enriched)
}

func TestCompanyReads(t *testing.T) {
	s, st, _ := newTestServer(t)
	ctx := context.Background()
	c, err := st.CreateCompany(ctx, model.Company{Domain: "acme.com", Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, st.InsertRawRecord(ctx, &model.RawEnrichmentRecord{
		CompanyID: c.ID, Source: model.SourceTwitter, Status: model.RecordFailed, Error: "timeout",
	}))
	require.NoError(t, st.AppendEvent(ctx, &model.EventLogEntry{CompanyID: c.ID, Type: model.EventDiscovery}))
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "acme.com", list[0].Domain)

	rec = do(t, h, http.MethodGet, "/companies/"+c.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/companies/"+c.ID+"/raw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []model.RawEnrichmentRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "timeout", recs[0].Error)

	rec = do(t, h, http.MethodGet, "/companies/"+c.ID+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.EventLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, model.EventDiscovery, events[0].Type)
}

func TestCompanyReads_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()
	for _, path := range []string{"/companies/nope", "/companies/nope/raw", "/companies/nope/events"} {
		rec := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestListCompanies_EmptyAndFilters(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/companies?scored=false&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, q := range []string{"status=archived", "scored=maybe", "limit=-1", "min_score=x"} {
		rec := do(t, h, http.MethodGet, "/companies?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/companies", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
