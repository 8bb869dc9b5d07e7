package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/source"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
)

type fakeAdapter struct {
	id      model.SourceID
	payload model.SourcePayload
	err     error
	panics  bool
	delay   time.Duration
	calls   atomic.Int32
	lastQ   atomic.Value
}

func (f *fakeAdapter) ID() model.SourceID { return f.id }

func (f *fakeAdapter) Fetch(ctx context.Context, q source.Query) (model.SourcePayload, error) {
	f.calls.Add(1)
	f.lastQ.Store(q)
	if f.panics {
		panic("adapter exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.payload, f.err
}

// fakeAdapters returns one succeeding adapter per source, with overrides
// replacing the defaults.
func fakeAdapters(overrides ...*fakeAdapter) ([]source.Adapter, map[model.SourceID]*fakeAdapter) {
	byID := make(map[model.SourceID]*fakeAdapter)
	for _, id := range model.AllSources() {
		byID[id] = &fakeAdapter{id: id, payload: model.WebsiteContent{URL: "https://example.com/" + string(id)}}
	}
	for _, o := range overrides {
		byID[o.id] = o
	}
	out := make([]source.Adapter, 0, len(byID))
	for _, id := range model.AllSources() {
		out = append(out, byID[id])
	}
	return out, byID
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, st store.Store, adapters []source.Adapter, opts ...Option) *Pipeline {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithScoringDelay(5 * time.Second),
		WithAdapterTimeout(time.Second),
	}
	return New(st, audit.NewRecorder(st), adapters, append(base, opts...)...)
}

func eventTypes(t *testing.T, st store.Store, companyID string) []model.EventType {
	t.Helper()
	events, err := st.ListEvents(context.Background(), companyID)
	require.NoError(t, err)
	out := make([]model.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestDiscover_BrilliantDiamonds(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters(
		&fakeAdapter{id: model.SourceCompanyRegistry, payload: model.RegistryProfile{Results: []model.Item{{
			Title: "BRILLIANT DIAMONDS LTD",
			Text:  "Jewellery retailer founded in 2018 with 25-50 employees.",
		}}}},
		&fakeAdapter{id: model.SourceFunding, payload: model.FundingSummary{Summary: "Raised $2 million from angels."}},
	)
	p := newTestPipeline(t, st, adapters)

	id, err := p.Discover(context.Background(), DiscoverRequest{Domain: "https://www.BrilliantDiamonds.co.uk/", SourceTag: "webhook"})
	require.NoError(t, err)

	c, err := st.GetCompany(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "brilliantdiamonds.co.uk", c.Domain)
	assert.Equal(t, "Brilliantdiamonds", c.Name)
	assert.Equal(t, "webhook", c.SourceTag)
	assert.Equal(t, 2018, c.FoundedYear)
	assert.Equal(t, "25-50", c.EmployeeRange)
	assert.Equal(t, 37, c.EmployeeMidpoint)
	assert.Equal(t, model.BandLow, c.RevenueBand)
	assert.Equal(t, "Jewelry & Luxury", c.Industry)
	assert.Equal(t, "Enriched from 12 of 12 sources", c.LastActivity)
	assert.False(t, c.Scored())

	assert.Equal(t, []model.EventType{model.EventDiscovery, model.EventEnrichmentCompleted}, eventTypes(t, st, id))

	due, err := st.ClaimDueTasks(context.Background(), fixedNow.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, model.TaskScoreCompany, due[0].Kind)
	assert.Equal(t, id, due[0].CompanyID)
	assert.True(t, due[0].RunAt.Equal(fixedNow.Add(5*time.Second)))
}

func TestEnrich_TotalRecording(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters(
		&fakeAdapter{id: model.SourceTwitter, err: errors.New("rate limited")},
		&fakeAdapter{id: model.SourceReddit, panics: true},
		&fakeAdapter{id: model.SourceGitHub, payload: nil},
		&fakeAdapter{id: model.SourceYouTube, delay: 5 * time.Second},
	)
	adapters[len(adapters)-1] = source.Unavailable(model.SourceWikipedia, "no key")
	p := newTestPipeline(t, st, adapters, WithAdapterTimeout(50*time.Millisecond))

	id, err := p.Discover(context.Background(), DiscoverRequest{Domain: "acme.com"})
	require.NoError(t, err)

	recs, err := st.ListRawRecords(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, recs, len(model.AllSources()))

	status := map[model.SourceID]model.RecordStatus{}
	errText := map[model.SourceID]string{}
	for _, r := range recs {
		status[r.Source] = r.Status
		errText[r.Source] = r.Error
		if r.Status == model.RecordSuccess {
			assert.NotEmpty(t, r.Payload)
		} else {
			assert.Empty(t, r.Payload)
		}
	}
	assert.Len(t, status, len(model.AllSources()))
	assert.Equal(t, model.RecordSuccess, status[model.SourceWebsite])
	assert.Contains(t, errText[model.SourceTwitter], "rate limited")
	assert.Contains(t, errText[model.SourceReddit], "panic")
	assert.Contains(t, errText[model.SourceGitHub], "empty payload")
	assert.Contains(t, errText[model.SourceYouTube], "deadline")
	assert.Contains(t, errText[model.SourceWikipedia], "not configured")

	// The unavailable adapter never reaches the network.
	assert.Zero(t, byID[model.SourceWikipedia].calls.Load())

	events, err := st.ListEvents(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	var meta struct {
		SuccessCount  int               `json:"success_count"`
		FailureCount  int               `json:"failure_count"`
		FailedSources map[string]string `json:"failed_sources"`
	}
	require.NoError(t, json.Unmarshal(events[1].Metadata, &meta))
	assert.Equal(t, 7, meta.SuccessCount)
	assert.Equal(t, 5, meta.FailureCount)
	assert.Len(t, meta.FailedSources, 5)
	assert.Contains(t, meta.FailedSources, "twitter")
}

func TestDiscover_DuplicateIsRejected(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters()
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Discover(ctx, DiscoverRequest{Domain: "acme.com"})
	require.NoError(t, err)

	recsBefore, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	eventsBefore := eventTypes(t, st, id)

	again, err := p.Discover(ctx, DiscoverRequest{Domain: "https://www.acme.com/pricing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, id, again)

	recsAfter, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recsAfter, len(recsBefore))
	assert.Equal(t, eventsBefore, eventTypes(t, st, id))
	assert.Equal(t, int32(1), byID[model.SourceWebsite].calls.Load())

	companies, err := st.ListCompanies(ctx, store.CompanyFilter{})
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestCreate_DoesNotEnrich(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters()
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Create(ctx, DiscoverRequest{Domain: "https://www.Acme.com/", SourceTag: "webhook"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	c, err := st.GetCompany(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "acme.com", c.Domain)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, "webhook", c.SourceTag)

	recs, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, []model.EventType{model.EventDiscovery}, eventTypes(t, st, id))
	assert.Equal(t, int32(0), byID[model.SourceWebsite].calls.Load())

	again, err := p.Create(ctx, DiscoverRequest{Domain: "acme.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, id, again)

	_, err = p.Enrich(ctx, id)
	require.NoError(t, err)
	recs, err = st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recs, len(adapters))
}

func TestDiscover_InvalidDomain(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters()
	_, err := newTestPipeline(t, st, adapters).Discover(context.Background(), DiscoverRequest{Domain: "not a domain"})
	assert.ErrorIs(t, err, model.ErrInvalidDomain)
}

func TestEnrich_RetryAddsRecords(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters()
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Discover(ctx, DiscoverRequest{Domain: "acme.com", Name: "Acme"})
	require.NoError(t, err)

	report, err := p.Enrich(ctx, id)
	require.NoError(t, err)
	assert.Len(t, report.Succeeded, len(model.AllSources()))
	assert.Empty(t, report.Failed)
	assert.Equal(t, model.AllSources(), report.Succeeded)

	recs, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recs, 2*len(model.AllSources()))

	companies, err := st.ListCompanies(ctx, store.CompanyFilter{})
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestEnrich_QueryUsesDisplayName(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters()
	p := newTestPipeline(t, st, adapters)

	_, err := p.Discover(context.Background(), DiscoverRequest{Domain: "acme.com", Name: "Acme Rockets"})
	require.NoError(t, err)

	q, ok := byID[model.SourceLinkedIn].lastQ.Load().(source.Query)
	require.True(t, ok)
	assert.Equal(t, "acme.com", q.Domain)
	assert.Equal(t, "Acme Rockets", q.SearchTerm)
}

func TestEnrich_PreflightFailure(t *testing.T) {
	st := newTestStore(t)
	adapters := make([]source.Adapter, 0, len(model.AllSources()))
	for _, id := range model.AllSources() {
		adapters = append(adapters, source.Unavailable(id, "no key"))
	}
	p := newTestPipeline(t, st, adapters)

	id, err := p.Discover(context.Background(), DiscoverRequest{Domain: "acme.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAdapters)
	require.NotEmpty(t, id)

	recs, err := st.ListRawRecords(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, []model.EventType{model.EventDiscovery, model.EventEnrichmentError}, eventTypes(t, st, id))
}

func TestEnrich_CustomPreflight(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters()
	p := newTestPipeline(t, st, adapters, WithPreflight(func(context.Context) error {
		return source.ErrNotConfigured
	}))

	_, err := p.Discover(context.Background(), DiscoverRequest{Domain: "acme.com"})
	assert.ErrorIs(t, err, source.ErrNotConfigured)
	assert.Zero(t, byID[model.SourceWebsite].calls.Load())
}

func TestEnrich_AllSourcesFail(t *testing.T) {
	st := newTestStore(t)
	var overrides []*fakeAdapter
	for _, id := range model.AllSources() {
		overrides = append(overrides, &fakeAdapter{id: id, err: errors.New("backend unreachable")})
	}
	adapters, _ := fakeAdapters(overrides...)
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Discover(ctx, DiscoverRequest{Domain: "acme.com"})
	assert.ErrorIs(t, err, ErrAllSourcesFailed)

	recs, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recs, len(model.AllSources()))
	assert.Equal(t, []model.EventType{model.EventDiscovery, model.EventEnrichmentError}, eventTypes(t, st, id))

	due, err := st.ClaimDueTasks(ctx, fixedNow.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestEnrich_UnknownCompany(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters()
	_, err := newTestPipeline(t, st, adapters).Enrich(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnrich_ConcurrencyLimitStillRunsAll(t *testing.T) {
	st := newTestStore(t)
	adapters, byID := fakeAdapters()
	p := newTestPipeline(t, st, adapters, WithConcurrency(2))

	_, err := p.Discover(context.Background(), DiscoverRequest{Domain: "acme.com"})
	require.NoError(t, err)
	for _, a := range byID {
		assert.Equal(t, int32(1), a.calls.Load(), a.id)
	}
}

func TestChangeStatus(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters()
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Discover(ctx, DiscoverRequest{Domain: "acme.com"})
	require.NoError(t, err)

	require.NoError(t, p.ChangeStatus(ctx, id, model.StatusQualified))
	c, err := st.GetCompany(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQualified, c.Status)

	events, err := st.ListEvents(ctx, id)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, model.EventStatusChanged, last.Type)
	assert.JSONEq(t, `{"from":"new","to":"qualified"}`, string(last.Metadata))

	// Same status is a no-op.
	require.NoError(t, p.ChangeStatus(ctx, id, model.StatusQualified))
	assert.Len(t, eventTypes(t, st, id), len(events))

	assert.Error(t, p.ChangeStatus(ctx, id, "archived"))
}

func TestDelete_Cascades(t *testing.T) {
	st := newTestStore(t)
	adapters, _ := fakeAdapters()
	p := newTestPipeline(t, st, adapters)
	ctx := context.Background()

	id, err := p.Discover(ctx, DiscoverRequest{Domain: "acme.com"})
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx, id))

	_, err = st.GetCompany(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	recs, err := st.ListRawRecords(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, eventTypes(t, st, id))

	assert.ErrorIs(t, p.Delete(ctx, id), store.ErrNotFound)
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, nil, nil)
	assert.Equal(t, 1, p.concurrency)
	assert.Equal(t, defaultAdapterTimeout, p.adapterTimeout)
	assert.ErrorIs(t, p.preflight(context.Background()), ErrNoAdapters)
}
