// Package pipeline runs the lead lifecycle: discovery, adapter fan-out,
// attribute resolution and the delayed hand-off to scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/metrics"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/source"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
)

var (
	// ErrDuplicate is returned by Discover when the domain is already known.
	ErrDuplicate = eris.New("pipeline: company already exists")
	// ErrNoAdapters is returned when no adapter can run.
	ErrNoAdapters = eris.New("pipeline: no adapter is ready")
	// ErrAllSourcesFailed is returned when every adapter failed in one attempt.
	ErrAllSourcesFailed = eris.New("pipeline: every source failed")
)

const defaultAdapterTimeout = 20 * time.Second

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAdapterTimeout sets the deadline applied to each adapter call.
func WithAdapterTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.adapterTimeout = d
		}
	}
}

// WithConcurrency caps how many adapters run at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithScoringDelay sets how long after enrichment the scoring task is due.
func WithScoringDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.scoringDelay = d
		}
	}
}

// WithPreflight replaces the readiness check run before each enrichment.
func WithPreflight(fn func(ctx context.Context) error) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.preflight = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline orchestrates discovery and enrichment.
type Pipeline struct {
	store    store.Store
	recorder *audit.Recorder
	adapters []source.Adapter

	adapterTimeout time.Duration
	concurrency    int
	scoringDelay   time.Duration
	preflight      func(ctx context.Context) error
	now            func() time.Time
}

// New creates a Pipeline over the given adapters.
func New(st store.Store, rec *audit.Recorder, adapters []source.Adapter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:          st,
		recorder:       rec,
		adapters:       adapters,
		adapterTimeout: defaultAdapterTimeout,
		concurrency:    len(adapters),
		now:            func() time.Time { return time.Now().UTC() },
	}
	p.preflight = p.anyReady
	for _, o := range opts {
		o(p)
	}
	if p.concurrency <= 0 {
		p.concurrency = 1
	}
	return p
}

func (p *Pipeline) anyReady(context.Context) error {
	if len(p.adapters) == 0 {
		return eris.Wrap(ErrNoAdapters, "no adapters configured")
	}
	var last error
	for _, a := range p.adapters {
		err := source.Ready(a)
		if err == nil {
			return nil
		}
		last = err
	}
	return eris.Wrapf(ErrNoAdapters, "%v", last)
}

// DiscoverRequest is an external request to track and enrich a domain.
type DiscoverRequest struct {
	Domain    string `json:"domain"`
	Name      string `json:"name,omitempty"`
	SourceTag string `json:"source,omitempty"`
}

// Outcome is the settled result of one adapter call.
type Outcome struct {
	Source  model.SourceID
	Payload model.SourcePayload
	Err     error
	Elapsed time.Duration
}

// EnrichmentReport summarizes one enrichment attempt.
type EnrichmentReport struct {
	CompanyID string                    `json:"company_id"`
	Succeeded []model.SourceID          `json:"succeeded"`
	Failed    map[model.SourceID]string `json:"failed"`
	Fields    []string                  `json:"fields"`
	ScoreTask *model.Task               `json:"score_task,omitempty"`
}

// Discover creates a company for a new domain and enriches it. A known
// domain is rejected with ErrDuplicate and the existing company ID; nothing
// is written in that case. The company ID is returned whenever the company
// exists, even if enrichment failed.
func (p *Pipeline) Discover(ctx context.Context, req DiscoverRequest) (string, error) {
	id, err := p.Create(ctx, req)
	if err != nil {
		return id, err
	}
	if _, err := p.Enrich(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}

// Create normalizes the domain, rejects known domains with ErrDuplicate and
// the existing company ID, then stores the company and audits the discovery.
// It does not enrich; callers follow up with Enrich.
func (p *Pipeline) Create(ctx context.Context, req DiscoverRequest) (string, error) {
	domain, err := model.NormalizeDomain(req.Domain)
	if err != nil {
		return "", err
	}

	existing, err := p.store.GetCompanyByDomain(ctx, domain)
	switch {
	case err == nil:
		return existing.ID, eris.Wrapf(ErrDuplicate, "%s", domain)
	case !errors.Is(err, store.ErrNotFound):
		return "", eris.Wrap(err, "pipeline: look up domain")
	}

	name := req.Name
	if name == "" {
		name = model.DisplayNameFromDomain(domain)
	}
	c, err := p.store.CreateCompany(ctx, model.Company{Domain: domain, Name: name, SourceTag: req.SourceTag})
	if errors.Is(err, store.ErrDuplicateDomain) {
		// Lost a race with a concurrent request for the same domain.
		if other, gerr := p.store.GetCompanyByDomain(ctx, domain); gerr == nil {
			return other.ID, eris.Wrapf(ErrDuplicate, "%s", domain)
		}
		return "", eris.Wrapf(ErrDuplicate, "%s", domain)
	}
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create company")
	}

	zap.L().Info("pipeline: company discovered",
		zap.String("company_id", c.ID),
		zap.String("domain", domain),
		zap.String("source_tag", req.SourceTag),
	)
	p.record(ctx, c.ID, model.EventDiscovery, fmt.Sprintf("Discovered %s", domain), map[string]string{
		"domain":     domain,
		"source_tag": req.SourceTag,
	})
	return c.ID, nil
}

// Enrich runs every adapter for an existing company, stores one raw record
// per adapter, resolves attributes and schedules scoring. It may be called
// again for the same company; each call adds a fresh set of raw records.
func (p *Pipeline) Enrich(ctx context.Context, companyID string) (*EnrichmentReport, error) {
	c, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load company")
	}

	if err := p.preflight(ctx); err != nil {
		return nil, p.fail(ctx, companyID, err)
	}

	log := zap.L().With(zap.String("company_id", companyID), zap.String("domain", c.Domain))
	log.Info("pipeline: enrichment started", zap.Int("adapters", len(p.adapters)))

	report := &EnrichmentReport{CompanyID: companyID, Failed: map[model.SourceID]string{}}
	payloads := make(map[model.SourceID]model.SourcePayload, len(p.adapters))

	var writeErr error
	for o := range p.fanOut(ctx, source.NewQuery(c.Domain, c.Name)) {
		metrics.ObserveFetch(string(o.Source), o.Err, o.Elapsed)

		rec := p.rawRecord(companyID, o)
		if rec.Status == model.RecordSuccess {
			report.Succeeded = append(report.Succeeded, o.Source)
			payloads[o.Source] = o.Payload
		} else {
			report.Failed[o.Source] = rec.Error
			log.Debug("pipeline: source failed", zap.String("source", string(o.Source)), zap.String("error", rec.Error))
		}

		// Keep draining after a write failure so every adapter goroutine exits.
		if writeErr == nil {
			if err := p.store.InsertRawRecord(ctx, rec); err != nil {
				writeErr = eris.Wrapf(err, "pipeline: store %s record", o.Source)
			}
		}
	}
	sortSources(report.Succeeded)

	if writeErr != nil {
		return report, p.fail(ctx, companyID, writeErr)
	}
	if len(report.Succeeded) == 0 {
		return report, p.fail(ctx, companyID, eris.Wrapf(ErrAllSourcesFailed, "%d sources", len(report.Failed)))
	}

	now := p.now()
	patch := Resolve(payloads, now)
	report.Fields = patch.Fields()
	activity := model.Activity{
		Description: fmt.Sprintf("Enriched from %d of %d sources", len(report.Succeeded), len(p.adapters)),
		At:          now,
	}
	if err := p.store.UpdateCompanyAttributes(ctx, companyID, patch, activity); err != nil {
		return report, p.fail(ctx, companyID, eris.Wrap(err, "pipeline: update attributes"))
	}

	p.record(ctx, companyID, model.EventEnrichmentCompleted,
		fmt.Sprintf("%d of %d sources succeeded", len(report.Succeeded), len(p.adapters)),
		map[string]any{
			"success_count":  len(report.Succeeded),
			"failure_count":  len(report.Failed),
			"failed_sources": report.Failed,
			"fields":         report.Fields,
		})

	task, err := p.store.EnqueueTask(ctx, model.Task{
		Kind:      model.TaskScoreCompany,
		CompanyID: companyID,
		RunAt:     now.Add(p.scoringDelay),
	})
	if err != nil {
		return report, p.fail(ctx, companyID, eris.Wrap(err, "pipeline: schedule scoring"))
	}
	report.ScoreTask = task

	metrics.EnrichmentTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	log.Info("pipeline: enrichment completed",
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)),
		zap.Strings("fields", report.Fields),
		zap.Time("score_at", task.RunAt),
	)
	return report, nil
}

// fanOut runs every adapter concurrently and streams each outcome as it
// settles. The channel closes once all adapters have returned.
func (p *Pipeline) fanOut(ctx context.Context, q source.Query) <-chan Outcome {
	out := make(chan Outcome)
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	go func() {
		for _, a := range p.adapters {
			g.Go(func() error {
				out <- p.fetch(ctx, a, q)
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()
	return out
}

// fetch calls one adapter under its own deadline. Panics become failed
// outcomes.
func (p *Pipeline) fetch(ctx context.Context, a source.Adapter, q source.Query) (o Outcome) {
	o.Source = a.ID()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.Payload = nil
			o.Err = eris.Errorf("%s: adapter panic: %v", o.Source, r)
		}
		o.Elapsed = time.Since(start)
	}()

	if err := source.Ready(a); err != nil {
		o.Err = err
		return o
	}

	fctx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
	defer cancel()

	o.Payload, o.Err = a.Fetch(fctx, q)
	if o.Err == nil && o.Payload == nil {
		o.Err = eris.Errorf("%s: empty payload", o.Source)
	}
	return o
}

func (p *Pipeline) rawRecord(companyID string, o Outcome) *model.RawEnrichmentRecord {
	rec := &model.RawEnrichmentRecord{
		CompanyID: companyID,
		Source:    o.Source,
		Status:    model.RecordFailed,
		FetchedAt: p.now(),
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
		return rec
	}
	encoded, err := model.EncodePayload(o.Payload)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rec.Payload = encoded
	rec.Status = model.RecordSuccess
	return rec
}

// fail records an enrichment_error and returns err.
func (p *Pipeline) fail(ctx context.Context, companyID string, err error) error {
	metrics.EnrichmentTotal.WithLabelValues(metrics.StatusFailed).Inc()
	zap.L().Error("pipeline: enrichment failed", zap.String("company_id", companyID), zap.Error(err))
	p.record(ctx, companyID, model.EventEnrichmentError, err.Error(), nil)
	return err
}

// record appends an audit event. A failed append is logged by the recorder
// and does not abort the caller.
func (p *Pipeline) record(ctx context.Context, companyID string, t model.EventType, desc string, meta any) {
	if p.recorder == nil {
		return
	}
	_, _ = p.recorder.Record(ctx, companyID, t, desc, meta)
}

// ChangeStatus moves a company to a new lifecycle status.
func (p *Pipeline) ChangeStatus(ctx context.Context, companyID string, status model.Status) error {
	if !status.Valid() {
		return eris.Errorf("pipeline: invalid status %q", status)
	}
	c, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load company")
	}
	if c.Status == status {
		return nil
	}
	activity := model.Activity{Description: fmt.Sprintf("Status changed to %s", status), At: p.now()}
	if err := p.store.UpdateCompanyStatus(ctx, companyID, status, activity); err != nil {
		return eris.Wrap(err, "pipeline: update status")
	}
	p.record(ctx, companyID, model.EventStatusChanged, activity.Description, map[string]model.Status{
		"from": c.Status,
		"to":   status,
	})
	return nil
}

// Delete removes a company together with its raw records, events and tasks.
// The deletion is logged rather than audited since the event rows go with it.
func (p *Pipeline) Delete(ctx context.Context, companyID string) error {
	c, err := p.store.GetCompany(ctx, companyID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load company")
	}
	if err := p.store.DeleteCompany(ctx, companyID); err != nil {
		return eris.Wrap(err, "pipeline: delete company")
	}
	zap.L().Info("pipeline: company deleted",
		zap.String("company_id", companyID),
		zap.String("domain", c.Domain),
		zap.String("event", string(model.EventDeletion)),
	)
	return nil
}

func sortSources(ids []model.SourceID) {
	rank := make(map[model.SourceID]int, len(model.AllSources()))
	for i, s := range model.AllSources() {
		rank[s] = i
	}
	sort.Slice(ids, func(i, j int) bool { return rank[ids[i]] < rank[ids[j]] })
}
