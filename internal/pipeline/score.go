package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/metrics"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/reasoner"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/tasks"
)

var (
	// ErrNoJSON is returned when a response holds no JSON object.
	ErrNoJSON = eris.New("pipeline: no JSON object in response")
	// ErrScoringValidation is returned when a response is missing or
	// mistypes a required field.
	ErrScoringValidation = eris.New("pipeline: invalid scoring response")
)

const maxKeySignals = 5

const scoringPrompt = `Score this company as a sales lead on a 0-100 scale and estimate its
annual contract value band.

Return a JSON object with exactly these fields:
  "lead_score":      integer 0-100
  "arpu_band":       one of %s
  "key_signals":     up to 5 short strings
  "score_rationale": two or three sentences
  "score_factors":   array of {"factor": string, "impact": "positive"|"negative"|"neutral", "weight": number between 0.01 and 0.40}

Evidence (company record and every source that answered):
%s
`

// ScoreResult is a persisted score.
type ScoreResult struct {
	CompanyID string `json:"company_id"`
	model.ScoreUpdate
}

// Scorer turns stored evidence into a validated lead score.
type Scorer struct {
	store    store.Store
	recorder *audit.Recorder
	reasoner reasoner.Reasoner
	now      func() time.Time
}

// NewScorer creates a Scorer. A nil reasoner makes every attempt fail with
// reasoner.ErrNotConfigured, which is still audited.
func NewScorer(st store.Store, rec *audit.Recorder, r reasoner.Reasoner) *Scorer {
	return &Scorer{
		store:    st,
		recorder: rec,
		reasoner: r,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Score re-reads a company with its raw records, asks the reasoner for a
// score and persists the validated result. Any failure is recorded as a
// scoring_error and leaves the company's score untouched.
func (s *Scorer) Score(ctx context.Context, companyID string) (*ScoreResult, error) {
	c, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load company for scoring")
	}

	res, err := s.score(ctx, c)
	if err != nil {
		metrics.ScoringTotal.WithLabelValues(metrics.StatusFailed).Inc()
		zap.L().Error("pipeline: scoring failed", zap.String("company_id", companyID), zap.Error(err))
		if s.recorder != nil {
			_, _ = s.recorder.Record(ctx, companyID, model.EventScoringError, err.Error(), nil)
		}
		return nil, err
	}

	metrics.ScoringTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	metrics.LeadScore.Observe(float64(res.LeadScore))
	if s.recorder != nil {
		_, _ = s.recorder.Record(ctx, companyID, model.EventScoreUpdated,
			fmt.Sprintf("Scored %d (%s)", res.LeadScore, res.ARPUBand),
			map[string]any{"lead_score": res.LeadScore, "arpu_band": res.ARPUBand})
	}
	zap.L().Info("pipeline: company scored",
		zap.String("company_id", companyID),
		zap.Int("lead_score", res.LeadScore),
		zap.String("arpu_band", res.ARPUBand),
	)
	return res, nil
}

func (s *Scorer) score(ctx context.Context, c *model.Company) (*ScoreResult, error) {
	if s.reasoner == nil {
		return nil, eris.Wrap(reasoner.ErrNotConfigured, "pipeline: no scoring provider")
	}

	recs, err := s.store.ListRawRecords(ctx, c.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load raw records")
	}

	doc, err := buildEvidence(c, recs)
	if err != nil {
		return nil, err
	}

	text, err := s.reasoner.Complete(ctx, buildPrompt(doc))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reasoner")
	}

	upd, err := parseScore(text)
	if err != nil {
		return nil, err
	}
	upd.ScoredAt = s.now()

	activity := model.Activity{Description: fmt.Sprintf("Lead scored %d", upd.LeadScore), At: upd.ScoredAt}
	if err := s.store.UpdateCompanyScore(ctx, c.ID, *upd, activity); err != nil {
		return nil, eris.Wrap(err, "pipeline: persist score")
	}
	return &ScoreResult{CompanyID: c.ID, ScoreUpdate: *upd}, nil
}

type companyEvidence struct {
	Domain    string       `json:"domain"`
	Name      string       `json:"name"`
	Status    model.Status `json:"status"`
	SourceTag string       `json:"source_tag,omitempty"`
	model.Attributes
}

type evidenceDoc struct {
	Company       companyEvidence                        `json:"company"`
	Sources       map[model.SourceID]model.SourcePayload `json:"sources"`
	FailedSources []model.SourceID                       `json:"failed_sources,omitempty"`
}

// buildEvidence packages the company and its latest successful payload per
// source. Records that fail to decode are dropped.
func buildEvidence(c *model.Company, recs []model.RawEnrichmentRecord) ([]byte, error) {
	doc := evidenceDoc{
		Company: companyEvidence{
			Domain:     c.Domain,
			Name:       c.Name,
			Status:     c.Status,
			SourceTag:  c.SourceTag,
			Attributes: c.Attributes,
		},
		Sources: make(map[model.SourceID]model.SourcePayload),
	}

	// Records arrive oldest first, so later attempts overwrite earlier ones.
	failed := map[model.SourceID]bool{}
	for _, r := range recs {
		if r.Status != model.RecordSuccess {
			failed[r.Source] = true
			continue
		}
		p, err := model.DecodePayload(r.Payload)
		if err != nil {
			zap.L().Warn("pipeline: skip undecodable record",
				zap.String("record_id", r.ID),
				zap.String("source", string(r.Source)),
				zap.Error(err),
			)
			continue
		}
		doc.Sources[r.Source] = p
		delete(failed, r.Source)
	}
	for _, id := range model.AllSources() {
		if failed[id] {
			doc.FailedSources = append(doc.FailedSources, id)
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal evidence")
	}
	return b, nil
}

func buildPrompt(evidence []byte) string {
	bands := make([]string, 0, 4)
	for _, b := range model.RevenueBands() {
		bands = append(bands, fmt.Sprintf("%q", b))
	}
	return fmt.Sprintf(scoringPrompt, strings.Join(bands, ", "), evidence)
}

// firstJSONObject returns the first complete JSON object embedded in text.
func firstJSONObject(text string) (json.RawMessage, error) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			return raw, nil
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, ErrNoJSON
}

type rawFactor struct {
	Factor *string  `json:"factor"`
	Impact *string  `json:"impact"`
	Weight *float64 `json:"weight"`
}

type rawScore struct {
	LeadScore  *float64     `json:"lead_score"`
	ARPUBand   *string      `json:"arpu_band"`
	KeySignals *[]string    `json:"key_signals"`
	Rationale  *string      `json:"score_rationale"`
	Factors    *[]rawFactor `json:"score_factors"`
}

// parseScore extracts and validates a scoring result. The score is clamped
// to 0..100 and signals are cut to five; factor weights are kept as given.
func parseScore(text string) (*model.ScoreUpdate, error) {
	raw, err := firstJSONObject(text)
	if err != nil {
		return nil, err
	}

	var rs rawScore
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, eris.Wrapf(ErrScoringValidation, "%v", err)
	}

	switch {
	case rs.LeadScore == nil:
		return nil, eris.Wrap(ErrScoringValidation, "lead_score is missing")
	case rs.ARPUBand == nil:
		return nil, eris.Wrap(ErrScoringValidation, "arpu_band is missing")
	case !model.ValidBand(*rs.ARPUBand):
		return nil, eris.Wrapf(ErrScoringValidation, "arpu_band %q is not a known band", *rs.ARPUBand)
	case rs.KeySignals == nil:
		return nil, eris.Wrap(ErrScoringValidation, "key_signals is missing")
	case rs.Rationale == nil:
		return nil, eris.Wrap(ErrScoringValidation, "score_rationale is missing")
	case rs.Factors == nil || len(*rs.Factors) == 0:
		return nil, eris.Wrap(ErrScoringValidation, "score_factors is missing or empty")
	}

	factors := make([]model.ScoreFactor, 0, len(*rs.Factors))
	for i, f := range *rs.Factors {
		if f.Factor == nil || f.Impact == nil || f.Weight == nil {
			return nil, eris.Wrapf(ErrScoringValidation, "score_factors[%d] needs factor, impact and weight", i)
		}
		impact := model.Impact(strings.ToLower(*f.Impact))
		if !impact.Valid() {
			return nil, eris.Wrapf(ErrScoringValidation, "score_factors[%d] has impact %q", i, *f.Impact)
		}
		factors = append(factors, model.ScoreFactor{Factor: *f.Factor, Impact: impact, Weight: *f.Weight})
	}

	signals := *rs.KeySignals
	if len(signals) > maxKeySignals {
		signals = signals[:maxKeySignals]
	}

	// Clamp before converting: float-to-int is undefined out of range.
	score := int(math.Round(math.Max(0, math.Min(100, *rs.LeadScore))))

	estimate, _ := model.RevenueEstimate(*rs.ARPUBand)
	return &model.ScoreUpdate{
		LeadScore:       score,
		ARPUBand:        *rs.ARPUBand,
		KeySignals:      signals,
		Rationale:       *rs.Rationale,
		Factors:         factors,
		RevenueEstimate: estimate,
	}, nil
}

// HandleTask scores the company named by a score_company task.
func (s *Scorer) HandleTask(ctx context.Context, t model.Task) error {
	_, err := s.Score(ctx, t.CompanyID)
	return err
}

var _ tasks.Handler = (*Scorer)(nil)

// RescoreUnscored schedules an immediate scoring task for up to limit
// companies that have no score yet. It returns how many were scheduled.
func (s *Scorer) RescoreUnscored(ctx context.Context, limit int) (int, error) {
	unscored := false
	companies, err := s.store.ListCompanies(ctx, store.CompanyFilter{Scored: &unscored, Limit: limit})
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: list unscored companies")
	}
	now := s.now()
	for i, c := range companies {
		if _, err := s.store.EnqueueTask(ctx, model.Task{
			Kind:      model.TaskScoreCompany,
			CompanyID: c.ID,
			RunAt:     now,
		}); err != nil {
			return i, eris.Wrapf(err, "pipeline: schedule rescore for %s", c.ID)
		}
	}
	zap.L().Info("pipeline: rescore scheduled", zap.Int("companies", len(companies)))
	return len(companies), nil
}
