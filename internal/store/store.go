package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicateDomain is returned when a company with the same domain exists.
	ErrDuplicateDomain = eris.New("store: duplicate domain")
)

// CompanyFilter specifies criteria for listing companies.
type CompanyFilter struct {
	Status   model.Status `json:"status,omitempty"`
	Scored   *bool        `json:"scored,omitempty"`
	MinScore int          `json:"min_score,omitempty"`
	Limit    int          `json:"limit,omitempty"`
	Offset   int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, c model.Company) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	GetCompanyByDomain(ctx context.Context, domain string) (*model.Company, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)
	UpdateCompanyAttributes(ctx context.Context, id string, patch model.AttributePatch, activity model.Activity) error
	UpdateCompanyScore(ctx context.Context, id string, score model.ScoreUpdate, activity model.Activity) error
	UpdateCompanyStatus(ctx context.Context, id string, status model.Status, activity model.Activity) error
	DeleteCompany(ctx context.Context, id string) error

	// Raw enrichment records
	InsertRawRecord(ctx context.Context, rec *model.RawEnrichmentRecord) error
	ListRawRecords(ctx context.Context, companyID string) ([]model.RawEnrichmentRecord, error)

	// Event log
	AppendEvent(ctx context.Context, e *model.EventLogEntry) error
	ListEvents(ctx context.Context, companyID string) ([]model.EventLogEntry, error)

	// Scheduled tasks
	EnqueueTask(ctx context.Context, t model.Task) (*model.Task, error)
	ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]model.Task, error)
	CompleteTask(ctx context.Context, id string) error
	FailTask(ctx context.Context, id string, reason string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

const companyColumns = `id, domain, name, status, source_tag,
	industry, location, founded_year, address, description, employee_range, employee_midpoint, revenue_band,
	lead_score, arpu_band, key_signals, score_rationale, score_factors, revenue_estimate, scored_at,
	last_activity, last_activity_at, created_at, updated_at`

// checkRowsAffected returns ErrNotFound when an update or delete touched no row.
func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

// patchAssignments returns column/value pairs for the set fields of a patch.
func patchAssignments(p model.AttributePatch) ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if p.Industry != nil {
		add("industry", *p.Industry)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.FoundedYear != nil {
		add("founded_year", *p.FoundedYear)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.EmployeeRange != nil {
		add("employee_range", *p.EmployeeRange)
	}
	if p.EmployeeMidpoint != nil {
		add("employee_midpoint", *p.EmployeeMidpoint)
	}
	if p.RevenueBand != nil {
		add("revenue_band", *p.RevenueBand)
	}
	return cols, vals
}

func activityTime(a model.Activity) time.Time {
	if a.At.IsZero() {
		return time.Now().UTC()
	}
	return a.At.UTC()
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*model.Company, error) {
	var c model.Company
	var signalsJSON, factorsJSON []byte
	if err := row.Scan(
		&c.ID, &c.Domain, &c.Name, &c.Status, &c.SourceTag,
		&c.Industry, &c.Location, &c.FoundedYear, &c.Address, &c.Description,
		&c.EmployeeRange, &c.EmployeeMidpoint, &c.RevenueBand,
		&c.LeadScore, &c.ARPUBand, &signalsJSON, &c.ScoreRationale, &factorsJSON,
		&c.RevenueEstimate, &c.ScoredAt,
		&c.LastActivity, &c.LastActivityAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalList(signalsJSON, &c.KeySignals); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal key signals")
	}
	if err := unmarshalList(factorsJSON, &c.ScoreFactors); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal score factors")
	}
	return &c, nil
}

func unmarshalList[T any](raw []byte, out *[]T) error {
	if len(raw) == 0 {
		return nil
	}
	var v []T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if len(v) > 0 {
		*out = v
	}
	return nil
}

func marshalList[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}
