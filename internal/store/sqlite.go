package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer keeps WAL mode free of SQLITE_BUSY under concurrent fan-out.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                TEXT PRIMARY KEY,
	domain            TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'new',
	source_tag        TEXT NOT NULL DEFAULT '',
	industry          TEXT NOT NULL DEFAULT '',
	location          TEXT NOT NULL DEFAULT '',
	founded_year      INTEGER NOT NULL DEFAULT 0,
	address           TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	employee_range    TEXT NOT NULL DEFAULT '',
	employee_midpoint INTEGER NOT NULL DEFAULT 0,
	revenue_band      TEXT NOT NULL DEFAULT '',
	lead_score        INTEGER,
	arpu_band         TEXT NOT NULL DEFAULT '',
	key_signals       TEXT NOT NULL DEFAULT '[]',
	score_rationale   TEXT NOT NULL DEFAULT '',
	score_factors     TEXT NOT NULL DEFAULT '[]',
	revenue_estimate  INTEGER,
	scored_at         DATETIME,
	last_activity     TEXT NOT NULL DEFAULT '',
	last_activity_at  DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);

CREATE TABLE IF NOT EXISTS raw_enrichment_records (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	source     TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_raw_records_company_source ON raw_enrichment_records(company_id, source);

CREATE TABLE IF NOT EXISTS event_log (
	id          TEXT PRIMARY KEY,
	company_id  TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	metadata    TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_event_log_company_created ON event_log(company_id, created_at);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	run_at     DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_due ON scheduled_tasks(status, run_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.StatusNew
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, domain, name, status, source_tag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Domain, c.Name, string(c.Status), c.SourceTag, now, now,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return nil, eris.Wrapf(ErrDuplicateDomain, "%s", c.Domain)
		}
		return nil, eris.Wrap(err, "sqlite: insert company")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	c, err := scanCompany(s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "company %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) GetCompanyByDomain(ctx context.Context, domain string) (*model.Company, error) {
	c, err := scanCompany(s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE domain = ?`, domain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "domain %s", domain)
		}
		return nil, eris.Wrapf(err, "sqlite: get company by domain %s", domain)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Scored != nil {
		if *filter.Scored {
			query += ` AND lead_score IS NOT NULL`
		} else {
			query += ` AND lead_score IS NULL`
		}
	}
	if filter.MinScore > 0 {
		query += ` AND lead_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY lead_score IS NULL, lead_score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func (s *SQLiteStore) UpdateCompanyAttributes(ctx context.Context, id string, patch model.AttributePatch, activity model.Activity) error {
	cols, vals := patchAssignments(patch)

	sets := make([]string, 0, len(cols)+3)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
	}
	at := activityTime(activity)
	sets = append(sets, "last_activity = ?", "last_activity_at = ?", "updated_at = ?")
	args := append(vals, activity.Description, at, at, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE companies SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company attributes %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) UpdateCompanyScore(ctx context.Context, id string, score model.ScoreUpdate, activity model.Activity) error {
	signals, err := marshalList(score.KeySignals)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal key signals")
	}
	factors, err := marshalList(score.Factors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal score factors")
	}
	scoredAt := score.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now().UTC()
	}
	at := activityTime(activity)

	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET lead_score = ?, arpu_band = ?, key_signals = ?, score_rationale = ?,
		score_factors = ?, revenue_estimate = ?, scored_at = ?,
		last_activity = ?, last_activity_at = ?, updated_at = ? WHERE id = ?`,
		score.LeadScore, score.ARPUBand, string(signals), score.Rationale,
		string(factors), score.RevenueEstimate, scoredAt.UTC(),
		activity.Description, at, at, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company score %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) UpdateCompanyStatus(ctx context.Context, id string, status model.Status, activity model.Activity) error {
	at := activityTime(activity)
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET status = ?, last_activity = ?, last_activity_at = ?, updated_at = ? WHERE id = ?`,
		string(status), activity.Description, at, at, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company status %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) DeleteCompany(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete company %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) InsertRawRecord(ctx context.Context, rec *model.RawEnrichmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_enrichment_records (id, company_id, source, payload, status, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CompanyID, string(rec.Source), rec.Payload, string(rec.Status), rec.Error, rec.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert raw record %s/%s", rec.CompanyID, rec.Source)
}

func (s *SQLiteStore) ListRawRecords(ctx context.Context, companyID string) ([]model.RawEnrichmentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, source, payload, status, error, fetched_at
		FROM raw_enrichment_records WHERE company_id = ? ORDER BY fetched_at, rowid`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list raw records %s", companyID)
	}
	defer rows.Close()

	var out []model.RawEnrichmentRecord
	for rows.Next() {
		var r model.RawEnrichmentRecord
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Source, &r.Payload, &r.Status, &r.Error, &r.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate raw records")
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, e *model.EventLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_log (id, company_id, type, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, string(e.Type), e.Description, metadata, e.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append event %s/%s", e.CompanyID, e.Type)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, companyID string) ([]model.EventLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, type, description, metadata, created_at
		FROM event_log WHERE company_id = ? ORDER BY created_at, rowid`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list events %s", companyID)
	}
	defer rows.Close()

	var out []model.EventLogEntry
	for rows.Next() {
		var e model.EventLogEntry
		var metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Type, &e.Description, &metadata, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		if metadata.Valid && metadata.String != "" {
			e.Metadata = []byte(metadata.String)
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate events")
}

func (s *SQLiteStore) EnqueueTask(ctx context.Context, t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if t.RunAt.IsZero() {
		t.RunAt = now
	}
	t.RunAt = t.RunAt.UTC()
	t.Status = model.TaskQueued
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_tasks (id, kind, company_id, run_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), t.CompanyID, t.RunAt, string(t.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: enqueue task %s", t.Kind)
	}
	return &t, nil
}

func (s *SQLiteStore) ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin claim")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, kind, company_id, run_at, status, attempts, last_error, created_at, updated_at
		FROM scheduled_tasks WHERE status = 'queued' AND run_at <= ? ORDER BY run_at LIMIT ?`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select due tasks")
	}
	var out []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Kind, &t.CompanyID, &t.RunAt, &t.Status, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate tasks")
	}

	for i := range out {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scheduled_tasks SET status = 'running', attempts = attempts + 1, updated_at = ? WHERE id = ?`,
			now.UTC(), out[i].ID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: claim task %s", out[i].ID)
		}
		out[i].Status = model.TaskRunning
		out[i].Attempts++
		out[i].UpdatedAt = now.UTC()
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit claim")
	}
	return out, nil
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = 'done', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete task %s", id)
	}
	return checkRowsAffected(res, "task", id)
}

func (s *SQLiteStore) FailTask(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = 'failed', last_error = ?, updated_at = ? WHERE id = ?`,
		reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail task %s", id)
	}
	return checkRowsAffected(res, "task", id)
}
