package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/db"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close is a no-op.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	lead_score        INTEGER CHECK (lead_score BETWEEN 0 AND 100),
	arpu_band         TEXT NOT NULL DEFAULT '',
	key_signals       JSONB NOT NULL DEFAULT '[]',
	score_rationale   TEXT NOT NULL DEFAULT '',
	score_factors     JSONB NOT NULL DEFAULT '[]',
	revenue_estimate  BIGINT,
	scored_at         TIMESTAMPTZ,
	last_activity     TEXT NOT NULL DEFAULT '',
	last_activity_at  TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_lead_score ON companies(lead_score DESC NULLS LAST);

CREATE TABLE IF NOT EXISTS raw_enrichment_records (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	source     TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_raw_records_company_source ON raw_enrichment_records(company_id, source);

CREATE TABLE IF NOT EXISTS event_log (
	seq         BIGINT GENERATED ALWAYS AS IDENTITY,
	id          TEXT PRIMARY KEY,
	company_id  TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_event_log_company_created ON event_log(company_id, created_at, seq);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	run_at     TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_due ON scheduled_tasks(status, run_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFoundTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.StatusNew
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, domain, name, status, source_tag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Domain, c.Name, string(c.Status), c.SourceTag, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrDuplicateDomain, "%s", c.Domain)
		}
		return nil, eris.Wrap(err, "postgres: insert company")
	}
	return &c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "company %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCompanyByDomain(ctx context.Context, domain string) (*model.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE domain = $1`, domain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "domain %s", domain)
		}
		return nil, eris.Wrapf(err, "postgres: get company by domain %s", domain)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Scored != nil {
		if *filter.Scored {
			query += ` AND lead_score IS NOT NULL`
		} else {
			query += ` AND lead_score IS NULL`
		}
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND lead_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY lead_score DESC NULLS LAST, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate companies")
}

func (s *PostgresStore) UpdateCompanyAttributes(ctx context.Context, id string, patch model.AttributePatch, activity model.Activity) error {
	cols, vals := patchAssignments(patch)

	sets := make([]string, 0, len(cols)+3)
	args := make([]any, 0, len(vals)+4)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, vals[i])
	}
	n := len(args)
	sets = append(sets,
		fmt.Sprintf("last_activity = $%d", n+1),
		fmt.Sprintf("last_activity_at = $%d", n+2),
		fmt.Sprintf("updated_at = $%d", n+2),
	)
	args = append(args, activity.Description, activityTime(activity), id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE companies SET %s WHERE id = $%d`, strings.Join(sets, ", "), n+3),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company attributes %s", id)
	}
	return notFoundTag(tag, "company", id)
}

func (s *PostgresStore) UpdateCompanyScore(ctx context.Context, id string, score model.ScoreUpdate, activity model.Activity) error {
	signals, err := marshalList(score.KeySignals)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal key signals")
	}
	factors, err := marshalList(score.Factors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal score factors")
	}
	scoredAt := score.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET lead_score = $1, arpu_band = $2, key_signals = $3, score_rationale = $4,
		score_factors = $5, revenue_estimate = $6, scored_at = $7,
		last_activity = $8, last_activity_at = $9, updated_at = $9 WHERE id = $10`,
		score.LeadScore, score.ARPUBand, signals, score.Rationale,
		factors, score.RevenueEstimate, scoredAt,
		activity.Description, activityTime(activity), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company score %s", id)
	}
	return notFoundTag(tag, "company", id)
}

func (s *PostgresStore) UpdateCompanyStatus(ctx context.Context, id string, status model.Status, activity model.Activity) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET status = $1, last_activity = $2, last_activity_at = $3, updated_at = $3 WHERE id = $4`,
		string(status), activity.Description, activityTime(activity), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company status %s", id)
	}
	return notFoundTag(tag, "company", id)
}

func (s *PostgresStore) DeleteCompany(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete company %s", id)
	}
	return notFoundTag(tag, "company", id)
}

func (s *PostgresStore) InsertRawRecord(ctx context.Context, rec *model.RawEnrichmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO raw_enrichment_records (id, company_id, source, payload, status, error, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CompanyID, string(rec.Source), rec.Payload, string(rec.Status), rec.Error, rec.FetchedAt,
	)
	return eris.Wrapf(err, "postgres: insert raw record %s/%s", rec.CompanyID, rec.Source)
}

func (s *PostgresStore) ListRawRecords(ctx context.Context, companyID string) ([]model.RawEnrichmentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, source, payload, status, error, fetched_at
		FROM raw_enrichment_records WHERE company_id = $1 ORDER BY fetched_at, source`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list raw records %s", companyID)
	}
	defer rows.Close()

	var out []model.RawEnrichmentRecord
	for rows.Next() {
		var r model.RawEnrichmentRecord
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Source, &r.Payload, &r.Status, &r.Error, &r.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate raw records")
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *model.EventLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO event_log (id, company_id, type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.CompanyID, string(e.Type), e.Description, metadata, e.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: append event %s/%s", e.CompanyID, e.Type)
}

func (s *PostgresStore) ListEvents(ctx context.Context, companyID string) ([]model.EventLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, type, description, metadata, created_at
		FROM event_log WHERE company_id = $1 ORDER BY created_at, seq`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list events %s", companyID)
	}
	defer rows.Close()

	var out []model.EventLogEntry
	for rows.Next() {
		var e model.EventLogEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Type, &e.Description, &metadata, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func (s *PostgresStore) EnqueueTask(ctx context.Context, t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if t.RunAt.IsZero() {
		t.RunAt = now
	}
	t.Status = model.TaskQueued
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scheduled_tasks (id, kind, company_id, run_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, string(t.Kind), t.CompanyID, t.RunAt.UTC(), string(t.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: enqueue task %s", t.Kind)
	}
	return &t, nil
}

// ClaimDueTasks locks up to limit queued tasks whose run_at has passed and
// marks them running. Concurrent workers skip rows another worker holds.
func (s *PostgresStore) ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 1
	}
	var out []model.Task
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id FROM scheduled_tasks
			WHERE status = 'queued' AND run_at <= $1
			ORDER BY run_at
			FOR UPDATE SKIP LOCKED
			LIMIT $2`,
			now.UTC(), limit,
		)
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range ids {
			var t model.Task
			err := tx.QueryRow(ctx,
				`UPDATE scheduled_tasks SET status = 'running', attempts = attempts + 1, updated_at = $1
				WHERE id = $2
				RETURNING id, kind, company_id, run_at, status, attempts, last_error, created_at, updated_at`,
				now.UTC(), id,
			).Scan(&t.ID, &t.Kind, &t.CompanyID, &t.RunAt, &t.Status, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim due tasks")
	}
	return out, nil
}

func (s *PostgresStore) CompleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_tasks SET status = 'done', updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete task %s", id)
	}
	return notFoundTag(tag, "task", id)
}

func (s *PostgresStore) FailTask(ctx context.Context, id string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_tasks SET status = 'failed', last_error = $1, updated_at = $2 WHERE id = $3`,
		reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail task %s", id)
	}
	return notFoundTag(tag, "task", id)
}
