package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-enricher/internal/db"
	"github.com/sells-group/contact-enricher/internal/model"
)

// PostgresStore implements LeadStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// updateContactSQL is the single statement behind UpdateContact: nil fields
// keep their stored value and promotion is a flag, never spliced SQL.
const updateContactSQL = `UPDATE prospects SET
	contact_name  = COALESCE($1, contact_name),
	contact_email = COALESCE($2, contact_email),
	contact_phone = COALESCE($3, contact_phone),
	priority      = CASE WHEN $4::boolean THEN $5 ELSE priority END
 WHERE id = $6`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id            BIGSERIAL PRIMARY KEY,
	lead_name     TEXT NOT NULL DEFAULT '',
	website_url   TEXT NOT NULL,
	priority      TEXT,
	contact_name  TEXT,
	contact_email TEXT,
	contact_phone TEXT
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id           TEXT PRIMARY KEY,
	processed    INTEGER NOT NULL DEFAULT 0,
	high_value   INTEGER NOT NULL DEFAULT 0,
	partial      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	store_errors INTEGER NOT NULL DEFAULT 0,
	exported     BOOLEAN NOT NULL DEFAULT false,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prospects_website_url ON prospects(website_url);
CREATE INDEX IF NOT EXISTS idx_prospects_priority ON prospects(priority);
CREATE INDEX IF NOT EXISTS idx_enrichment_runs_started_at ON enrichment_runs(started_at);
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

func (s *PostgresStore) ListCandidates(ctx context.Context, statuses []model.LeadStatus, limit int) ([]model.Lead, error) {
	values, unset := candidateFilter(statuses)

	query := `SELECT ` + leadColumns + ` FROM prospects WHERE priority = ANY($1)`
	if unset {
		query += ` OR priority IS NULL OR priority = ''`
	}
	query += ` ORDER BY id`
	args := []any{values}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryLeads(ctx, "list candidates", query, args...)
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "list leads", `SELECT `+leadColumns+` FROM prospects ORDER BY id`)
}

func (s *PostgresStore) ListHighValue(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "list high value",
		`SELECT `+leadColumns+` FROM prospects WHERE priority = $1 ORDER BY id`,
		string(model.StatusHighValue),
	)
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id int64, u model.ContactUpdate) error {
	if u.Empty() {
		return nil
	}
	tag, err := s.pool.Exec(ctx, updateContactSQL,
		u.Name, u.Email, u.Phone, u.Promote, string(model.StatusHighValue), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %d", id)
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) (int64, error) {
	if strings.TrimSpace(lead.WebsiteURL) == "" {
		return 0, eris.New("postgres: upsert lead: empty website url")
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO prospects (lead_name, website_url, priority) VALUES ($1, $2, $3)
		 ON CONFLICT (website_url) DO UPDATE SET lead_name = EXCLUDED.lead_name
		 RETURNING id`,
		lead.Name, lead.WebsiteURL, model.StringPtr(string(lead.Status)),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert lead %s", lead.WebsiteURL)
	}
	return id, nil
}

// ImportLeads bulk-loads leads with the same conflict rules as UpsertLead.
// Later duplicates of a website URL within leads win.
func (s *PostgresStore) ImportLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		if strings.TrimSpace(l.WebsiteURL) == "" {
			continue
		}
		rows = append(rows, []any{l.WebsiteURL, l.Name, model.StringPtr(string(l.Status))})
	}

	n, err := prospectImport.Run(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import leads")
	}
	return n, nil
}

var prospectImport = db.Upsert{
	Table:   "prospects",
	Columns: []string{"website_url", "lead_name", "priority"},
	Key:     "website_url",
	Refresh: []string{"lead_name"},
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(priority, ''), COUNT(*) FROM prospects GROUP BY COALESCE(priority, '')`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.LeadStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.LeadStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by status iterate")
}

func (s *PostgresStore) RecordRun(ctx context.Context, run model.RunRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_runs (id, processed, high_value, partial, failed, skipped, store_errors, exported, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Processed, run.HighValue, run.Partial, run.Failed, run.Skipped, run.StoreErrors,
		run.Exported, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: record run %s", run.ID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, since time.Time) ([]model.RunRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, processed, high_value, partial, failed, skipped, store_errors, exported, started_at, finished_at
		 FROM enrichment_runs WHERE started_at >= $1 ORDER BY started_at DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(&r.ID, &r.Processed, &r.HighValue, &r.Partial, &r.Failed, &r.Skipped,
			&r.StoreErrors, &r.Exported, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) queryLeads(ctx context.Context, op, query string, args ...any) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var (
			l                          model.Lead
			status, name, email, phone *string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.WebsiteURL, &status, &name, &email, &phone); err != nil {
			return nil, eris.Wrapf(err, "postgres: %s scan", op)
		}
		l.Status = model.LeadStatus(deref(status))
		l.ContactName = deref(name)
		l.ContactEmail = deref(email)
		l.ContactPhone = deref(phone)
		if d, err := model.ExtractDomain(l.WebsiteURL); err == nil {
			l.Domain = d
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
