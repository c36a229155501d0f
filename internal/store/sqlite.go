package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/contact-enricher/internal/model"
)

// SQLiteStore implements LeadStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The prospects table may predate this tool, so uniqueness is added as an
// index rather than a column constraint.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
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
	exported     INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prospects_website_url ON prospects(website_url);
CREATE INDEX IF NOT EXISTS idx_prospects_priority ON prospects(priority);
CREATE INDEX IF NOT EXISTS idx_enrichment_runs_started_at ON enrichment_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, statuses []model.LeadStatus, limit int) ([]model.Lead, error) {
	values, unset := candidateFilter(statuses)

	var (
		conds []string
		args  []any
	)
	if len(values) > 0 {
		conds = append(conds, `priority IN (?`+strings.Repeat(`, ?`, len(values)-1)+`)`)
		for _, v := range values {
			args = append(args, v)
		}
	}
	if unset {
		conds = append(conds, `priority IS NULL OR priority = ''`)
	}

	query := `SELECT ` + leadColumns + ` FROM prospects WHERE ` + strings.Join(conds, ` OR `) + ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryLeads(ctx, "list candidates", query, args...)
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "list leads", `SELECT `+leadColumns+` FROM prospects ORDER BY id`)
}

func (s *SQLiteStore) ListHighValue(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "list high value",
		`SELECT `+leadColumns+` FROM prospects WHERE priority = ? ORDER BY id`,
		string(model.StatusHighValue),
	)
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, id int64, u model.ContactUpdate) error {
	if u.Empty() {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET
			contact_name  = COALESCE(?, contact_name),
			contact_email = COALESCE(?, contact_email),
			contact_phone = COALESCE(?, contact_phone),
			priority      = CASE WHEN ? THEN ? ELSE priority END
		 WHERE id = ?`,
		nullString(u.Name), nullString(u.Email), nullString(u.Phone),
		u.Promote, string(model.StatusHighValue), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact %d", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) (int64, error) {
	if strings.TrimSpace(lead.WebsiteURL) == "" {
		return 0, eris.New("sqlite: upsert lead: empty website url")
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO prospects (lead_name, website_url, priority) VALUES (?, ?, ?)
		 ON CONFLICT(website_url) DO UPDATE SET lead_name = excluded.lead_name
		 RETURNING id`,
		lead.Name, lead.WebsiteURL, nullString(model.StringPtr(string(lead.Status))),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert lead %s", lead.WebsiteURL)
	}
	return id, nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(priority, ''), COUNT(*) FROM prospects GROUP BY COALESCE(priority, '')`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[model.LeadStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.LeadStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by status iterate")
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (id, processed, high_value, partial, failed, skipped, store_errors, exported, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Processed, run.HighValue, run.Partial, run.Failed, run.Skipped, run.StoreErrors,
		run.Exported, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: record run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, since time.Time) ([]model.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, processed, high_value, partial, failed, skipped, store_errors, exported, started_at, finished_at
		 FROM enrichment_runs WHERE started_at >= ? ORDER BY started_at DESC`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(&r.ID, &r.Processed, &r.HighValue, &r.Partial, &r.Failed, &r.Skipped,
			&r.StoreErrors, &r.Exported, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) queryLeads(ctx context.Context, op, query string, args ...any) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

// helpers

func checkRowsAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "lead %d", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (model.Lead, error) {
	var (
		l                          model.Lead
		status, name, email, phone sql.NullString
	)
	err := row.Scan(&l.ID, &l.Name, &l.WebsiteURL, &status, &name, &email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return l, ErrNotFound
	}
	if err != nil {
		return l, eris.Wrap(err, "scan lead")
	}
	l.Status = model.LeadStatus(status.String)
	l.ContactName = name.String
	l.ContactEmail = email.String
	l.ContactPhone = phone.String
	if d, err := model.ExtractDomain(l.WebsiteURL); err == nil {
		l.Domain = d
	}
	return l, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
