// Package store persists leads, their contact fields and enrichment run
// summaries.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-enricher/internal/model"
)

// ErrNotFound is wrapped by UpdateContact when no lead has the given id.
var ErrNotFound = eris.New("lead not found")

// LeadStore defines the persistence interface for the enrichment runner,
// the exporters and the CLI.
type LeadStore interface {
	// ListCandidates returns leads whose status is in statuses, ordered by
	// id. StatusUnset selects leads with no status. limit <= 0 means all.
	ListCandidates(ctx context.Context, statuses []model.LeadStatus, limit int) ([]model.Lead, error)
	// ListLeads returns every lead ordered by id.
	ListLeads(ctx context.Context) ([]model.Lead, error)
	// ListHighValue returns promoted leads ordered by id.
	ListHighValue(ctx context.Context) ([]model.Lead, error)
	// UpdateContact applies u to lead id and commits immediately.
	UpdateContact(ctx context.Context, id int64, u model.ContactUpdate) error
	// UpsertLead inserts a lead keyed by website URL. On conflict only the
	// name is refreshed; status and contact fields are preserved.
	UpsertLead(ctx context.Context, lead model.Lead) (int64, error)
	// CountByStatus returns the number of leads per status.
	CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error)

	// Runs
	RecordRun(ctx context.Context, run model.RunRecord) error
	ListRuns(ctx context.Context, since time.Time) ([]model.RunRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// BulkImporter is implemented by stores that can load many leads at once.
type BulkImporter interface {
	ImportLeads(ctx context.Context, leads []model.Lead) (int64, error)
}

// Open returns the store selected by driver ("sqlite" or "postgres").
// poolCfg only applies to Postgres and may be nil.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (LeadStore, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// candidateFilter splits statuses into explicit values and whether unset
// leads are wanted.
func candidateFilter(statuses []model.LeadStatus) (values []string, unset bool) {
	if len(statuses) == 0 {
		statuses = model.DefaultCandidateStatuses()
	}
	for _, s := range statuses {
		if s == model.StatusUnset {
			unset = true
			continue
		}
		values = append(values, string(s))
	}
	return values, unset
}

// leadColumns is the select list shared by every lead query.
const leadColumns = `id, lead_name, website_url, priority, contact_name, contact_email, contact_phone`
