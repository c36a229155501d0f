// Package monitoring exposes Prometheus metrics for provider calls and
// batch runs, and raises webhook alerts when enrichment quality drops.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-enricher/internal/model"
)

// UnsetStatusLabel is the snapshot key for leads without a status.
const UnsetStatusLabel = "UNSET"

// Snapshot holds a point-in-time view of the lead pipeline.
type Snapshot struct {
	// Lead counts across the whole store.
	LeadsByStatus map[string]int `json:"leads_by_status"`
	LeadsTotal    int            `json:"leads_total"`

	// Run metrics (within lookback window).
	Runs        int     `json:"runs"`
	Processed   int     `json:"processed"`
	HighValue   int     `json:"high_value"`
	Partial     int     `json:"partial"`
	Failed      int     `json:"failed"`
	StoreErrors int     `json:"store_errors"`
	HitRate     float64 `json:"hit_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StatsSource abstracts the store methods needed by the collector.
type StatsSource interface {
	CountByStatus(ctx context.Context) (map[model.LeadStatus]int, error)
	ListRuns(ctx context.Context, since time.Time) ([]model.RunRecord, error)
}

// Collector gathers snapshots from the lead store.
type Collector struct {
	src StatsSource
	now func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(src StatsSource) *Collector {
	return &Collector{src: src, now: time.Now}
}

// Collect gathers lead counts and the run totals of the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LeadsByStatus: make(map[string]int),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	counts, err := c.src.CountByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by status")
	}
	for status, n := range counts {
		label := string(status)
		if status == model.StatusUnset {
			label = UnsetStatusLabel
		}
		snap.LeadsByStatus[label] += n
		snap.LeadsTotal += n
	}

	if lookbackHours <= 0 {
		return snap, nil
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.src.ListRuns(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Runs = len(runs)
	for _, r := range runs {
		snap.Processed += r.Processed
		snap.HighValue += r.HighValue
		snap.Partial += r.Partial
		snap.Failed += r.Failed
		snap.StoreErrors += r.StoreErrors
	}
	if snap.Processed > 0 {
		snap.HitRate = float64(snap.HighValue) / float64(snap.Processed)
	}

	return snap, nil
}
