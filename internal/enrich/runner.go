// Package enrich drives the waterfall over a batch of leads, persists what
// it finds and triggers the export once enough leads are promoted.
package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/waterfall"
)

// DefaultThreshold is the number of promoted leads that triggers the export.
const DefaultThreshold = 15

// Lead outcomes reported to the LeadCounter.
const (
	OutcomeHighValue  = "high_value"
	OutcomePartial    = "partial"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeStoreError = "store_error"
)

// Enricher resolves contacts for one domain.
type Enricher interface {
	Enrich(ctx context.Context, domain string) *waterfall.Result
}

// Store is the subset of the lead store the runner writes to.
type Store interface {
	UpdateContact(ctx context.Context, id int64, u model.ContactUpdate) error
}

// RunRecorder is implemented by stores that keep run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run model.RunRecord) error
}

// Exporter is triggered once the success threshold is reached.
type Exporter interface {
	Export(ctx context.Context) error
}

// LeadCounter counts lead outcomes.
type LeadCounter interface {
	IncLead(outcome string)
}

// Summary describes one batch run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Processed   int       `json:"processed"`
	Skipped     int       `json:"skipped"`
	HighValue   int       `json:"high_value"`
	Partial     int       `json:"partial"`
	Failed      int       `json:"failed"`
	StoreErrors int       `json:"store_errors"`
	Exported    bool      `json:"exported"`
	ExportErr   string    `json:"export_error,omitempty"`
	Halted      bool      `json:"halted"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (s *Summary) record() model.RunRecord {
	return model.RunRecord{
		ID:          s.RunID,
		Processed:   s.Processed,
		HighValue:   s.HighValue,
		Partial:     s.Partial,
		Failed:      s.Failed,
		Skipped:     s.Skipped,
		StoreErrors: s.StoreErrors,
		Exported:    s.Exported,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
}

// Option configures a Runner.
type Option func(*Runner)

// WithThreshold sets the promoted-lead count that triggers the export.
// Values below 1 keep the default.
func WithThreshold(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithLeadCounter reports each lead outcome to c.
func WithLeadCounter(c LeadCounter) Option {
	return func(r *Runner) {
		r.counter = c
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// Runner enriches leads sequentially. A Runner is built for a single Run;
// its success counter is never shared across runs.
type Runner struct {
	store     Store
	orch      Enricher
	exporter  Exporter
	counter   LeadCounter
	threshold int
	now       func() time.Time

	succeeded int
	used      bool
}

// NewRunner creates a runner. exporter may be nil, in which case reaching
// the threshold only halts the batch.
func NewRunner(st Store, orch Enricher, exporter Exporter, opts ...Option) *Runner {
	r := &Runner{
		store:     st,
		orch:      orch,
		exporter:  exporter,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes leads in order until they are exhausted, the threshold is
// reached or ctx is cancelled. Per-lead failures never abort the batch.
func (r *Runner) Run(ctx context.Context, leads []model.Lead) (*Summary, error) {
	if r.used {
		return nil, eris.New("enrich: runner already used")
	}
	r.used = true

	sum := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: r.now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", sum.RunID))

	log.Info("enrich: starting batch",
		zap.Int("leads", len(leads)),
		zap.Int("threshold", r.threshold),
	)

	var runErr error
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "enrich: run cancelled")
			break
		}

		r.process(ctx, log, lead, sum)

		if r.succeeded >= r.threshold {
			r.export(ctx, log, sum)
			sum.Halted = true
			break
		}
	}

	sum.FinishedAt = r.now().UTC()
	r.recordRun(ctx, log, sum)

	log.Info("enrich: batch complete",
		zap.Int("processed", sum.Processed),
		zap.Int("high_value", sum.HighValue),
		zap.Int("partial", sum.Partial),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("store_errors", sum.StoreErrors),
		zap.Bool("exported", sum.Exported),
		zap.Bool("halted", sum.Halted),
	)
	return sum, runErr
}

func (r *Runner) process(ctx context.Context, log *zap.Logger, lead model.Lead, sum *Summary) {
	log = log.With(zap.Int64("lead_id", lead.ID))

	domain, err := model.ExtractDomain(lead.WebsiteURL)
	if err != nil {
		sum.Skipped++
		r.count(OutcomeSkipped)
		log.Warn("enrich: skipping lead without domain",
			zap.String("website_url", lead.WebsiteURL),
			zap.Error(err),
		)
		return
	}
	log = log.With(zap.String("domain", domain))
	sum.Processed++

	res := r.orch.Enrich(ctx, domain)

	if res.Done() {
		err := r.store.UpdateContact(ctx, lead.ID, model.ContactUpdate{
			Name:    model.StringPtr(res.Name.Value),
			Email:   model.StringPtr(res.Email.Value),
			Phone:   model.StringPtr(res.Phone.Value),
			Promote: true,
		})
		if err != nil {
			sum.StoreErrors++
			r.count(OutcomeStoreError)
			log.Error("enrich: failed to persist lead", zap.Error(err))
			return
		}
		r.succeeded++
		sum.HighValue++
		r.count(OutcomeHighValue)
		log.Info("enrich: lead promoted",
			zap.String("name", res.Name.Value),
			zap.String("email", res.Email.Value),
			zap.Bool("verified", res.Verified),
			zap.Bool("phone", res.Phone.Set()),
			zap.Int("succeeded", r.succeeded),
		)
		return
	}

	if !res.HasAny() {
		sum.Failed++
		r.count(OutcomeFailed)
		log.Info("enrich: no contact found", zap.String("state", string(res.State)))
		return
	}

	err = r.store.UpdateContact(ctx, lead.ID, model.ContactUpdate{
		Name:  model.StringPtr(res.Name.Value),
		Email: model.StringPtr(res.Email.Value),
		Phone: model.StringPtr(res.Phone.Value),
	})
	if err != nil {
		sum.StoreErrors++
		r.count(OutcomeStoreError)
		log.Error("enrich: failed to persist partial lead", zap.Error(err))
		return
	}
	sum.Partial++
	r.count(OutcomePartial)
	log.Info("enrich: partial contact saved",
		zap.String("state", string(res.State)),
		zap.String("name", res.Name.Value),
	)
}

// export runs the exporter once. Failure is logged and does not resume
// the batch.
func (r *Runner) export(ctx context.Context, log *zap.Logger, sum *Summary) {
	log.Info("enrich: success threshold reached", zap.Int("succeeded", r.succeeded))
	if r.exporter == nil {
		return
	}
	if err := r.exporter.Export(ctx); err != nil {
		sum.ExportErr = err.Error()
		log.Error("enrich: export failed", zap.Error(err))
		return
	}
	sum.Exported = true
	log.Info("enrich: export complete")
}

func (r *Runner) recordRun(ctx context.Context, log *zap.Logger, sum *Summary) {
	rec, ok := r.store.(RunRecorder)
	if !ok {
		return
	}
	if err := rec.RecordRun(context.WithoutCancel(ctx), sum.record()); err != nil {
		log.Warn("enrich: failed to record run", zap.Error(err))
	}
}

func (r *Runner) count(outcome string) {
	if r.counter != nil {
		r.counter.IncLead(outcome)
	}
}
