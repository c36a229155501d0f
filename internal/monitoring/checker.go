package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/config"
)

// DefaultCheckInterval applies when the configured interval is not positive.
const DefaultCheckInterval = 5 * time.Minute

// CheckResult describes the most recent alert check.
type CheckResult struct {
	At        time.Time `json:"at"`
	Triggered int       `json:"triggered"`
	Sent      int       `json:"sent"`
	Error     string    `json:"error,omitempty"`
}

// Checker collects a snapshot on a fixed interval and forwards whatever
// alerts it triggers.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	lookback  int
	interval  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last *CheckResult
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		lookback:  cfg.LookbackWindowHours,
		interval:  interval,
		now:       time.Now,
	}
}

// Interval returns the effective check interval.
func (c *Checker) Interval() time.Duration { return c.interval }

// Run checks once immediately, then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	if ctx.Err() != nil {
		return
	}
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check collects one snapshot, sends the alerts it triggers and returns
// how many were triggered, muted ones included.
func (c *Checker) Check(ctx context.Context) int {
	res := CheckResult{At: c.now().UTC()}
	defer c.record(&res)

	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		zap.L().Error("monitoring: failed to collect metrics", zap.Error(err))
		res.Error = err.Error()
		return 0
	}

	alerts := c.alerter.Evaluate(snap)
	res.Triggered = len(alerts)
	if len(alerts) == 0 {
		zap.L().Debug("monitoring: no alerts triggered")
		return 0
	}

	res.Sent = c.alerter.SendAlerts(ctx, alerts)
	zap.L().Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", res.Triggered),
		zap.Int("alerts_sent", res.Sent),
	)
	return res.Triggered
}

func (c *Checker) record(res *CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = res
}

// Last returns the result of the most recent check, if any ran.
func (c *Checker) Last() (CheckResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return CheckResult{}, false
	}
	return *c.last, true
}
