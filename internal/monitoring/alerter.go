package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowHitRate  AlertType = "low_hit_rate"
	AlertStoreErrors AlertType = "store_errors"
)

// DefaultAlertCooldown is how long an alert type stays muted after delivery.
const DefaultAlertCooldown = time.Hour

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// webhookPayload is the body posted to the webhook, one per check.
type webhookPayload struct {
	Source string  `json:"source"`
	Alerts []Alert `json:"alerts"`
}

// rule inspects a snapshot and returns an alert, or nil.
type rule func(cfg config.MonitoringConfig, snap *Snapshot) *Alert

var rules = []rule{lowHitRate, storeErrors}

func lowHitRate(cfg config.MonitoringConfig, snap *Snapshot) *Alert {
	// Too few leads make the rate meaningless.
	if cfg.MinHitRate <= 0 || snap.Processed == 0 || snap.Processed < cfg.MinProcessed || snap.HitRate >= cfg.MinHitRate {
		return nil
	}
	return &Alert{
		Type:     AlertLowHitRate,
		Severity: "medium",
		Message: fmt.Sprintf(
			"Enrichment hit rate %.1f%% below threshold %.1f%% (%d high-value / %d processed in last %dh)",
			snap.HitRate*100, cfg.MinHitRate*100, snap.HighValue, snap.Processed, snap.LookbackHours,
		),
		Details: map[string]any{
			"hit_rate":   snap.HitRate,
			"threshold":  cfg.MinHitRate,
			"high_value": snap.HighValue,
			"processed":  snap.Processed,
		},
	}
}

func storeErrors(_ config.MonitoringConfig, snap *Snapshot) *Alert {
	if snap.StoreErrors == 0 {
		return nil
	}
	return &Alert{
		Type:     AlertStoreErrors,
		Severity: "high",
		Message:  fmt.Sprintf("%d lead update(s) failed to persist in last %dh", snap.StoreErrors, snap.LookbackHours),
		Details: map[string]any{
			"store_errors": snap.StoreErrors,
			"runs":         snap.Runs,
		},
	}
}

// AlerterOption configures an Alerter.
type AlerterOption func(*Alerter)

// WithCooldown mutes an alert type for d after it was delivered. Zero
// delivers every alert on every check.
func WithCooldown(d time.Duration) AlerterOption {
	return func(a *Alerter) {
		if d >= 0 {
			a.cooldown = d
		}
	}
}

// WithWebhookClient overrides the HTTP client used for webhook delivery.
func WithWebhookClient(hc *http.Client) AlerterOption {
	return func(a *Alerter) {
		a.client = hc
	}
}

// Alerter evaluates a Snapshot against configured thresholds and posts
// breached thresholds to a webhook.
type Alerter struct {
	cfg      config.MonitoringConfig
	client   *http.Client
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig, opts ...AlerterOption) *Alerter {
	a := &Alerter{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		cooldown: DefaultAlertCooldown,
		now:      time.Now,
		lastSent: make(map[AlertType]time.Time),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	now := a.now().UTC()
	var alerts []Alert
	for _, r := range rules {
		if alert := r(a.cfg, snap); alert != nil {
			alert.Timestamp = now
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

// SendAlerts posts every alert outside its cooldown to the webhook in one
// request and returns how many were delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	fresh := a.unmuted(alerts)
	if len(fresh) == 0 {
		return 0
	}

	log := zap.L().With(zap.Int("alerts", len(fresh)))
	if err := a.post(ctx, webhookPayload{Source: "contact-enricher", Alerts: fresh}); err != nil {
		log.Error("monitoring: failed to send alerts", zap.Error(err))
		return 0
	}

	a.mu.Lock()
	sentAt := a.now()
	for _, alert := range fresh {
		a.lastSent[alert.Type] = sentAt
	}
	a.mu.Unlock()

	log.Info("monitoring: alerts sent")
	return len(fresh)
}

func (a *Alerter) unmuted(alerts []Alert) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var out []Alert
	for _, alert := range alerts {
		if last, ok := a.lastSent[alert.Type]; ok && now.Sub(last) < a.cooldown {
			zap.L().Debug("monitoring: alert muted", zap.String("type", string(alert.Type)))
			continue
		}
		out = append(out, alert)
	}
	return out
}

func (a *Alerter) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alerts")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
