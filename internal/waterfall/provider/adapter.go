package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/poll"
	"github.com/sells-group/contact-enricher/internal/resilience"
)

// Call outcomes reported to the Recorder.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeDisabled    = "disabled"
	OutcomeCircuitOpen = "circuit_open"
)

// Recorder counts provider calls.
type Recorder interface {
	ObserveProviderCall(provider, operation, outcome string)
}

// Option configures an adapter.
type Option func(*base)

// WithBreaker routes every call through cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(b *base) {
		b.breaker = cb
	}
}

// WithRetry sets the retry policy applied to each HTTP request.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(b *base) {
		b.retry = cfg
	}
}

// WithRecorder reports call outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(b *base) {
		b.recorder = r
	}
}

// WithPoller sets the poller used for asynchronous searches.
func WithPoller(p *poll.Poller) Option {
	return func(b *base) {
		b.poller = p
	}
}

// base carries what every adapter shares: the enabled flag, the circuit
// breaker, the retry policy and call accounting.
type base struct {
	name     string
	enabled  bool
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	recorder Recorder
	poller   *poll.Poller
}

func newBase(name string, enabled bool, opts []Option) base {
	b := base{
		name:    name,
		enabled: enabled,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(&b)
	}
	if b.breaker == nil {
		b.breaker = resilience.NewCircuitBreaker(name, resilience.DefaultCircuitBreakerConfig())
	}
	if b.poller == nil {
		b.poller = poll.New()
	}
	if !enabled {
		zap.L().Info("provider: disabled, missing credentials", zap.String("provider", name))
	}
	return b
}

// Name returns the provider identifier.
func (b *base) Name() string { return b.name }

// run executes fn behind the circuit breaker and collapses every failure to
// false. fn reports whether it found something.
func (b *base) run(ctx context.Context, op, domain string, fn func(ctx context.Context) (bool, error)) bool {
	if !b.enabled {
		b.record(op, OutcomeDisabled)
		return false
	}

	var found bool
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		found, err = fn(ctx)
		return err
	})

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		zap.L().Debug("provider: circuit open, skipping",
			zap.String("provider", b.name),
			zap.String("operation", op),
			zap.String("domain", domain),
		)
		b.record(op, OutcomeCircuitOpen)
		return false
	case err != nil:
		zap.L().Warn("provider: request failed",
			zap.String("provider", b.name),
			zap.String("operation", op),
			zap.String("domain", domain),
			zap.Error(err),
		)
		b.record(op, OutcomeError)
		return false
	case !found:
		b.record(op, OutcomeNotFound)
		return false
	default:
		b.record(op, OutcomeFound)
		return true
	}
}

// do runs a single HTTP request under the retry policy.
func (b *base) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	cfg := b.retry
	cfg.OnRetry = resilience.RetryLogger(b.name, op)
	return resilience.Do(ctx, cfg, fn)
}

func (b *base) record(op, outcome string) {
	if b.recorder != nil {
		b.recorder.ObserveProviderCall(b.name, op, outcome)
	}
}
