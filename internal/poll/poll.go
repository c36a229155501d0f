// Package poll drives provider jobs that are produced by a backend task
// rather than returned synchronously: submit once, then check the task a
// bounded number of times.
package poll

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultAttempts = 5
	DefaultInterval = 5 * time.Second
)

// Status is the job state reported by a provider.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further polling is useful.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is an outstanding job at a provider. Only the Poller mutates it.
type Task struct {
	Handle    string
	CreatedAt time.Time
	Attempts  int
	Status    Status
}

// Observation is what one status check returned. Found is false when the
// provider sent no usable payload.
type Observation[T any] struct {
	Status  Status
	Payload T
	Found   bool
}

// SubmitFunc starts a job and returns its handle.
type SubmitFunc func(ctx context.Context) (string, error)

// CheckFunc fetches the current state of the job identified by handle.
type CheckFunc[T any] func(ctx context.Context, handle string) (Observation[T], error)

// Observer receives the number of checks a finished task used.
type Observer interface {
	ObservePoll(outcome string, attempts int)
}

// Option configures a Poller.
type Option func(*Poller)

// WithAttempts overrides the number of status checks.
func WithAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithInterval overrides the wait before each status check.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithSleep replaces the blocking wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		p.sleep = fn
	}
}

// WithNow replaces the clock used to stamp tasks.
func WithNow(fn func() time.Time) Option {
	return func(p *Poller) {
		p.now = fn
	}
}

// WithObserver reports finished tasks to o.
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		p.observer = o
	}
}

// Poller runs fixed-interval, fixed-budget polling loops.
type Poller struct {
	attempts int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	observer Observer
}

// New creates a Poller with 5 attempts spaced 5 seconds apart.
func New(opts ...Option) *Poller {
	p := &Poller{
		attempts: DefaultAttempts,
		interval: DefaultInterval,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attempts returns the configured check budget.
func (p *Poller) Attempts() int { return p.attempts }

// Interval returns the configured wait between checks.
func (p *Poller) Interval() time.Duration { return p.interval }

// Submit starts a job and wraps its handle in a pending Task.
func (p *Poller) Submit(ctx context.Context, submit SubmitFunc) (*Task, error) {
	handle, err := submit(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "poll: submit")
	}
	if handle == "" {
		return nil, eris.New("poll: submit returned empty task handle")
	}
	return &Task{
		Handle:    handle,
		CreatedAt: p.now(),
		Status:    StatusPending,
	}, nil
}

// PollUntilDone waits and checks task up to the poller's attempt budget.
// It returns the payload and true only when a check reports completed with a
// payload. A failed status, a completed status without payload, a check
// error or an exhausted budget all return false.
func PollUntilDone[T any](ctx context.Context, p *Poller, task *Task, check CheckFunc[T]) (T, bool) {
	var zero T
	log := zap.L().With(zap.String("task", task.Handle))

	for task.Attempts < p.attempts {
		if err := p.sleep(ctx, p.interval); err != nil {
			log.Debug("poll: wait interrupted", zap.Error(err))
			p.observe("cancelled", task)
			return zero, false
		}

		task.Attempts++
		obs, err := check(ctx, task.Handle)
		if err != nil {
			log.Warn("poll: status check failed", zap.Int("attempt", task.Attempts), zap.Error(err))
			p.observe("error", task)
			return zero, false
		}
		task.Status = obs.Status

		switch obs.Status {
		case StatusCompleted:
			if !obs.Found {
				p.observe("empty", task)
				return zero, false
			}
			p.observe("completed", task)
			return obs.Payload, true
		case StatusFailed:
			log.Info("poll: task failed", zap.Int("attempt", task.Attempts))
			p.observe("failed", task)
			return zero, false
		}
	}

	log.Debug("poll: attempts exhausted", zap.Int("attempts", task.Attempts), zap.String("status", string(task.Status)))
	p.observe("exhausted", task)
	return zero, false
}

func (p *Poller) observe(outcome string, task *Task) {
	if p.observer != nil {
		p.observer.ObservePoll(outcome, task.Attempts)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
