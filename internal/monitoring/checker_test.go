package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/config"
	"github.com/sells-group/contact-enricher/internal/model"
)

func TestChecker_RunChecksImmediatelyAndStopsOnCancel(t *testing.T) {
	checker := NewChecker(NewCollector(&mockSource{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{
		CheckIntervalSecs:   60,
		LookbackWindowHours: 24,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := checker.Last()
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(NewCollector(&mockSource{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.Equal(t, DefaultCheckInterval, checker.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)

	_, ok := checker.Last()
	assert.False(t, ok, "cancelled before the first check")
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:          ts.URL,
		LookbackWindowHours: 24,
		MinHitRate:          0.5,
		MinProcessed:        1,
	}
	src := &mockSource{
		counts: map[model.LeadStatus]int{},
		runs: []model.RunRecord{
			{ID: "r1", Processed: 10, HighValue: 1, StoreErrors: 2, StartedAt: time.Now().Add(-time.Hour)},
		},
	}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	assert.Equal(t, 2, checker.Check(context.Background()))
	assert.Equal(t, int32(1), received.Load())

	last, ok := checker.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Triggered)
	assert.Equal(t, 2, last.Sent)
	assert.Empty(t, last.Error)

	// Both types are muted on the next tick but still reported as triggered.
	assert.Equal(t, 2, checker.Check(context.Background()))
	assert.Equal(t, int32(1), received.Load())
	last, _ = checker.Last()
	assert.Zero(t, last.Sent)
}

func TestChecker_CheckCollectError(t *testing.T) {
	src := &mockSource{countErr: assert.AnError}
	cfg := config.MonitoringConfig{LookbackWindowHours: 24}
	checker := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	assert.Zero(t, checker.Check(context.Background()))

	last, ok := checker.Last()
	require.True(t, ok)
	assert.Contains(t, last.Error, assert.AnError.Error())
}
