package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-enricher/internal/config"
	"github.com/sells-group/contact-enricher/internal/export"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/monitoring"
	"github.com/sells-group/contact-enricher/internal/poll"
	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/internal/store"
	"github.com/sells-group/contact-enricher/internal/waterfall"
	"github.com/sells-group/contact-enricher/internal/waterfall/provider"
	"github.com/sells-group/contact-enricher/pkg/apollo"
	"github.com/sells-group/contact-enricher/pkg/hunter"
	"github.com/sells-group/contact-enricher/pkg/notion"
	"github.com/sells-group/contact-enricher/pkg/snov"
)

// providerEnv holds the provider registry, its breakers and the
// orchestrator built on top of them.
type providerEnv struct {
	Registry     *provider.Registry
	Breakers     *resilience.Breakers
	Orchestrator *waterfall.Orchestrator
}

// initStore opens the configured store and applies the schema. Callers
// should defer Close.
func initStore(ctx context.Context, c *config.Config) (store.LeadStore, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: c.Store.MaxConns,
		MinConns: c.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initProviders builds every provider adapter from config. Providers
// without credentials are registered disabled.
func initProviders(c *config.Config, metrics *monitoring.Metrics) (*providerEnv, error) {
	breakers := resilience.NewBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: c.Providers.BreakerFailures,
		ResetTimeout:     c.Providers.BreakerReset(),
	})
	reg := buildRegistry(c, metrics, breakers)

	var stages *waterfall.Config
	if c.Waterfall.ConfigPath != "" {
		loaded, err := waterfall.LoadConfig(c.Waterfall.ConfigPath)
		if err != nil {
			return nil, eris.Wrap(err, "load waterfall config")
		}
		stages = loaded
	}

	orch, err := waterfall.NewOrchestrator(stages, reg)
	if err != nil {
		return nil, eris.Wrap(err, "build orchestrator")
	}

	zap.L().Debug("providers ready", zap.Strings("registered", reg.List()))
	return &providerEnv{Registry: reg, Breakers: breakers, Orchestrator: orch}, nil
}

func buildRegistry(c *config.Config, metrics *monitoring.Metrics, breakers *resilience.Breakers) *provider.Registry {
	hc := &http.Client{Timeout: c.Providers.Timeout()}
	rps := c.Providers.RateLimitRPS

	poller := poll.New(
		poll.WithAttempts(c.Poll.Attempts),
		poll.WithInterval(c.Poll.Interval()),
		poll.WithObserver(metrics),
	)
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.Providers.RetryAttempts

	opts := func(name string) []provider.Option {
		return []provider.Option{
			provider.WithBreaker(breakers.Get(name)),
			provider.WithRetry(retry),
			provider.WithRecorder(metrics),
			provider.WithPoller(poller),
		}
	}

	var apolloClient apollo.Client
	if c.Apollo.Key != "" {
		apolloClient = apollo.NewClient(c.Apollo.Key,
			apollo.WithBaseURL(c.Apollo.BaseURL),
			apollo.WithHTTPClient(hc),
			apollo.WithRateLimit(rps),
		)
	}

	var hunterClient hunter.Client
	if c.Hunter.Key != "" {
		hunterClient = hunter.NewClient(c.Hunter.Key,
			hunter.WithBaseURL(c.Hunter.BaseURL),
			hunter.WithHTTPClient(hc),
			hunter.WithRateLimit(rps),
		)
	}

	var snovClient snov.Client
	if c.Snov.ClientID != "" && c.Snov.ClientSecret != "" {
		snovClient = snov.NewClient(c.Snov.ClientID, c.Snov.ClientSecret,
			snov.WithBaseURL(c.Snov.BaseURL),
			snov.WithHTTPClient(hc),
			snov.WithRateLimit(rps),
		)
	}

	return provider.NewRegistry(
		provider.NewApollo(apolloClient, opts("apollo")...),
		provider.NewHunter(hunterClient, opts("hunter")...),
		provider.NewSnov(snovClient, opts("snov")...),
	)
}

// buildExporter returns the exporter for the configured formats, or nil
// when none is configured.
func buildExporter(c *config.Config, src export.LeadSource) (export.Exporter, error) {
	var exporters export.Multi
	for _, f := range c.Export.Formats() {
		switch f {
		case "xlsx":
			exporters = append(exporters, export.NewXLSXExporter(src, c.Export.Path))
		case "command":
			e, err := export.NewCommandExporter(c.Export.Command)
			if err != nil {
				return nil, err
			}
			exporters = append(exporters, e)
		case "notion":
			client := notion.NewClient(c.Notion.Token)
			exporters = append(exporters, export.NewNotionExporter(src, client, c.Notion.DatabaseID))
		default:
			return nil, eris.Errorf("unknown export format %q", f)
		}
	}

	switch len(exporters) {
	case 0:
		return nil, nil
	case 1:
		return exporters[0], nil
	default:
		return exporters, nil
	}
}

func leadStatuses(values []string) []model.LeadStatus {
	out := make([]model.LeadStatus, 0, len(values))
	for _, v := range values {
		out = append(out, model.LeadStatus(v))
	}
	return out
}
