package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/config"
	"github.com/sells-group/contact-enricher/internal/export"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/monitoring"
)

type emptySource struct{}

func (emptySource) ListLeads(context.Context) ([]model.Lead, error)     { return nil, nil }
func (emptySource) ListHighValue(context.Context) ([]model.Lead, error) { return nil, nil }

func TestBuildExporter(t *testing.T) {
	tests := []struct {
		name    string
		export  config.ExportConfig
		want    any
		wantErr string
	}{
		{name: "none", export: config.ExportConfig{}},
		{name: "xlsx", export: config.ExportConfig{Format: "xlsx", Path: "out.xlsx"}, want: &export.XLSXExporter{}},
		{name: "command", export: config.ExportConfig{Format: "command", Command: "true"}, want: &export.CommandExporter{}},
		{name: "multi", export: config.ExportConfig{Format: "xlsx, notion", Path: "out.xlsx"}, want: export.Multi{}},
		{name: "empty command", export: config.ExportConfig{Format: "command"}, wantErr: "command"},
		{name: "unknown", export: config.ExportConfig{Format: "pdf"}, wantErr: "unknown export format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.Config{
				Export: tt.export,
				Notion: config.NotionConfig{Token: "secret", DatabaseID: "db"},
			}
			got, err := buildExporter(c, emptySource{})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestBuildExporter_MultiHoldsEachFormat(t *testing.T) {
	c := &config.Config{
		Export: config.ExportConfig{Format: "xlsx,command", Path: "out.xlsx", Command: "true"},
	}
	got, err := buildExporter(c, emptySource{})
	require.NoError(t, err)
	multi, ok := got.(export.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}

func TestInitProviders_MissingCredentialsDisableProviders(t *testing.T) {
	c := &config.Config{
		Providers: config.ProvidersConfig{RateLimitRPS: 1, TimeoutSecs: 1, BreakerFailures: 2, BreakerResetSecs: 1, RetryAttempts: 1},
		Poll:      config.PollConfig{Attempts: 1, IntervalSecs: 0},
	}
	penv, err := initProviders(c, monitoring.NewMetrics())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"apollo", "hunter", "snov"}, penv.Registry.List())

	res := penv.Orchestrator.Enrich(context.Background(), "acme.io")
	assert.False(t, res.Done())
	assert.False(t, res.HasAny())
}

func TestInitProviders_BadWaterfallPath(t *testing.T) {
	c := &config.Config{
		Waterfall: config.WaterfallConfig{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")},
	}
	_, err := initProviders(c, monitoring.NewMetrics())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load waterfall config")
}

func TestInitStore_UnknownDriver(t *testing.T) {
	c := &config.Config{Store: config.StoreConfig{Driver: "mysql", DatabaseURL: "x"}}
	_, err := initStore(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestLeadStatuses(t *testing.T) {
	got := leadStatuses([]string{"RED", "", "YELLOW"})
	assert.Equal(t, []model.LeadStatus{model.StatusRed, model.StatusUnset, model.StatusYellow}, got)
}
