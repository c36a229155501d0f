package waterfall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/waterfall/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waterfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"apollo", "snov"}, cfg.Stages.Identity)
	assert.Equal(t, []string{"hunter"}, cfg.Stages.Email)
	assert.Equal(t, []string{"hunter"}, cfg.Stages.Fallback)
	assert.Equal(t, []string{"snov"}, cfg.Stages.Phone)
	assert.Equal(t, []string{"apollo", "snov", "hunter"}, cfg.Names())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
waterfall:
  stages:
    identity: [snov, apollo]
    phone: []
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"snov", "apollo"}, cfg.Stages.Identity)
	assert.Equal(t, []string{"hunter"}, cfg.Stages.Email, "unset stage keeps default")
	assert.Equal(t, []string{"hunter"}, cfg.Stages.Fallback)
	assert.Empty(t, cfg.Stages.Phone, "explicit empty list disables the stage")
}

func TestLoadConfig_NoNameSources(t *testing.T) {
	path := writeConfig(t, `
waterfall:
  stages:
    identity: []
    fallback: []
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identity or fallback providers")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/waterfall.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waterfall: read config")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "waterfall:\n  stages: [not: valid")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waterfall: parse config")
}

func TestNewOrchestrator_UnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stages.Phone = []string{"clearbit"}

	reg := provider.NewRegistry(&scripted{name: "apollo"}, &scripted{name: "snov"}, &scripted{name: "hunter"})
	_, err := NewOrchestrator(cfg, reg)
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "phone stage")
}
