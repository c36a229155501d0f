// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Hunter     HunterConfig     `yaml:"hunter" mapstructure:"hunter"`
	Snov       SnovConfig       `yaml:"snov" mapstructure:"snov"`
	Providers  ProvidersConfig  `yaml:"providers" mapstructure:"providers"`
	Poll       PollConfig       `yaml:"poll" mapstructure:"poll"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Waterfall  WaterfallConfig  `yaml:"waterfall" mapstructure:"waterfall"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ApolloConfig holds Apollo.io API settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HunterConfig holds Hunter.io API settings.
type HunterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SnovConfig holds Snov.io OAuth client credentials.
type SnovConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
}

// ProvidersConfig tunes every provider client.
type ProvidersConfig struct {
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Timeout returns the per-request HTTP timeout.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// BreakerReset returns how long an open circuit stays open.
func (p ProvidersConfig) BreakerReset() time.Duration {
	return time.Duration(p.BreakerResetSecs) * time.Second
}

// PollConfig configures asynchronous task polling.
type PollConfig struct {
	Attempts     int `yaml:"attempts" mapstructure:"attempts"`
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// Interval returns the wait before each status check.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSecs) * time.Second
}

// EnrichConfig configures the batch runner.
type EnrichConfig struct {
	SuccessThreshold  int      `yaml:"success_threshold" mapstructure:"success_threshold"`
	CandidateStatuses []string `yaml:"candidate_statuses" mapstructure:"candidate_statuses"`
	Limit             int      `yaml:"limit" mapstructure:"limit"`
}

// WaterfallConfig points at an optional stage order file.
type WaterfallConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExportConfig selects what happens when the success threshold is reached.
type ExportConfig struct {
	// Format is a comma-separated list of "xlsx", "command" and "notion".
	Format  string `yaml:"format" mapstructure:"format"`
	Path    string `yaml:"path" mapstructure:"path"`
	Command string `yaml:"command" mapstructure:"command"`
}

// Formats returns the configured export formats, lowercased and trimmed.
func (e ExportConfig) Formats() []string {
	var out []string
	for _, f := range strings.Split(e.Format, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background alerting in serve mode.
type MonitoringConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	MinHitRate          float64 `yaml:"min_hit_rate" mapstructure:"min_hit_rate"`
	MinProcessed        int     `yaml:"min_processed" mapstructure:"min_processed"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// bareEnv maps config keys to the unprefixed variable names older
// deployments export. The prefixed name is still checked first.
var bareEnv = map[string]string{
	"apollo.key":         "APOLLO_API_KEY",
	"hunter.key":         "HUNTER_API_KEY",
	"snov.client_id":     "SNOV_CLIENT_ID",
	"snov.client_secret": "SNOV_SECRET",
	"store.database_url": "DB_PATH",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range bareEnv {
		prefixed := "ENRICH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("hunter.base_url", "https://api.hunter.io")
	v.SetDefault("snov.base_url", "https://api.snov.io")
	v.SetDefault("providers.rate_limit_rps", 2)
	v.SetDefault("providers.timeout_secs", 30)
	v.SetDefault("providers.breaker_failures", 5)
	v.SetDefault("providers.breaker_reset_secs", 60)
	v.SetDefault("providers.retry_attempts", 1)
	v.SetDefault("poll.attempts", 5)
	v.SetDefault("poll.interval_secs", 5)
	v.SetDefault("enrich.success_threshold", 15)
	v.SetDefault("enrich.candidate_statuses", []string{"RED", "YELLOW", ""})
	v.SetDefault("enrich.limit", 0)
	v.SetDefault("waterfall.config_path", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("export.format", "xlsx")
	v.SetDefault("export.path", "leads_export.xlsx")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.min_hit_rate", 0.05)
	v.SetDefault("monitoring.min_processed", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Missing provider
// credentials are never an error; the affected provider is disabled.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "enrich":
		if c.Enrich.SuccessThreshold < 1 {
			errs = append(errs, "enrich.success_threshold must be >= 1")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateProviders()...)
		errs = append(errs, c.validateExport()...)
	case "lookup":
		errs = append(errs, c.validateProviders()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateProviders()...)
		if c.Monitoring.Enabled && (c.Monitoring.MinHitRate < 0 || c.Monitoring.MinHitRate > 1) {
			errs = append(errs, "monitoring.min_hit_rate must be between 0 and 1")
		}
	case "export":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateExport()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateProviders() []string {
	var errs []string
	if c.Providers.RateLimitRPS < 0 {
		errs = append(errs, "providers.rate_limit_rps must be >= 0")
	}
	if c.Providers.TimeoutSecs <= 0 {
		errs = append(errs, "providers.timeout_secs must be > 0")
	}
	if c.Providers.RetryAttempts < 1 {
		errs = append(errs, "providers.retry_attempts must be >= 1")
	}
	if c.Poll.Attempts < 1 {
		errs = append(errs, "poll.attempts must be >= 1")
	}
	if c.Poll.IntervalSecs < 0 {
		errs = append(errs, "poll.interval_secs must be >= 0")
	}
	return errs
}

func (c *Config) validateExport() []string {
	var errs []string
	for _, f := range c.Export.Formats() {
		switch f {
		case "xlsx":
			if c.Export.Path == "" {
				errs = append(errs, "export.path is required for xlsx export")
			}
		case "command":
			if strings.TrimSpace(c.Export.Command) == "" {
				errs = append(errs, "export.command is required for command export")
			}
		case "notion":
			if c.Notion.Token == "" || c.Notion.DatabaseID == "" {
				errs = append(errs, "notion.token and notion.database_id are required for notion export")
			}
		default:
			errs = append(errs, "unknown export format "+f)
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
