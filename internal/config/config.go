package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Rental service.
	GraphqlURL         string `mapstructure:"GRAPHQL_URL"`
	GraphqlQueryMethod string `mapstructure:"GRAPHQL_QUERY_METHOD"`
	RemoteTimeoutMs    int    `mapstructure:"REMOTE_TIMEOUT_MS"`

	DailyRate              float64 `mapstructure:"DAILY_RATE"`
	SuccessRedirectDelayMs int     `mapstructure:"SUCCESS_REDIRECT_DELAY_MS"`

	// Redis configuration. Empty URIs keep the state in process.
	CredentialsRedisURI string `mapstructure:"CREDENTIALS_REDIS_URI"`
	LocksRedisURI       string `mapstructure:"LOCKS_REDIS_URI"`
	SubmissionLockTTLMs int    `mapstructure:"SUBMISSION_LOCK_TTL_MS"`

	OpenapiValidation  bool `mapstructure:"OPENAPI_VALIDATION"`
	SlowLogThresholdMs int  `mapstructure:"SLOW_LOG_THRESHOLD_MS"`
}

var defaults = map[string]any{
	"PORT":                      "8080",
	"ENV":                       "development",
	"LOG_LEVEL":                 "info",
	"GRAPHQL_URL":               "https://car-rental-system-wgtb.onrender.com/graphql",
	"GRAPHQL_QUERY_METHOD":      http.MethodPost,
	"REMOTE_TIMEOUT_MS":         10000,
	"DAILY_RATE":                50,
	"SUCCESS_REDIRECT_DELAY_MS": 3000,
	"CREDENTIALS_REDIS_URI":     "",
	"LOCKS_REDIS_URI":           "",
	"SUBMISSION_LOCK_TTL_MS":    30000,
	"OPENAPI_VALIDATION":        true,
	"SLOW_LOG_THRESHOLD_MS":     2000,
}

// Load reads the environment on top of the defaults.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.GraphqlQueryMethod = strings.ToUpper(cfg.GraphqlQueryMethod)
	if cfg.GraphqlQueryMethod != http.MethodGet && cfg.GraphqlQueryMethod != http.MethodPost {
		return Config{}, fmt.Errorf("unsupported GRAPHQL_QUERY_METHOD %q", cfg.GraphqlQueryMethod)
	}

	if cfg.DailyRate <= 0 {
		return Config{}, fmt.Errorf("DAILY_RATE must be positive, got %v", cfg.DailyRate)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMs) * time.Millisecond
}

func (c Config) SuccessRedirectDelay() time.Duration {
	return time.Duration(c.SuccessRedirectDelayMs) * time.Millisecond
}

func (c Config) SubmissionLockTTL() time.Duration {
	return time.Duration(c.SubmissionLockTTLMs) * time.Millisecond
}

func (c Config) SlowLogThreshold() time.Duration {
	return time.Duration(c.SlowLogThresholdMs) * time.Millisecond
}
