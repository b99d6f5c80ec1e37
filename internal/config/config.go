package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Validation modes accepted by Validate.
const (
	// ModeOnline talks to the registry and the text-generation service.
	ModeOnline = "online"
	// ModeOffline replaces both services with local stubs.
	ModeOffline = "offline"
	// ModeServe runs the HTTP API against live services.
	ModeServe = "serve"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Circuit   CircuitConfig   `yaml:"circuit" mapstructure:"circuit"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for the two prompts the
// validator and enricher send.
type AnthropicConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	Model               string  `yaml:"model" mapstructure:"model"`
	ValidationTemp      float64 `yaml:"validation_temperature" mapstructure:"validation_temperature"`
	ValidationMaxTokens int64   `yaml:"validation_max_tokens" mapstructure:"validation_max_tokens"`
	SpecialtyTemp       float64 `yaml:"specialty_temperature" mapstructure:"specialty_temperature"`
	SpecialtyMaxTokens  int64   `yaml:"specialty_max_tokens" mapstructure:"specialty_max_tokens"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns the per-request timeout.
func (c AnthropicConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RegistryConfig holds NPPES registry settings.
type RegistryConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Version           string  `yaml:"version" mapstructure:"version"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns the per-request timeout.
func (c RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryConfig tunes retries around external calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig tunes the per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	PersistConcurrency int `yaml:"persist_concurrency" mapstructure:"persist_concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROVIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "providers.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.validation_temperature", 0.3)
	v.SetDefault("anthropic.validation_max_tokens", 150)
	v.SetDefault("anthropic.specialty_temperature", 0.5)
	v.SetDefault("anthropic.specialty_max_tokens", 20)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("anthropic.requests_per_second", 0)
	v.SetDefault("registry.base_url", "https://npiregistry.cms.hhs.gov/api/")
	v.SetDefault("registry.version", "2.1")
	v.SetDefault("registry.timeout_secs", 10)
	v.SetDefault("registry.requests_per_second", 5)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("batch.persist_concurrency", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks that the keys the given mode needs are present and that
// tuning values are in range.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeOnline, ModeOffline, ModeServe:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode == ModeOnline || mode == ModeServe {
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Registry.BaseURL == "" {
			errs = append(errs, "registry.base_url is required")
		}
	}

	if mode == ModeServe && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if c.Batch.PersistConcurrency < 1 || c.Batch.PersistConcurrency > 32 {
		errs = append(errs, "batch.persist_concurrency must be between 1 and 32")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
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
