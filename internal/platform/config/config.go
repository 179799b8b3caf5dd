// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	// DefaultKeyPrefix keeps stored keys compatible with the browser build.
	DefaultKeyPrefix = "daily_esoteric_"

	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"

	DefaultHistoryLimit       = 7
	DefaultHistoryConcurrency = 4
)

// envAPIKeys are consulted, in order, when provider.gemini.api_key is empty.
var envAPIKeys = []string{"GEMINI_API_KEY", "API_KEY"}

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Provider  ProviderConfig  `koanf:"provider"  validate:"required"`
	Cache     CacheConfig     `koanf:"cache"     validate:"required"`
	Tasks     TasksConfig     `koanf:"tasks"     validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
	// Timezone decides which calendar date is "today". Empty means the host's local zone.
	Timezone string `koanf:"timezone" validate:"omitempty,timezone"`
}

// Location resolves Timezone, falling back to time.Local.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", a.Timezone, err)
	}

	return loc, nil
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	Insecure     bool    `koanf:"insecure"`
}

// ClientConfig contains HTTP client settings for provider calls.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// ProviderConfig selects and configures the generative backend.
type ProviderConfig struct {
	Kind   string             `koanf:"kind"   validate:"required,oneof=gemini http"`
	Gemini GeminiConfig       `koanf:"gemini"`
	HTTP   HTTPProviderConfig `koanf:"http"`
}

// GeminiConfig configures the Gemini providers.
type GeminiConfig struct {
	APIKey      string  `koanf:"api_key"`
	TextModel   string  `koanf:"text_model"  validate:"required"`
	ImageModel  string  `koanf:"image_model" validate:"required"`
	Temperature float32 `koanf:"temperature" validate:"min=0,max=2"`
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

// HTTPProviderConfig configures the plain HTTP "oracle" providers.
type HTTPProviderConfig struct {
	BaseURL string `koanf:"base_url"`
	Name    string `koanf:"name"     validate:"required"`
}

// CacheConfig selects the key-value store backing the daily cache.
type CacheConfig struct {
	Driver    string `koanf:"driver"     validate:"required,oneof=memory file sqlite postgres"`
	KeyPrefix string `koanf:"key_prefix" validate:"required"`
	Dir       string `koanf:"dir"        validate:"required_if=Driver file"`
	Path      string `koanf:"path"       validate:"required_if=Driver sqlite"`
	DSN       string `koanf:"dsn"        validate:"required_if=Driver postgres"`
	Table     string `koanf:"table"      validate:"required,alphanum_underscore"`
	// RetentionDays bounds how far back Prune keeps records.
	RetentionDays int `koanf:"retention_days" validate:"min=1"`
}

// TasksConfig bounds background work and fan-out reads.
type TasksConfig struct {
	Timeout            time.Duration `koanf:"timeout"             validate:"required,min=1s"`
	HistoryLimit       int           `koanf:"history_limit"       validate:"required,min=1,max=366"`
	HistoryConcurrency int           `koanf:"history_concurrency" validate:"required,min=1,max=64"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "esoteric-daily",
		"app.version":     "dev",
		"app.environment": "local",
		"app.timezone":    "",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "120s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "90s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/esoteric-daily.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "esoteric-daily",
		"telemetry.sampling_rate": 1.0,
		"telemetry.insecure":      true,

		"client.timeout":                           "60s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "250ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"provider.kind":               "gemini",
		"provider.gemini.api_key":     "",
		"provider.gemini.text_model":  DefaultTextModel,
		"provider.gemini.image_model": DefaultImageModel,
		"provider.gemini.temperature": 1.0,
		"provider.gemini.base_url":    "",
		"provider.http.base_url":      "",
		"provider.http.name":          "oracle",

		"cache.driver":         "file",
		"cache.key_prefix":     DefaultKeyPrefix,
		"cache.dir":            "./data/daily",
		"cache.path":           "./data/esoteric.db",
		"cache.dsn":            "",
		"cache.table":          "daily_entries",
		"cache.retention_days": 30,

		"tasks.timeout":             "2m",
		"tasks.history_limit":       DefaultHistoryLimit,
		"tasks.history_concurrency": DefaultHistoryConcurrency,
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
//
// A Gemini API key left empty is then taken from GEMINI_API_KEY or API_KEY.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, "configs/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, fmt.Sprintf("configs/%s.yaml", profile)); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Provider.Gemini.APIKey == "" {
		for _, name := range envAPIKeys {
			if v := os.Getenv(name); v != "" {
				cfg.Provider.Gemini.APIKey = v
				break
			}
		}
	}

	return &cfg, nil
}

// envKeyMapper turns APP_CACHE_KEY_PREFIX into cache.key_prefix. Known keys
// are matched exactly so underscores inside a key survive; unknown variables
// fall back to treating every underscore as a separator.
func envKeyMapper(known []string) func(string) string {
	lookup := make(map[string]string, len(known))
	for _, key := range known {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, "APP_"))
		if key, ok := lookup[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}

// loadFileIfExists loads a YAML config file; a missing file is not an error.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
