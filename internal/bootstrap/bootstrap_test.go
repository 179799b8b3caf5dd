package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)
}

// oracleServer serves the plain HTTP provider protocol and counts wisdom calls.
func oracleServer(t *testing.T, wisdomCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wisdom", func(w http.ResponseWriter, _ *http.Request) {
		wisdomCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"quote":               "What is now proved was once only imagined.",
			"source":              "William Blake",
			"topic":               "Romantic Mysticism",
			"briefInterpretation": "Imagination precedes manifestation.",
		})
	})
	mux.HandleFunc("POST /illustration", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "esoteric-daily", Version: "test", Environment: "test", Timezone: "UTC"},
		Client: config.ClientConfig{
			Timeout: 5 * time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     1,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     100 * time.Millisecond,
				Multiplier:      2,
			},
			CircuitBreaker: config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Second, HalfOpenLimit: 1},
			Transport:      config.TransportConfig{MaxIdleConns: 4, MaxIdleConnsPerHost: 2, IdleConnTimeout: time.Second},
		},
		Provider: config.ProviderConfig{
			Kind: ProviderHTTP,
			HTTP: config.HTTPProviderConfig{BaseURL: baseURL, Name: "oracle"},
		},
		Cache: config.CacheConfig{Driver: "memory", KeyPrefix: "daily_esoteric_", Table: "daily_entries"},
		Tasks: config.TasksConfig{Timeout: 5 * time.Second, HistoryLimit: 7, HistoryConcurrency: 2},
	}
}

func TestBuild_HTTPProvider(t *testing.T) {
	var calls atomic.Int32

	server := oracleServer(t, &calls)

	a, err := Build(context.Background(), testConfig(server.URL), Options{
		Logger:     discardLogger(),
		Registerer: prometheus.NewRegistry(),
		Clock:      fixedClock,
	})
	require.NoError(t, err)

	ctx := context.Background()

	assert.Equal(t, "2024-06-01", a.Service.CurrentDate())
	assert.Equal(t, "UTC", a.Location.String())

	snap, err := a.Service.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.PhaseBaseReady, snap.Phase)
	assert.Equal(t, "William Blake", snap.Record.Wisdom.Source)

	// A second initialization is served from the cache.
	_, err = a.Service.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	cached, ok := a.Cache.Get(ctx, "2024-06-01")
	require.True(t, ok)
	assert.Equal(t, "Romantic Mysticism", cached.Wisdom.Topic)

	health := a.Health.CheckAll(ctx)
	assert.Equal(t, ports.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "cache-memory")
	assert.Contains(t, health.Checks, "oracle")

	require.NoError(t, a.Close(ctx))
}

func TestBuild_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "unknown timezone",
			mutate:  func(c *config.Config) { c.App.Timezone = "Atlantis/Capital" },
			wantErr: "resolving timezone",
		},
		{
			name:    "unknown cache driver",
			mutate:  func(c *config.Config) { c.Cache.Driver = "tape" },
			wantErr: "opening tape cache store",
		},
		{
			name: "gemini without api key",
			mutate: func(c *config.Config) {
				c.Provider.Kind = ProviderGemini
				c.Provider.Gemini = config.GeminiConfig{TextModel: "m", ImageModel: "i"}
			},
			wantErr: "creating gemini provider",
		},
		{
			name:    "unknown provider kind",
			mutate:  func(c *config.Config) { c.Provider.Kind = "carrier-pigeon" },
			wantErr: "unknown provider kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://127.0.0.1:1")
			tt.mutate(cfg)

			_, err := Build(context.Background(), cfg, Options{Logger: discardLogger()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewProviders_GeminiKeyIsValidated(t *testing.T) {
	cfg := testConfig("")
	cfg.Provider.Kind = ProviderGemini

	_, _, err := NewProviders(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
