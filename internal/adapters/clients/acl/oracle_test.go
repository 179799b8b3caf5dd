package acl

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
)

var hermetic = domain.WisdomEntry{
	Quote:               "As above, so below.",
	Source:              "The Emerald Tablet",
	Topic:               "Hermeticism",
	BriefInterpretation: "The inner world mirrors the outer one.",
}

func testClient(t *testing.T, baseURL string) *clients.Client {
	t.Helper()

	client, err := clients.New(&clients.Config{
		ServiceName: "oracle",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   10,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 3,
		},
	})
	require.NoError(t, err)

	return client
}

func setupOracle(t *testing.T, handler http.HandlerFunc) *Oracle {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOracle(OracleConfig{
		Client: testClient(t, server.URL),
		Name:   "oracle",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNewOracle_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewOracle(OracleConfig{}) })
}

func TestNewOracle_Defaults(t *testing.T) {
	o := NewOracle(OracleConfig{Client: testClient(t, "http://localhost")})

	assert.Equal(t, "oracle", o.Name())
	assert.NotNil(t, o.logger)
}

func TestOracle_Generate(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wisdom", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"quote": "  As above, so below. ",
			"source": "The Emerald Tablet",
			"topic": "Hermeticism",
			"briefInterpretation": "The inner world mirrors the outer one."
		}`))
	})

	wisdom, err := o.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hermetic, *wisdom)
}

func TestOracle_GenerateIncompleteWisdom(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"quote":"Know thyself","source":"","topic":"Delphi","briefInterpretation":"x"}`))
	})

	_, err := o.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsProvider(err))
	assert.ErrorContains(t, err, "wisdom.source")
}

func TestOracle_GenerateInvalidJSON(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := o.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsProvider(err))
}

func TestOracle_GenerateServerError(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := o.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsProvider(err))
	assert.True(t, domain.IsUnavailable(err))
}

func TestOracle_Explain(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/explanation", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got wisdomDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, toWisdomDTO(hermetic), got)

		_, _ = w.Write([]byte(`{"text":"## The Emerald Tablet\n\nA long reading."}`))
	})

	text, err := o.Explain(context.Background(), hermetic)
	require.NoError(t, err)
	assert.Equal(t, "## The Emerald Tablet\n\nA long reading.", text)
}

func TestOracle_ExplainBlank(t *testing.T) {
	o := setupOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text":"   "}`))
	})

	_, err := o.Explain(context.Background(), hermetic)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.True(t, domain.IsProvider(err))
}

func TestOracle_Illustrate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"image", http.StatusOK, `{"imageUrl":"https://img.example.com/emerald.png"}`, "https://img.example.com/emerald.png", false},
		{"no content", http.StatusNoContent, "", "", false},
		{"empty url", http.StatusOK, `{"imageUrl":""}`, "", false},
		{"rejected", http.StatusUnprocessableEntity, `{"message":"unsafe"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := setupOracle(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/illustration", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := o.Illustrate(context.Background(), hermetic)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsProvider(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_Check(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	o := setupOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)

		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, o.Check(context.Background()))

	healthy.Store(false)
	assert.Error(t, o.Check(context.Background()))
}
