//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/events"
	httpadapter "github.com/jsamuelsen/esoteric-daily/internal/adapters/http"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/handlers"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/middleware"
	"github.com/jsamuelsen/esoteric-daily/internal/bootstrap"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wisdomPayload is the oracle's wire shape for base content.
type wisdomPayload struct {
	Quote               string `json:"quote"`
	Source              string `json:"source"`
	Topic               string `json:"topic"`
	BriefInterpretation string `json:"briefInterpretation"`
}

func defaultWisdom() wisdomPayload {
	return wisdomPayload{
		Quote:               "That which is below is like that which is above.",
		Source:              "Emerald Tablet",
		Topic:               "Hermeticism",
		BriefInterpretation: "The small mirrors the great.",
	}
}

// fakeOracle is a scriptable oracle service. Every route counts its calls
// and remembers the request ID it was sent.
type fakeOracle struct {
	mu sync.Mutex

	wisdom           wisdomPayload
	explanation      string
	explainFailures  int
	explainStatus    int
	imageURL         string
	wisdomDelay      time.Duration
	calls            map[string]int
	lastRequestIDs   map[string]string
	lastCorrelations map[string]string

	server *httptest.Server
}

func newFakeOracle() *fakeOracle {
	o := &fakeOracle{
		wisdom:           defaultWisdom(),
		explanation:      "The Tablet teaches that every plane reflects every other.",
		explainStatus:    http.StatusInternalServerError,
		calls:            make(map[string]int),
		lastRequestIDs:   make(map[string]string),
		lastCorrelations: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wisdom", o.handleWisdom)
	mux.HandleFunc("POST /explanation", o.handleExplanation)
	mux.HandleFunc("POST /illustration", o.handleIllustration)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		o.record("health", r)
		w.WriteHeader(http.StatusOK)
	})

	o.server = httptest.NewServer(mux)

	return o
}

func (o *fakeOracle) record(route string, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls[route]++
	o.lastRequestIDs[route] = r.Header.Get(middleware.HeaderRequestID)
	o.lastCorrelations[route] = r.Header.Get(middleware.HeaderCorrelationID)
}

func (o *fakeOracle) handleWisdom(w http.ResponseWriter, r *http.Request) {
	o.record("wisdom", r)

	o.mu.Lock()
	payload, delay := o.wisdom, o.wisdomDelay
	o.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (o *fakeOracle) handleExplanation(w http.ResponseWriter, r *http.Request) {
	o.record("explanation", r)

	o.mu.Lock()
	fail := o.explainFailures > 0
	if fail {
		o.explainFailures--
	}
	status, text := o.explainStatus, o.explanation
	o.mu.Unlock()

	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, `{"error":{"code":"UNAVAILABLE","message":"the oracle is meditating"}}`)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
}

func (o *fakeOracle) handleIllustration(w http.ResponseWriter, r *http.Request) {
	o.record("illustration", r)

	o.mu.Lock()
	url := o.imageURL
	o.mu.Unlock()

	if url == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"imageUrl": url})
}

func (o *fakeOracle) callCount(route string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.calls[route]
}

func (o *fakeOracle) requestID(route string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lastRequestIDs[route]
}

func (o *fakeOracle) correlationID(route string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lastCorrelations[route]
}

func (o *fakeOracle) close() {
	o.server.Close()
}

// testClock is a settable clock shared with the workflow.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(date string) *testClock {
	c := &testClock{}
	c.set(date)

	return c
}

func (c *testClock) set(date string) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}

	c.mu.Lock()
	c.now = t.Add(9 * time.Hour)
	c.mu.Unlock()
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// stackConfig returns a complete configuration for the oracle provider and
// an in-memory cache. Retries are off so failure counts are exact.
func stackConfig(oracleURL string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "esoteric-daily", Version: "integration", Environment: "test", Timezone: "UTC"},
		Client: config.ClientConfig{
			Timeout: 5 * time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     1,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     100 * time.Millisecond,
				Multiplier:      2,
			},
			CircuitBreaker: config.CircuitBreakerConfig{MaxFailures: 10, Timeout: time.Second, HalfOpenLimit: 1},
			Transport:      config.TransportConfig{MaxIdleConns: 8, MaxIdleConnsPerHost: 4, IdleConnTimeout: 5 * time.Second},
		},
		Provider: config.ProviderConfig{
			Kind: bootstrap.ProviderHTTP,
			HTTP: config.HTTPProviderConfig{BaseURL: oracleURL, Name: "oracle"},
		},
		Cache: config.CacheConfig{
			Driver:        "memory",
			KeyPrefix:     config.DefaultKeyPrefix,
			Table:         "daily_entries",
			RetentionDays: 30,
		},
		Tasks: config.TasksConfig{Timeout: 5 * time.Second, HistoryLimit: 7, HistoryConcurrency: 4},
	}
}

// stack is the whole service in process: oracle, workflow, router and an
// HTTP server in front of them.
type stack struct {
	oracle *fakeOracle
	clock  *testClock
	app    *bootstrap.App
	broker *events.Broker
	server *httptest.Server
}

// startStack builds the service over cache. The oracle is owned by the
// caller so it can outlive a restart.
func startStack(oracle *fakeOracle, clock *testClock, cache *config.CacheConfig) (*stack, error) {
	cfg := stackConfig(oracle.server.URL)
	if cache != nil {
		cfg.Cache = *cache
	}

	logger := discardLogger()
	broker := events.NewBroker(0, logger)

	daily, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{
		Logger: logger,
		Events: broker,
		Clock:  clock.Now,
	})
	if err != nil {
		broker.Close()
		return nil, err
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: handlers.NewHealthHandler(daily.Health, handlers.NewBuildInfo("integration", "none", "now"), daily.Service.CurrentDate),
		DailyHandler:  handlers.NewDailyHandler(daily.Service, cfg.Tasks.HistoryLimit),
		Events:        broker,
		Timeout:       10 * time.Second,
	})

	return &stack{
		oracle: oracle,
		clock:  clock,
		app:    daily,
		broker: broker,
		server: httptest.NewServer(engine),
	}, nil
}

// stop ends event streams, shuts the server, waits for background work
// and closes the store.
func (s *stack) stop() error {
	s.broker.Close()
	s.server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.app.Close(ctx)
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

func (s *stack) do(method, path string, headers map[string]string) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.server.URL+path, strings.NewReader(""))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.server.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}
