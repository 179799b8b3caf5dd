// Package bootstrap builds the daily wisdom workflow from configuration.
// Both the HTTP service and the terminal client start here so they share
// one cache, one set of providers and the same defaults.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients/acl"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/storage"
	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/metrics"
	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

// Provider kinds accepted in provider.kind.
const (
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
)

// Options are the host-specific pieces Build cannot derive from config.
type Options struct {
	Logger *slog.Logger

	// Registerer receives the workflow metrics. Nil disables them.
	Registerer prometheus.Registerer

	// Events receives workflow events. Nil drops them.
	Events ports.EventPublisher

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// App is the assembled workflow and the resources behind it.
type App struct {
	Config   *config.Config
	Service  *app.DailyService
	Cache    *app.DailyCache
	Health   *ports.DefaultHealthRegistry
	Location *time.Location

	logger *slog.Logger
	store  storage.Store
}

// Build opens the store, creates the providers and wires the service.
// Resources opened before a failure are released before returning.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving timezone: %w", err)
	}

	var recorder app.Recorder = app.NopRecorder{}

	if opts.Registerer != nil {
		r, err := metrics.New(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}

		recorder = r
	}

	store, err := storage.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening %s cache store: %w", cfg.Cache.Driver, err)
	}

	providers, checkers, err := NewProviders(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	health := ports.NewHealthRegistry()

	for _, checker := range append([]ports.HealthChecker{store}, checkers...) {
		if err := health.Register(checker); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("registering health check: %w", err)
		}
	}

	cache := app.NewDailyCache(app.DailyCacheConfig{
		Store:     store,
		KeyPrefix: cfg.Cache.KeyPrefix,
		Logger:    logger,
		Recorder:  recorder,
	})

	tasks := app.NewTaskRunner(app.TaskRunnerConfig{
		Timeout:  cfg.Tasks.Timeout,
		Logger:   logger,
		Recorder: recorder,
	})

	service := app.NewDailyService(app.DailyServiceConfig{
		Cache:              cache,
		Providers:          providers,
		Tasks:              tasks,
		Events:             opts.Events,
		Recorder:           recorder,
		Logger:             logger,
		Clock:              opts.Clock,
		Location:           loc,
		HistoryConcurrency: cfg.Tasks.HistoryConcurrency,
		BaseTimeout:        cfg.Tasks.Timeout,
	})

	logger.Info("daily workflow ready",
		slog.String("provider", cfg.Provider.Kind),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("timezone", loc.String()),
		slog.String("today", service.CurrentDate()),
	)

	return &App{
		Config:   cfg,
		Service:  service,
		Cache:    cache,
		Health:   health,
		Location: loc,
		logger:   logger,
		store:    store,
	}, nil
}

// Close waits for background tasks, bounded by ctx, then closes the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if err := a.Service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for background tasks: %w", err))
	}

	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing cache store: %w", err))
	}

	return errors.Join(errs...)
}

// NewProviders creates the wisdom, explanation and illustration providers
// for cfg.Provider.Kind, all behind one resilient HTTP client. The returned
// checkers report provider health.
func NewProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Providers, []ports.HealthChecker, error) {
	clientCfg := &clients.Config{
		Timeout:   cfg.Client.Timeout,
		Retry:     cfg.Client.Retry,
		Circuit:   cfg.Client.CircuitBreaker,
		Transport: cfg.Client.Transport,
		Logger:    logger,
	}

	switch cfg.Provider.Kind {
	case ProviderGemini:
		clientCfg.ServiceName = ProviderGemini

		client, err := clients.New(clientCfg)
		if err != nil {
			return ports.Providers{}, nil, fmt.Errorf("creating gemini client: %w", err)
		}

		gemini, err := acl.NewGemini(ctx, acl.GeminiConfig{
			APIKey:      cfg.Provider.Gemini.APIKey,
			TextModel:   cfg.Provider.Gemini.TextModel,
			ImageModel:  cfg.Provider.Gemini.ImageModel,
			Temperature: cfg.Provider.Gemini.Temperature,
			BaseURL:     cfg.Provider.Gemini.BaseURL,
			Client:      client,
			Logger:      logger,
		})
		if err != nil {
			return ports.Providers{}, nil, fmt.Errorf("creating gemini provider: %w", err)
		}

		return ports.Providers{Wisdom: gemini, Explanation: gemini, Illustration: gemini},
			[]ports.HealthChecker{gemini}, nil

	case ProviderHTTP:
		clientCfg.ServiceName = cfg.Provider.HTTP.Name
		clientCfg.BaseURL = cfg.Provider.HTTP.BaseURL

		client, err := clients.New(clientCfg)
		if err != nil {
			return ports.Providers{}, nil, fmt.Errorf("creating oracle client: %w", err)
		}

		oracle := acl.NewOracle(acl.OracleConfig{
			Client: client,
			Name:   cfg.Provider.HTTP.Name,
			Logger: logger,
		})

		return ports.Providers{Wisdom: oracle, Explanation: oracle, Illustration: oracle},
			[]ports.HealthChecker{oracle}, nil

	default:
		return ports.Providers{}, nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}
