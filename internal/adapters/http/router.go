package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/handlers"
	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/middleware"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/config"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API requests. Generating wisdom can take a
// while, so it is generous.
const DefaultRequestTimeout = 60 * time.Second

// RouterConfig contains what SetupRouter wires together.
type RouterConfig struct {
	Logger *slog.Logger

	AppConfig *config.AppConfig

	HealthHandler *handlers.HealthHandler

	DailyHandler *handlers.DailyHandler

	// Events streams workflow events as SSE. It is mounted outside the
	// timeout group.
	Events http.Handler

	// Timeout is the per-request deadline for /api/v1 routes.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. OpenTelemetry - server span, then request metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Timeout - request deadline on the daily API only
//
// Route groups:
//   - /-/ (internal): probes, build info and metrics
//   - /api/v1/ (public API): daily wisdom, history and the event stream
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.AppConfig.Name),
		telemetry.Middleware(),
		middleware.Logging(cfg.Logger),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")

	if cfg.Events != nil {
		apiV1.GET("/events", gin.WrapH(cfg.Events))
	}

	timed := apiV1.Group("")
	if cfg.Timeout > 0 {
		timed.Use(middleware.SimpleTimeout(cfg.Timeout))
	}

	if cfg.DailyHandler != nil {
		cfg.DailyHandler.RegisterDailyRoutes(timed)
	}
}

// SetupMinimalRouter sets up a router with just health endpoints.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.RegisterHealthRoutesOnEngine(engine)
	}
}
