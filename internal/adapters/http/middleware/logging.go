package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// probePrefix marks liveness and readiness routes, which are not logged.
const probePrefix = "/-/"

// Logging logs each request when it starts and when it completes. It prefers
// the request-scoped logger installed by RequestID so IDs are attached.
func Logging(fallback *slog.Logger) gin.HandlerFunc {
	if fallback == nil {
		fallback = slog.Default()
	}

	return func(c *gin.Context) {
		r := c.Request
		if strings.HasPrefix(r.URL.Path, probePrefix) {
			c.Next()
			return
		}

		log, ok := logging.Lookup(r.Context())
		if !ok {
			log = fallback
		}

		target := r.URL.RequestURI()
		began := time.Now()

		log.Info("request started",
			slog.String("method", r.Method),
			slog.String("path", target),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", r.UserAgent()),
		)

		c.Next()

		elapsed := time.Since(began)
		status := c.Writer.Status()

		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", target),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.Int64("latency_ms", elapsed.Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		log.Log(r.Context(), statusLevel(status), "request completed", attrs...)
	}
}

// statusLevel logs server errors at error, client errors at warn.
func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
