package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/dto"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// Recovery returns middleware that turns a panic into a 500 INTERNAL_ERROR
// envelope and logs it with the stack. Apply it first.
//
// logger is used when the request context carries no logger yet, which is
// the case for panics raised before the Logging middleware runs.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			log := logger
			if log == nil {
				log = slog.Default()
			}

			if ctxLogger, ok := logging.Lookup(c.Request.Context()); ok {
				log = ctxLogger
			}

			log.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", dto.GetTraceID(c)),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			dto.RespondWithCode(c, dto.ErrorCodeInternal, "an internal error occurred")
			c.Abort()
		}()

		c.Next()
	}
}
