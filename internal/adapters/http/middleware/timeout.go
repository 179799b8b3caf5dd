package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/http/dto"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// SimpleTimeout sets a deadline on the request context. Provider calls made
// by the handler inherit it. Handlers that return without writing once the
// deadline passed get a 504 TIMEOUT envelope.
//
// The handler runs on the request goroutine; nothing is aborted mid-flight.
func SimpleTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		logging.FromContext(ctx).Warn("request timeout",
			slog.String("path", c.Request.URL.Path),
			slog.String("method", c.Request.Method),
			slog.Duration("timeout", timeout),
		)

		if !c.Writer.Written() {
			dto.RespondWithCode(c, dto.ErrorCodeTimeout, "request timeout exceeded")
			c.Abort()
		}
	}
}
