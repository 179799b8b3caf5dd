package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// idMiddlewareConfig describes one propagated ID header.
type idMiddlewareConfig struct {
	headerName string
	contextKey string

	// enrich stores the ID on the request context so outbound provider
	// calls and the context logger pick it up.
	enrich func(ctx context.Context, id string) context.Context
}

// createIDMiddleware extracts the header or generates a UUID, echoes it in
// the response, and stores it on both contexts.
func createIDMiddleware(cfg idMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cfg.headerName)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(cfg.contextKey, id)
		c.Header(cfg.headerName, id)

		if cfg.enrich != nil {
			c.Request = c.Request.WithContext(cfg.enrich(c.Request.Context(), id))
		}

		c.Next()
	}
}

func getIDFromContext(c *gin.Context, key string) string {
	if id, exists := c.Get(key); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}
