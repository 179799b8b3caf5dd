package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(context.Context) string
	}{
		{
			name:       "request id",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    RequestIDFromContext,
		},
		{
			name:       "correlation id",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    CorrelationIDFromContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for _, incoming := range []string{"", "upstream-7"} {
				var ginID, ctxID string

				router := gin.New()
				router.Use(tt.middleware)
				router.GET("/api/v1/daily", func(c *gin.Context) {
					ginID = tt.fromGin(c)
					ctxID = tt.fromCtx(c.Request.Context())
					c.Status(http.StatusOK)
				})

				req := httptest.NewRequest(http.MethodGet, "/api/v1/daily", nil)
				if incoming != "" {
					req.Header.Set(tt.header, incoming)
				}

				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)

				require.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, w.Header().Get(tt.header), ginID)
				assert.Equal(t, ginID, ctxID)

				if incoming == "" {
					_, err := uuid.Parse(ginID)
					assert.NoError(t, err)
				} else {
					assert.Equal(t, incoming, ginID)
				}
			}
		})
	}
}

func TestIDMiddleware_EnrichesContextLogger(t *testing.T) {
	t.Parallel()

	logger, buf := bufferLogger()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	})
	router.Use(RequestID(), CorrelationID())
	router.GET("/", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("hello")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "correlation_id=corr-1")
}

func TestGetIDFromContext(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))

	c.Set(ContextKeyRequestID, 123)
	assert.Empty(t, GetRequestID(c))

	c.Set(ContextKeyCorrelationID, "abc")
	assert.Equal(t, "abc", GetCorrelationID(c))
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRequestID(context.Background(), "request-123")
	ctx = ContextWithCorrelationID(ctx, "correlation-456")

	assert.Equal(t, "request-123", RequestIDFromContext(ctx))
	assert.Equal(t, "correlation-456", CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil context is handled
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		wantLog   bool
		wantLevel string
	}{
		{name: "api request", path: "/api/v1/daily?date=2024-06-01", status: http.StatusOK, wantLog: true, wantLevel: "level=INFO"},
		{name: "client error", path: "/api/v1/history?limit=0", status: http.StatusBadRequest, wantLog: true, wantLevel: "level=WARN"},
		{name: "provider error", path: "/api/v1/daily", status: http.StatusBadGateway, wantLog: true, wantLevel: "level=ERROR"},
		{name: "probe skipped", path: "/-/ready", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := bufferLogger()

			router := gin.New()
			router.Use(Logging(logger))
			router.Any("/*any", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}

			assert.Contains(t, buf.String(), "request started")
			assert.Contains(t, buf.String(), "request completed")
			assert.Contains(t, buf.String(), tt.wantLevel)
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("normal request passes through", func(t *testing.T) {
		t.Parallel()

		logger, buf := bufferLogger()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, buf.String())
	})

	t.Run("panic becomes 500 envelope", func(t *testing.T) {
		t.Parallel()

		logger, buf := bufferLogger()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/", func(*gin.Context) { panic("the mists are too thick") })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "req-panic")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Contains(t, w.Body.String(), "req-panic")
		assert.Contains(t, buf.String(), "panic recovered")
		assert.Contains(t, buf.String(), "the mists are too thick")
	})

	t.Run("panic after write keeps status", func(t *testing.T) {
		t.Parallel()

		logger, _ := bufferLogger()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/", func(c *gin.Context) {
			c.String(http.StatusAccepted, "partial")
			panic("late")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})
}

func TestSimpleTimeout(t *testing.T) {
	t.Parallel()

	t.Run("sets deadline", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool

		router := gin.New()
		router.Use(SimpleTimeout(time.Second))
		router.GET("/", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hasDeadline)
	})

	t.Run("unwritten response after deadline is 504", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(SimpleTimeout(10 * time.Millisecond))
		router.GET("/", func(c *gin.Context) {
			<-c.Request.Context().Done()
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "TIMEOUT")
	})

	t.Run("written response is left alone", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(SimpleTimeout(10 * time.Millisecond))
		router.GET("/", func(c *gin.Context) {
			<-c.Request.Context().Done()
			c.Status(http.StatusBadGateway)
			c.Writer.WriteHeaderNow()
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
