package telemetry

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/jsamuelsen/esoteric-daily/telemetry"

	// TraceHeader echoes the active trace ID to callers.
	TraceHeader = "X-Trace-ID"
)

// httpInstruments are the server-side request instruments.
type httpInstruments struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	duration, durErr := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time spent serving a request"),
		metric.WithUnit("s"))
	total, totalErr := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Requests served"))
	inFlight, flightErr := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently being served"))

	if err := errors.Join(durErr, totalErr, flightErr); err != nil {
		return nil, err
	}

	return &httpInstruments{duration: duration, total: total, inFlight: inFlight}, nil
}

// Middleware records request metrics against the global meter and sets
// TraceHeader. Register it after TracingMiddleware so a span exists.
func Middleware() gin.HandlerFunc {
	inst, err := newHTTPInstruments(otel.Meter(instrumentationName))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := TraceID(ctx); id != "" {
			c.Header(TraceHeader, id)
		}

		if inst == nil {
			c.Next()
			return
		}

		began := time.Now()
		base := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		}

		inst.inFlight.Add(ctx, 1, metric.WithAttributes(base...))
		defer inst.inFlight.Add(ctx, -1, metric.WithAttributes(base...))

		c.Next()

		done := metric.WithAttributes(append(base, attribute.Int("http.status_code", c.Writer.Status()))...)
		inst.duration.Record(ctx, time.Since(began).Seconds(), done)
		inst.total.Add(ctx, 1, done)
	}
}

// TracingMiddleware opens a server span for each request.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
