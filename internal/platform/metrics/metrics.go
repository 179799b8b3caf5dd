// Package metrics exposes workflow counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "esoteric"

// Recorder counts cache lookups, provider calls and background tasks.
// It satisfies app.Recorder.
type Recorder struct {
	cacheLookups     *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	tasks            *prometheus.CounterVec
	tasksInFlight    prometheus.Gauge
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// makes them visible on the promhttp handler served at /-/metrics.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Daily cache lookups by result (hit, miss, corrupt).",
		}, []string{"result"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Generative provider calls by operation and result.",
		}, []string{"operation", "result"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Generative provider call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"operation"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Background tasks by name and result.",
		}, []string{"task", "result"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "in_flight",
			Help:      "Background tasks currently running.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.cacheLookups, r.providerCalls, r.providerDuration, r.tasks, r.tasksInFlight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// CacheLookup counts one cache read.
func (r *Recorder) CacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ProviderCall counts one provider call and observes its latency.
func (r *Recorder) ProviderCall(operation, result string, elapsed time.Duration) {
	r.providerCalls.WithLabelValues(operation, result).Inc()
	r.providerDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// TaskStarted marks a background task as running.
func (r *Recorder) TaskStarted(string) {
	r.tasksInFlight.Inc()
}

// TaskFinished records a background task outcome.
func (r *Recorder) TaskFinished(task, result string) {
	r.tasksInFlight.Dec()
	r.tasks.WithLabelValues(task, result).Inc()
}
