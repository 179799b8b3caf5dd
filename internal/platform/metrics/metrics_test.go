package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	require.NoError(t, err)

	r.CacheLookup("hit")
	r.CacheLookup("hit")
	r.CacheLookup("corrupt")
	r.ProviderCall("explain", "ok", 2*time.Second)
	r.ProviderCall("illustrate", "error", time.Second)
	r.TaskStarted("illustrate")
	r.TaskStarted("illustrate")
	r.TaskFinished("illustrate", "ok")

	assert.InDelta(t, 2, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.cacheLookups.WithLabelValues("corrupt")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.providerCalls.WithLabelValues("illustrate", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.tasksInFlight), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.tasks.WithLabelValues("illustrate", "ok")), 0)

	expected := `
# HELP esoteric_cache_lookups_total Daily cache lookups by result (hit, miss, corrupt).
# TYPE esoteric_cache_lookups_total counter
esoteric_cache_lookups_total{result="corrupt"} 1
esoteric_cache_lookups_total{result="hit"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "esoteric_cache_lookups_total"))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
