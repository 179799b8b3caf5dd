package app

import "time"

// Recorder receives workflow measurements. The Prometheus implementation
// lives in platform/metrics.
type Recorder interface {
	CacheLookup(result string)
	ProviderCall(operation, result string, elapsed time.Duration)
	TaskStarted(task string)
	TaskFinished(task, result string)
}

// NopRecorder discards measurements.
type NopRecorder struct{}

func (NopRecorder) CacheLookup(string)                         {}
func (NopRecorder) ProviderCall(string, string, time.Duration) {}
func (NopRecorder) TaskStarted(string)                         {}
func (NopRecorder) TaskFinished(string, string)                {}
