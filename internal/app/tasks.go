package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// ErrRunnerClosed is returned by Submit after Shutdown has begun.
var ErrRunnerClosed = errors.New("task runner closed")

// Task outcomes reported to the Recorder.
const (
	taskOK       = "ok"
	taskFailed   = "failed"
	taskPanicked = "panicked"
	taskTimedOut = "timed_out"
)

// DefaultTaskTimeout bounds a background task when no timeout is configured.
const DefaultTaskTimeout = 2 * time.Minute

// TaskFunc is a unit of background work.
type TaskFunc func(ctx context.Context) error

// TaskRunnerConfig holds settings for NewTaskRunner.
type TaskRunnerConfig struct {
	// Timeout bounds each task. Zero means DefaultTaskTimeout.
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
}

// TaskRunner runs fire-and-forget work whose lifetime is independent of the
// request that started it. Results are only observable through side effects.
type TaskRunner struct {
	base     context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewTaskRunner creates a runner ready to accept tasks.
func NewTaskRunner(cfg TaskRunnerConfig) *TaskRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTaskTimeout
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}

	base, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		base:     base,
		cancel:   cancel,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With(slog.String("component", "task_runner")),
		recorder: cfg.Recorder,
	}
}

// Submit starts fn in its own goroutine. The task context carries the
// submitter's logger and values but not its cancellation.
func (r *TaskRunner) Submit(ctx context.Context, name string, fn TaskFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}

	logger := r.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	logger = logger.With(slog.String("task", name))

	r.wg.Add(1)
	r.recorder.TaskStarted(name)

	go r.run(logging.WithContext(r.base, logger), name, fn)

	return nil
}

func (r *TaskRunner) run(ctx context.Context, name string, fn TaskFunc) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	start := time.Now()
	result := taskOK

	defer func() {
		if rec := recover(); rec != nil {
			result = taskPanicked
			logger.ErrorContext(ctx, "background task panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}

		r.recorder.TaskFinished(name, result)
		logger.DebugContext(ctx, "background task finished",
			slog.String("result", result),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	if err := fn(ctx); err != nil {
		result = taskFailed
		if errors.Is(err, context.DeadlineExceeded) {
			result = taskTimedOut
		}

		logger.WarnContext(ctx, "background task failed", slog.Any("error", err))
	}
}

// Wait blocks until every submitted task has returned.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones. If ctx expires
// first, running tasks are canceled and Shutdown returns ctx's error.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done

		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
