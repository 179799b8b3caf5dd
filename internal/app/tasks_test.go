package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_OutlivesSubmitter(t *testing.T) {
	rec := newCountingRecorder()
	runner := NewTaskRunner(TaskRunnerConfig{Logger: discardLogger(), Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())

	var sawCancel atomic.Bool
	release := make(chan struct{})

	require.NoError(t, runner.Submit(ctx, "illustrate", func(taskCtx context.Context) error {
		<-release
		sawCancel.Store(taskCtx.Err() != nil)
		return nil
	}))

	cancel()
	close(release)
	runner.Wait()

	assert.False(t, sawCancel.Load(), "task context must not inherit the submitter's cancellation")
	assert.Equal(t, 1, rec.finishedCount("illustrate/ok"))
	require.NoError(t, runner.Shutdown(context.Background()))
}

func TestTaskRunner_Outcomes(t *testing.T) {
	rec := newCountingRecorder()
	runner := NewTaskRunner(TaskRunnerConfig{
		Timeout:  20 * time.Millisecond,
		Logger:   discardLogger(),
		Recorder: rec,
	})

	ctx := context.Background()

	require.NoError(t, runner.Submit(ctx, "fail", func(context.Context) error {
		return errors.New("provider down")
	}))
	require.NoError(t, runner.Submit(ctx, "panic", func(context.Context) error {
		panic("boom")
	}))
	require.NoError(t, runner.Submit(ctx, "slow", func(taskCtx context.Context) error {
		<-taskCtx.Done()
		return taskCtx.Err()
	}))

	runner.Wait()

	assert.Equal(t, 1, rec.finishedCount("fail/failed"))
	assert.Equal(t, 1, rec.finishedCount("panic/panicked"))
	assert.Equal(t, 1, rec.finishedCount("slow/timed_out"))
	require.NoError(t, runner.Shutdown(ctx))
}

func TestTaskRunner_ShutdownRejectsNewWork(t *testing.T) {
	runner := NewTaskRunner(TaskRunnerConfig{Logger: discardLogger()})
	require.NoError(t, runner.Shutdown(context.Background()))

	err := runner.Submit(context.Background(), "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestTaskRunner_ShutdownDeadlineCancelsTasks(t *testing.T) {
	runner := NewTaskRunner(TaskRunnerConfig{Timeout: time.Minute, Logger: discardLogger()})

	require.NoError(t, runner.Submit(context.Background(), "stuck", func(taskCtx context.Context) error {
		<-taskCtx.Done()
		return taskCtx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := runner.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
