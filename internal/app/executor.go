package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// Every remote fetch in the workflow runs as an Operation:
//
//	VALIDATE  preconditions, before any remote call
//	PERFORM   the provider call
//	VERIFY    the provider's answer, never trusted as-is
//	ARCHIVE   persist the verified result
//	RESPOND   shape the result for the caller
//
// A failing step stops the operation, so nothing unverified reaches the cache.

// ExecutionStep names a step of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records which step failed.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

// Unwrap returns the cause so domain errors stay matchable with errors.Is.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs operations with step-level logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger means slog.Default().
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is a named sequence of optional steps. I is the input, P what
// Perform produced, V the verified value and O the caller's result.
type Operation[I, P, V, O any] struct {
	Name     string
	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)
}

// Execute runs op on input. Steps left nil are skipped; a skipped Verify
// yields the zero V.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var (
		zeroO     O
		performed P
		verified  V
		result    O
	)

	logger := exec.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	logger = logger.With(slog.String("operation", op.Name))
	start := time.Now()

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
			return zeroO, &ExecutionError{Step: StepValidate, Message: "input validation failed", Cause: err}
		}
	}

	if op.Perform != nil {
		var err error

		logger.DebugContext(ctx, "performing operation")

		if performed, err = op.Perform(ctx, input); err != nil {
			logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))
			return zeroO, &ExecutionError{Step: StepPerform, Message: "operation failed", Cause: err}
		}
	}

	if op.Verify != nil {
		var err error

		if verified, err = op.Verify(ctx, input, performed); err != nil {
			logger.ErrorContext(ctx, "verification failed", slog.Any("error", err))
			return zeroO, &ExecutionError{Step: StepVerify, Message: "verification failed", Cause: err}
		}
	}

	if op.Archive != nil {
		if err := op.Archive(ctx, input, verified); err != nil {
			logger.ErrorContext(ctx, "archive failed", slog.Any("error", err))
			return zeroO, &ExecutionError{Step: StepArchive, Message: "state persistence failed", Cause: err}
		}
	}

	if op.Respond != nil {
		var err error

		if result, err = op.Respond(ctx, input, verified); err != nil {
			logger.WarnContext(ctx, "respond failed", slog.Any("error", err))
			return zeroO, &ExecutionError{Step: StepRespond, Message: "response failed", Cause: err}
		}
	}

	logger.InfoContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// IsExecutionError reports whether err came out of Execute.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep returns the step at which err occurred.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
