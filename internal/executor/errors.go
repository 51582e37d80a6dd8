package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

var (
	// ErrLaunch indicates the process could not be started.
	ErrLaunch = errors.New("process launch failed")

	// ErrCancelled indicates the run was cancelled while a step was pending or running.
	ErrCancelled = errors.New("build cancelled")

	// ErrNonZeroExit indicates a process terminated with a non-zero status.
	ErrNonZeroExit = errors.New("process exited with non-zero status")
)

// StepError describes a failed step. It is attached as the cause of failed
// results so callers can inspect the step, target and exit code.
type StepError struct {
	Step     models.BuildStep
	Target   string
	ExitCode int
	Err      error
}

// Error implements the error interface for StepError.
func (e *StepError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("step %s", e.Step))
	if e.Target != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Target))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether result failed because the run was cancelled.
func IsCancelled(result models.ExecutionResult) bool {
	return !result.Success && errors.Is(result.Cause, ErrCancelled)
}
