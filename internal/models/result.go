package models

import (
	"time"
)

// Result messages shared with the host.
const (
	MessageExecuted    = "Executed the build"
	MessageNothingToDo = "Nothing to do"
)

// ExecutionResult is the terminal outcome of one logical operation.
type ExecutionResult struct {
	Success bool
	Message string
	Cause   error
}

// Success builds a successful result.
func Success(message string) ExecutionResult {
	return ExecutionResult{Success: true, Message: message}
}

// Failure builds a failed result with an optional cause.
func Failure(message string, cause error) ExecutionResult {
	return ExecutionResult{Success: false, Message: message, Cause: cause}
}

// StepResult records a single process launch within a run.
type StepResult struct {
	Sequence    int
	Step        BuildStep
	Target      string
	CommandLine string
	ExitCode    int
	Result      ExecutionResult
	Duration    time.Duration
}

// RunReport aggregates everything that happened while executing one task.
type RunReport struct {
	ID        string
	Task      TaskConfig
	Context   ExecutionContext
	Result    ExecutionResult
	Steps     []StepResult
	StartedAt time.Time
	Duration  time.Duration
}

// FailedStep returns the first failed step, or nil.
func (r *RunReport) FailedStep() *StepResult {
	for i := range r.Steps {
		if !r.Steps[i].Result.Success {
			return &r.Steps[i]
		}
	}
	return nil
}

// Summary aggregates the reports of a task list.
type Summary struct {
	TotalTasks  int
	Completed   int
	Failed      int
	Skipped     int
	Duration    time.Duration
	FailedTasks []*RunReport
}
