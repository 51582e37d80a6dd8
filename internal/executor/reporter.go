package executor

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/harrison/qtbuild/internal/models"
)

// ReportStep converts the outcome of one process launch into a result.
func ReportStep(step models.BuildStep, target string, exitCode int, err error) models.ExecutionResult {
	stepErr := &StepError{Step: step, Target: target, ExitCode: exitCode, Err: err}
	switch {
	case errors.Is(err, ErrCancelled):
		return models.Failure("Build cancelled", stepErr)
	case err != nil:
		return models.Failure(fmt.Sprintf("Failed to invoke the build! %v", err), stepErr)
	case exitCode == 0:
		return models.Success(models.MessageExecuted)
	default:
		stepErr.Err = ErrNonZeroExit
		return models.Failure(fmt.Sprintf("Could not execute build! Process returned with status code %d", exitCode), stepErr)
	}
}

// ReportValidation converts a configuration or command derivation error into
// a failed result whose message is the error text.
func ReportValidation(err error) models.ExecutionResult {
	return models.Failure(err.Error(), err)
}

// ReportPanic converts a recovered panic value into a failed result. When the
// value carries no message the stack trace is written to console line by line.
func ReportPanic(recovered any, console Console) models.ExecutionResult {
	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
	} else {
		cause = fmt.Errorf("%v", recovered)
	}
	message := cause.Error()
	if strings.TrimSpace(message) == "" && console != nil {
		for _, line := range strings.Split(strings.TrimRight(string(debug.Stack()), "\n"), "\n") {
			console.PrintLine(line)
		}
	}
	return models.Failure(message, fmt.Errorf("unexpected failure: %w", cause))
}
