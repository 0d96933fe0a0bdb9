package pipeline

import (
	"errors"
	"fmt"
)

// errStillRunning marks a status check that found the task unfinished.
var errStillRunning = errors.New("validation still running")

// ValidationFailedError is returned when the remote task reports "failed".
type ValidationFailedError struct {
	TaskID string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed (task %s)", e.TaskID)
}

// PollTimeoutError is returned when the task did not finish within the
// configured number of checks or poll timeout.
type PollTimeoutError struct {
	TaskID   string
	Attempts int
	Cause    error
}

func (e *PollTimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation task %s still running after %d checks: %v", e.TaskID, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("validation task %s still running after %d checks", e.TaskID, e.Attempts)
}

func (e *PollTimeoutError) Unwrap() error {
	return e.Cause
}
