package types

import "time"

// Step status values
const (
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// StepTiming records how one stage of a run went.
type StepTiming struct {
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the stage ended with an error.
func (s StepTiming) Failed() bool {
	return s.Status == StepStatusFailed
}
