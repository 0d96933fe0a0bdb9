package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a validation run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Project     string     `json:"project"`
	Environment string     `json:"environment"`
	TaskID      string     `json:"task_id"`
	Status      string     `json:"status"`
	IssueCount  int        `json:"issue_count"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run status values
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

const schemaSQL = `
CREATE TABLE IF NOT EXISTS validation_runs (
	id           UUID PRIMARY KEY,
	project      TEXT NOT NULL,
	environment  TEXT NOT NULL,
	task_id      TEXT NOT NULL,
	status       TEXT NOT NULL,
	issue_count  INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS validation_records (
	run_id     UUID NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	issue_type TEXT NOT NULL,
	item       TEXT NOT NULL,
	language   TEXT NOT NULL,
	element    TEXT NOT NULL,
	message    TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS validation_run_steps (
	run_id        UUID NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	step          TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
`
