package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/env-validator/internal/types"
)

// -----------------------------------------------------------------------------
// Run Steps Methods
// -----------------------------------------------------------------------------

// SaveRunSteps replaces the step timings of a run.
func (db *DB) SaveRunSteps(ctx context.Context, runID uuid.UUID, steps []types.StepTiming) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM validation_run_steps WHERE run_id = $1`, runID)
	for i, s := range steps {
		batch.Queue(
			`INSERT INTO validation_run_steps (run_id, position, step, status, started_at, duration_ms, error_message)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, i, s.Step, s.Status, s.StartedAt, s.DurationMs, s.Error,
		)
	}

	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save run steps: %w", err)
	}
	return nil
}

// ListRunSteps returns the step timings of a run in execution order.
func (db *DB) ListRunSteps(ctx context.Context, runID uuid.UUID) ([]types.StepTiming, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step, status, started_at, duration_ms, error_message
		 FROM validation_run_steps WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}

	steps, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.StepTiming])
	if err != nil {
		return nil, fmt.Errorf("failed to scan run steps: %w", err)
	}
	return steps, nil
}
