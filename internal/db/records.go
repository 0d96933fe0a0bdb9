package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/env-validator/internal/types"
)

var recordColumns = []string{"run_id", "position", "issue_type", "item", "language", "element", "message"}

// SaveRecords bulk-inserts the exported records of a run, keeping their order.
func (db *DB) SaveRecords(ctx context.Context, runID uuid.UUID, records []types.ExportRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{runID, i, rec.IssueType, rec.Item, rec.Language, rec.Element, rec.Message}
	}

	n, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"validation_records"},
		recordColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("failed to save records: copied %d of %d", n, len(records))
	}
	return nil
}

// ListRecords returns the records of a run in export order.
func (db *DB) ListRecords(ctx context.Context, runID uuid.UUID) ([]types.ExportRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT issue_type, item, language, element, message
		 FROM validation_records WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.ExportRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}
