package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// processStore implements driven.ProcessStore.
type processStore struct {
	store *Store
}

var _ driven.ProcessStore = (*processStore)(nil)

const selectRecord = `
	SELECT process_id, task_name, title, started_at, ended_at,
		processed, input_errors, output_errors, aborted, last_error
	FROM process_history`

// RecordProcess logs a finished process.
// Recording the same process twice replaces the earlier record.
func (s *processStore) RecordProcess(ctx context.Context, record *domain.ProcessRecord) error {
	if record == nil || record.ProcessID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO process_history (process_id, task_name, title, started_at, ended_at,
			processed, input_errors, output_errors, aborted, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(process_id) DO UPDATE SET
			task_name = excluded.task_name,
			title = excluded.title,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			processed = excluded.processed,
			input_errors = excluded.input_errors,
			output_errors = excluded.output_errors,
			aborted = excluded.aborted,
			last_error = excluded.last_error
	`, record.ProcessID, record.TaskName, record.Title,
		formatTime(record.StartedAt), formatTime(record.EndedAt),
		record.Processed, record.InputErrors, record.OutputErrors,
		boolToInt(record.Aborted), nullString(record.LastError))

	if err != nil {
		return fmt.Errorf("recording process: %w", err)
	}
	return nil
}

// GetProcess returns the record for a process.
func (s *processStore) GetProcess(ctx context.Context, processID string) (*domain.ProcessRecord, error) {
	row := s.store.db.QueryRowContext(ctx, selectRecord+" WHERE process_id = ?", processID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListHistory returns recent records.
// Results are ordered by start time descending (most recent first).
func (s *processStore) ListHistory(ctx context.Context, limit int) ([]domain.ProcessRecord, error) {
	rows, err := s.store.db.QueryContext(ctx,
		selectRecord+" ORDER BY started_at DESC LIMIT ?", queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying process history: %w", err)
	}
	return collectRecords(rows)
}

// ListTaskHistory returns recent records for one task name.
func (s *processStore) ListTaskHistory(ctx context.Context, taskName string, limit int) ([]domain.ProcessRecord, error) {
	rows, err := s.store.db.QueryContext(ctx,
		selectRecord+" WHERE task_name = ? ORDER BY started_at DESC LIMIT ?", taskName, queryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	return collectRecords(rows)
}

// PruneHistory removes old records beyond the retention limit.
// Keeps the most recent 'keep' records.
func (s *processStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM process_history
		WHERE process_id NOT IN (
			SELECT process_id FROM process_history
			ORDER BY started_at DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning process history: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one process_history row.
func scanRecord(row scanner) (*domain.ProcessRecord, error) {
	var record domain.ProcessRecord
	var startedAt, endedAt int64
	var aborted int
	var lastError sql.NullString

	if err := row.Scan(&record.ProcessID, &record.TaskName, &record.Title,
		&startedAt, &endedAt, &record.Processed, &record.InputErrors,
		&record.OutputErrors, &aborted, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning process record: %w", err)
	}

	record.StartedAt = parseTime(startedAt)
	record.EndedAt = parseTime(endedAt)
	record.Aborted = aborted == 1
	if lastError.Valid {
		record.LastError = lastError.String
	}
	return &record, nil
}

func collectRecords(rows *sql.Rows) ([]domain.ProcessRecord, error) {
	defer rows.Close()

	var records []domain.ProcessRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating process history: %w", err)
	}
	return records, nil
}

// queryLimit maps a non-positive limit to SQLite's "no limit".
func queryLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// formatTime stores times as Unix milliseconds; zero maps to 0.
func formatTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// parseTime is the inverse of formatTime.
func parseTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
