package driven

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// ProcessStore persists the history of finished process instances.
type ProcessStore interface {
	// RecordProcess logs a finished process.
	RecordProcess(ctx context.Context, record *domain.ProcessRecord) error

	// GetProcess returns the record for a process.
	// Returns domain.ErrNotFound if the process has no record.
	GetProcess(ctx context.Context, processID string) (*domain.ProcessRecord, error)

	// ListHistory returns recent records.
	// Results are ordered by start time descending (most recent first).
	ListHistory(ctx context.Context, limit int) ([]domain.ProcessRecord, error)

	// ListTaskHistory returns recent records for one task name.
	ListTaskHistory(ctx context.Context, taskName string, limit int) ([]domain.ProcessRecord, error)

	// PruneHistory removes old records beyond the retention limit.
	// Keeps the most recent 'keep' records.
	PruneHistory(ctx context.Context, keep int) error
}
