package driving

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// Engine resolves task definitions and supervises the processes running them.
type Engine interface {
	// Validate checks a task definition without performing I/O.
	Validate(def domain.TaskDefinition) error

	// Submit resolves def into a task and returns a submitted process.
	// Engine-wide listeners are already attached; Begin has not been called.
	Submit(ctx context.Context, def domain.TaskDefinition) (ProcessInstance, error)

	// Get returns a tracked process.
	Get(processID string) (ProcessInstance, error)

	// List returns all tracked processes.
	List() []ProcessInstance

	// Abort aborts a tracked process.
	Abort(processID string) error

	// Purge stops tracking completed processes and returns how many were removed.
	Purge() int

	// History returns recent finished runs, most recent first.
	History(ctx context.Context, limit int) ([]domain.ProcessRecord, error)

	// TaskHistory returns recent finished runs of one task, most recent first.
	TaskHistory(ctx context.Context, taskName string, limit int) ([]domain.ProcessRecord, error)

	// Run returns the history record of one finished process.
	Run(ctx context.Context, processID string) (*domain.ProcessRecord, error)
}

// ConnectorCatalog lists the connector types known to the engine.
type ConnectorCatalog interface {
	// Templates returns templates for every registered connector, sorted by role then type.
	Templates() []domain.ConnectorTemplate
}
