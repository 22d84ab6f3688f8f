package driven

import "github.com/custodia-labs/harvester/internal/core/domain"

// TaskSource provides task definitions loaded from configuration storage.
type TaskSource interface {
	// Tasks returns every task definition in declaration order.
	Tasks() []domain.TaskDefinition

	// Task returns the named task definition.
	// Returns domain.ErrNotFound if no task has that name.
	Task(name string) (domain.TaskDefinition, error)
}
