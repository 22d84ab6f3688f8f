package driving

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// ProcessInstance is one executable, observable, cancellable run of a task.
type ProcessInstance interface {
	// ID returns the process identifier.
	ID() string

	// Task returns the task being harvested.
	Task() *driven.Task

	// Title returns "source --> [destinations]". For observability only.
	Title() string

	// Status returns a consistent snapshot of the lifecycle state.
	Status() domain.Status

	// AddListener registers a listener. Safe to call concurrently with a running harvest.
	AddListener(l Listener)

	// Begin starts the harvest. Fails with domain.ErrInvalidState unless submitted.
	Begin() error

	// Abort requests cooperative cancellation. Fails with domain.ErrInvalidState unless working.
	Abort() error

	// Done is closed once the process reaches completed.
	Done() <-chan struct{}

	// Wait blocks until the process completes or ctx is done.
	Wait(ctx context.Context) error
}

// Processor turns a task into a submitted process instance.
type Processor interface {
	// Type identifies the processor variant.
	Type() string

	// Definition returns the processor's entity definition.
	Definition() domain.EntityDefinition

	// CreateProcess returns a process in submitted state.
	CreateProcess(task *driven.Task) (ProcessInstance, error)
}
