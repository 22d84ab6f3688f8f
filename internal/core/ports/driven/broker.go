package driven

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// Broker is a connector-instantiated endpoint.
// String is used to build process titles.
type Broker interface {
	fmt.Stringer

	// Definition returns the definition the broker was created from.
	Definition() domain.EntityDefinition

	// Close releases resources. Safe to call more than once.
	Close() error
}

// InputBroker produces data references.
//
// HasNext and Next together form a lazy, finite, forward-only sequence
// that cannot be restarted. Any error they return is fatal to the harvest
// run; brokers should return *domain.DataInputError, other errors are
// wrapped by the caller.
type InputBroker interface {
	Broker

	// HasNext reports whether another record is available.
	HasNext(ctx context.Context) (bool, error)

	// Next returns the next record. Only valid after HasNext returned true.
	Next(ctx context.Context) (domain.DataReference, error)
}

// OutputBroker publishes data references to a destination.
// A Publish error is scoped to that record and destination; brokers
// should return *domain.DataOutputError.
type OutputBroker interface {
	Broker

	// Publish durably publishes one record.
	Publish(ctx context.Context, ref domain.DataReference) error
}

// Task pairs one input broker with an ordered set of output brokers.
// The destination set is fixed at construction.
type Task struct {
	name         string
	source       InputBroker
	destinations []OutputBroker
}

// NewTask creates a task. destinations may be empty; the harvest is then a no-op.
func NewTask(name string, source InputBroker, destinations ...OutputBroker) (*Task, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: task requires a source", domain.ErrInvalidInput)
	}
	for i, d := range destinations {
		if d == nil {
			return nil, fmt.Errorf("%w: destination %d is nil", domain.ErrInvalidInput, i)
		}
	}
	return &Task{
		name:         name,
		source:       source,
		destinations: slices.Clone(destinations),
	}, nil
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Source returns the input broker.
func (t *Task) Source() InputBroker { return t.source }

// Destinations returns a copy of the output brokers in publish order.
func (t *Task) Destinations() []OutputBroker { return slices.Clone(t.destinations) }

// String returns "source --> [dest1, dest2]".
func (t *Task) String() string {
	names := make([]string, 0, len(t.destinations))
	for _, d := range t.destinations {
		names = append(names, d.String())
	}
	return fmt.Sprintf("%s --> [%s]", t.source.String(), strings.Join(names, ", "))
}

// Close closes every broker owned by the task and joins their errors.
// A broker that panics while closing is reported as an error and the
// remaining brokers are still closed.
func (t *Task) Close() error {
	var errs []error
	if err := closeBroker(t.source); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	for _, d := range t.destinations {
		if err := closeBroker(d); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

func closeBroker(b Broker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("close panic: %v", r)
		}
	}()
	return b.Close()
}
