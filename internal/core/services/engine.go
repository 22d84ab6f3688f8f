package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// ListenerFactory builds a listener for a newly submitted process.
type ListenerFactory func(process driving.ProcessInstance) driving.Listener

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProcessStore records finished processes in store and keeps the most
// recent keep records.
func WithProcessStore(store driven.ProcessStore, keep int) EngineOption {
	return func(e *Engine) {
		e.store = store
		e.keep = keep
	}
}

// WithListeners attaches a listener built by each factory to every submitted process.
func WithListeners(factories ...ListenerFactory) EngineOption {
	return func(e *Engine) {
		e.factories = append(e.factories, factories...)
	}
}

// WithDefaultProcessor overrides the processor type used when a task names none.
func WithDefaultProcessor(typ string) EngineOption {
	return func(e *Engine) {
		e.defaultProcessor = typ
	}
}

// Engine resolves task definitions through the connector registry, creates
// processes through the processor registry and tracks them until purged.
type Engine struct {
	connectors       *ConnectorRegistry
	processors       *ProcessorRegistry
	defaultProcessor string
	store            driven.ProcessStore
	keep             int
	factories        []ListenerFactory

	mu        sync.RWMutex
	processes map[string]driving.ProcessInstance
	order     []string
}

// Ensure Engine implements the interface.
var _ driving.Engine = (*Engine)(nil)

// NewEngine creates an engine.
func NewEngine(connectors *ConnectorRegistry, processors *ProcessorRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		connectors:       connectors,
		processors:       processors,
		defaultProcessor: DefaultProcessorType,
		keep:             DefaultHistoryLimit,
		processes:        make(map[string]driving.ProcessInstance),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks a task definition without performing I/O.
func (e *Engine) Validate(def domain.TaskDefinition) error {
	if _, err := e.processors.Resolve(def.ProcessorType(e.defaultProcessor)); err != nil {
		return err
	}
	if len(def.Destinations) == 0 {
		logger.Warn("Task %q has no destinations; it will complete without harvesting", def.Name)
	}
	return e.connectors.ValidateTask(def)
}

// Submit resolves def into a task and returns a submitted process.
func (e *Engine) Submit(ctx context.Context, def domain.TaskDefinition) (driving.ProcessInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.Validate(def); err != nil {
		return nil, err
	}

	processor, err := e.processors.Resolve(def.ProcessorType(e.defaultProcessor))
	if err != nil {
		return nil, err
	}

	task, err := e.connectors.CreateTask(def)
	if err != nil {
		return nil, err
	}

	process, err := processor.CreateProcess(task)
	if err != nil {
		_ = task.Close()
		return nil, fmt.Errorf("create process: %w", err)
	}

	if e.store != nil {
		process.AddListener(NewHistoryRecorder(e.store, e.keep, def.Name, process))
	}
	for _, factory := range e.factories {
		process.AddListener(factory(process))
	}

	e.mu.Lock()
	e.processes[process.ID()] = process
	e.order = append(e.order, process.ID())
	e.mu.Unlock()

	return process, nil
}

// Get returns a tracked process.
func (e *Engine) Get(processID string) (driving.ProcessInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.processes[processID]
	if !ok {
		return nil, fmt.Errorf("process %s: %w", processID, domain.ErrNotFound)
	}
	return p, nil
}

// List returns tracked processes in submission order.
func (e *Engine) List() []driving.ProcessInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]driving.ProcessInstance, 0, len(e.order))
	for _, id := range e.order {
		result = append(result, e.processes[id])
	}
	return result
}

// Abort aborts a tracked process.
func (e *Engine) Abort(processID string) error {
	p, err := e.Get(processID)
	if err != nil {
		return err
	}
	return p.Abort()
}

// Purge stops tracking completed processes.
func (e *Engine) Purge() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.order[:0]
	removed := 0
	for _, id := range e.order {
		if e.processes[id].Status() == domain.StatusCompleted {
			delete(e.processes, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	e.order = kept
	return removed
}

// History returns recent finished runs, most recent first.
// Without a process store the history is empty.
func (e *Engine) History(ctx context.Context, limit int) ([]domain.ProcessRecord, error) {
	if e.store == nil {
		return nil, nil
	}
	records, err := e.store.ListHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	sortRecent(records)
	return records, nil
}

// TaskHistory returns recent finished runs of one task, most recent first.
func (e *Engine) TaskHistory(ctx context.Context, taskName string, limit int) ([]domain.ProcessRecord, error) {
	if e.store == nil {
		return nil, nil
	}
	records, err := e.store.ListTaskHistory(ctx, taskName, limit)
	if err != nil {
		return nil, fmt.Errorf("list history of %s: %w", taskName, err)
	}
	sortRecent(records)
	return records, nil
}

// Run returns the history record of one finished process.
// Without a process store every lookup is domain.ErrNotFound.
func (e *Engine) Run(ctx context.Context, processID string) (*domain.ProcessRecord, error) {
	if e.store == nil {
		return nil, fmt.Errorf("run %s: %w", processID, domain.ErrNotFound)
	}
	record, err := e.store.GetProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", processID, err)
	}
	return record, nil
}

func sortRecent(records []domain.ProcessRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
}

// Connectors returns the connector registry.
func (e *Engine) Connectors() *ConnectorRegistry {
	return e.connectors
}
