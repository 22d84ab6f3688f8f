package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// DefaultProcessorType identifies the built-in processor.
const DefaultProcessorType = "DEFAULT"

// DefaultProcessor creates one goroutine-backed Process per task.
type DefaultProcessor struct {
	baseCtx context.Context
}

// Ensure DefaultProcessor implements the interface.
var _ driving.Processor = (*DefaultProcessor)(nil)

// NewDefaultProcessor creates a processor. Brokers of every process it
// creates receive baseCtx; a nil baseCtx means context.Background.
func NewDefaultProcessor(baseCtx context.Context) *DefaultProcessor {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &DefaultProcessor{baseCtx: baseCtx}
}

// Type returns the processor type.
func (p *DefaultProcessor) Type() string { return DefaultProcessorType }

// Definition returns the processor's entity definition.
func (p *DefaultProcessor) Definition() domain.EntityDefinition {
	return domain.NewEntityDefinition(DefaultProcessorType, DefaultProcessorType, nil)
}

// CreateProcess returns a submitted process for task.
func (p *DefaultProcessor) CreateProcess(task *driven.Task) (driving.ProcessInstance, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}
	logger.Info("SUBMITTING: %s", task)
	return newProcess(p.baseCtx, uuid.New().String(), task), nil
}

// ProcessorRegistry maps processor types to processors.
type ProcessorRegistry struct {
	mu         sync.RWMutex
	processors map[string]driving.Processor
}

// NewProcessorRegistry creates a registry holding the given processors.
func NewProcessorRegistry(processors ...driving.Processor) (*ProcessorRegistry, error) {
	r := &ProcessorRegistry{processors: make(map[string]driving.Processor)}
	for _, p := range processors {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a processor. Types are case-insensitive.
func (r *ProcessorRegistry) Register(p driving.Processor) error {
	if p == nil {
		return fmt.Errorf("%w: processor is required", domain.ErrInvalidInput)
	}
	typ := normaliseType(p.Type())
	if typ == "" {
		return fmt.Errorf("%w: processor type is required", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[typ]; exists {
		return fmt.Errorf("%w: processor %q", domain.ErrAlreadyExists, typ)
	}
	r.processors[typ] = p
	return nil
}

// Resolve returns the processor registered for typ.
func (r *ProcessorRegistry) Resolve(typ string) (driving.Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[normaliseType(typ)]
	if !ok {
		return nil, fmt.Errorf("%w: no processor for %q", domain.ErrUnknownType, strings.TrimSpace(typ))
	}
	return p, nil
}

// Types returns the registered processor types in sorted order.
func (r *ProcessorRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.processors))
	for typ := range r.processors {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
