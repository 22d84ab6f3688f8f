package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
)

// Ensure ConnectorRegistry implements the interface.
var _ driving.ConnectorCatalog = (*ConnectorRegistry)(nil)

// ConnectorRegistry maps connector types to the connectors that validate
// definitions and create brokers. Input and output connectors are kept in
// separate namespaces, so one type name (e.g. FOLDER) may serve both roles.
//
// The host application populates the registry once at startup; lookups
// after that are read-only.
type ConnectorRegistry struct {
	mu      sync.RWMutex
	inputs  map[string]driven.InputConnector
	outputs map[string]driven.OutputConnector
}

// NewConnectorRegistry creates an empty connector registry.
func NewConnectorRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		inputs:  make(map[string]driven.InputConnector),
		outputs: make(map[string]driven.OutputConnector),
	}
}

func normaliseType(typ string) string {
	return strings.ToUpper(strings.TrimSpace(typ))
}

// RegisterInput adds an input connector.
// Returns ErrAlreadyExists if the type is already registered.
func (r *ConnectorRegistry) RegisterInput(c driven.InputConnector) error {
	typ := normaliseType(c.Type())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inputs[typ]; ok {
		return fmt.Errorf("input connector %s: %w", typ, domain.ErrAlreadyExists)
	}
	r.inputs[typ] = c
	return nil
}

// RegisterOutput adds an output connector.
// Returns ErrAlreadyExists if the type is already registered.
func (r *ConnectorRegistry) RegisterOutput(c driven.OutputConnector) error {
	typ := normaliseType(c.Type())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outputs[typ]; ok {
		return fmt.Errorf("output connector %s: %w", typ, domain.ErrAlreadyExists)
	}
	r.outputs[typ] = c
	return nil
}

// ResolveInput returns the input connector for a type.
func (r *ConnectorRegistry) ResolveInput(typ string) (driven.InputConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.inputs[normaliseType(typ)]
	if !ok {
		return nil, fmt.Errorf("%w: no input connector for %q", domain.ErrUnknownType, typ)
	}
	return c, nil
}

// ResolveOutput returns the output connector for a type.
func (r *ConnectorRegistry) ResolveOutput(typ string) (driven.OutputConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.outputs[normaliseType(typ)]
	if !ok {
		return nil, fmt.Errorf("%w: no output connector for %q", domain.ErrUnknownType, typ)
	}
	return c, nil
}

// Resolve returns the connector serving a role and type.
func (r *ConnectorRegistry) Resolve(role domain.BrokerRole, typ string) (driven.Connector, error) {
	switch role {
	case domain.RoleSource:
		return r.ResolveInput(typ)
	case domain.RoleDestination:
		return r.ResolveOutput(typ)
	default:
		return nil, fmt.Errorf("%w: unknown broker role %q", domain.ErrInvalidInput, role)
	}
}

// Validate checks a broker definition against its connector without I/O.
func (r *ConnectorRegistry) Validate(def domain.BrokerDefinition) error {
	c, err := r.Resolve(def.Role, def.Type)
	if err != nil {
		return err
	}
	return c.Validate(def.EntityDefinition)
}

// ValidateTask checks every broker of a task definition and joins the failures.
func (r *ConnectorRegistry) ValidateTask(def domain.TaskDefinition) error {
	var errs []error
	if err := r.Validate(def.SourceDefinition()); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	for i, d := range def.DestinationDefinitions() {
		if err := r.Validate(d); err != nil {
			errs = append(errs, fmt.Errorf("destination %d (%s): %w", i, d.Label, err))
		}
	}
	return errors.Join(errs...)
}

// CreateInputBroker instantiates the input broker for def.
func (r *ConnectorRegistry) CreateInputBroker(def domain.EntityDefinition) (driven.InputBroker, error) {
	c, err := r.ResolveInput(def.Type)
	if err != nil {
		return nil, err
	}
	return c.CreateBroker(def.Clone())
}

// CreateOutputBroker instantiates the output broker for def.
func (r *ConnectorRegistry) CreateOutputBroker(def domain.EntityDefinition) (driven.OutputBroker, error) {
	c, err := r.ResolveOutput(def.Type)
	if err != nil {
		return nil, err
	}
	return c.CreateBroker(def.Clone())
}

// CreateTask resolves a task definition into a task owning fresh brokers.
// Brokers created before a failure are closed.
func (r *ConnectorRegistry) CreateTask(def domain.TaskDefinition) (*driven.Task, error) {
	source, err := r.CreateInputBroker(def.Source)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	destinations := make([]driven.OutputBroker, 0, len(def.Destinations))
	cleanup := func() {
		_ = source.Close()
		for _, d := range destinations {
			_ = d.Close()
		}
	}

	for i, d := range def.Destinations {
		broker, err := r.CreateOutputBroker(d)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("create destination %d (%s): %w", i, d.Label, err)
		}
		destinations = append(destinations, broker)
	}

	task, err := driven.NewTask(def.Name, source, destinations...)
	if err != nil {
		cleanup()
		return nil, err
	}
	return task, nil
}

// Templates returns templates for every registered connector, sorted by role then type.
func (r *ConnectorRegistry) Templates() []domain.ConnectorTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ConnectorTemplate, 0, len(r.inputs)+len(r.outputs))
	for _, c := range r.inputs {
		t := c.Template()
		t.Role = domain.RoleSource
		result = append(result, t)
	}
	for _, c := range r.outputs {
		t := c.Template()
		t.Role = domain.RoleDestination
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Role != result[j].Role {
			return result[i].Role == domain.RoleSource
		}
		return result[i].Type < result[j].Type
	})
	return result
}

// InputTypes returns the registered input connector types, sorted.
func (r *ConnectorRegistry) InputTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.inputs)
}

// OutputTypes returns the registered output connector types, sorted.
func (r *ConnectorRegistry) OutputTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.outputs)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
