package domain

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// EntityDefinition identifies a broker's kind and its configuration.
// Property keys and values are opaque strings interpreted by the matching connector.
type EntityDefinition struct {
	// Type is the connector type identifier (e.g., "FOLDER", "WAF").
	Type string

	// Label is the human-readable name.
	Label string

	// Properties holds connector-specific configuration.
	Properties map[string]string
}

// NewEntityDefinition creates a definition holding its own copy of props.
func NewEntityDefinition(typ, label string, props map[string]string) EntityDefinition {
	return EntityDefinition{
		Type:       typ,
		Label:      label,
		Properties: maps.Clone(props),
	}
}

// Get returns the trimmed value of a property, or empty string if absent.
func (d EntityDefinition) Get(key string) string {
	return strings.TrimSpace(d.Properties[key])
}

// GetOrDefault returns the property value or def when absent or blank.
func (d EntityDefinition) GetOrDefault(key, def string) string {
	if v := d.Get(key); v != "" {
		return v
	}
	return def
}

// List splits a comma-separated property into trimmed, non-empty items.
// Returns def when the property yields no items.
func (d EntityDefinition) List(key string, def ...string) []string {
	var items []string
	for _, part := range strings.Split(d.Properties[key], ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}

// Require returns the property value or an ErrInvalidDefinition error when missing.
func (d EntityDefinition) Require(key string) (string, error) {
	v := d.Get(key)
	if v == "" {
		return "", InvalidDefinitionf("%s: missing required property %q", d.Type, key)
	}
	return v, nil
}

// Clone returns a deep copy.
func (d EntityDefinition) Clone() EntityDefinition {
	return NewEntityDefinition(d.Type, d.Label, d.Properties)
}

// String returns a stable representation with sorted keys.
// Secret-looking properties are masked.
func (d EntityDefinition) String() string {
	keys := make([]string, 0, len(d.Properties))
	for k := range d.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := d.Properties[k]
		if isSecretKey(k) {
			v = "*****"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return fmt.Sprintf("%s[%s]{%s}", d.Type, d.Label, strings.Join(parts, ", "))
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "token") || strings.Contains(k, "secret")
}

// BrokerRole is the capability a broker definition is bound to.
type BrokerRole string

const (
	// RoleSource produces data references.
	RoleSource BrokerRole = "source"
	// RoleDestination publishes data references.
	RoleDestination BrokerRole = "destination"
)

// BrokerDefinition is an EntityDefinition bound to a role.
type BrokerDefinition struct {
	EntityDefinition
	Role BrokerRole
}

// NewBrokerDefinition binds def to role.
func NewBrokerDefinition(role BrokerRole, def EntityDefinition) BrokerDefinition {
	return BrokerDefinition{EntityDefinition: def.Clone(), Role: role}
}

// TaskDefinition is the persisted shape of a harvest task.
type TaskDefinition struct {
	// Name identifies the task in task files and history.
	Name string

	// Processor selects the processor; nil means the default processor.
	Processor *EntityDefinition

	// Source is the input broker definition.
	Source EntityDefinition

	// Destinations are the output broker definitions, in publish order.
	Destinations []EntityDefinition
}

// SourceDefinition returns the source bound to RoleSource.
func (t TaskDefinition) SourceDefinition() BrokerDefinition {
	return NewBrokerDefinition(RoleSource, t.Source)
}

// DestinationDefinitions returns the destinations bound to RoleDestination.
func (t TaskDefinition) DestinationDefinitions() []BrokerDefinition {
	defs := make([]BrokerDefinition, 0, len(t.Destinations))
	for _, d := range t.Destinations {
		defs = append(defs, NewBrokerDefinition(RoleDestination, d))
	}
	return defs
}

// ProcessorType returns the processor type, or fallback when unset.
func (t TaskDefinition) ProcessorType(fallback string) string {
	if t.Processor == nil || strings.TrimSpace(t.Processor.Type) == "" {
		return fallback
	}
	return t.Processor.Type
}
