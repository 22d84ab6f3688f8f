package domain

// ConnectorTemplate describes a connector type for configuration surfaces.
type ConnectorTemplate struct {
	// Type is the connector type identifier (e.g., "FOLDER", "JDBC").
	Type string
	// Role is the broker role the connector instantiates.
	Role BrokerRole
	// Name is the human-readable display name.
	Name string
	// Description provides a brief explanation of the connector.
	Description string
	// ConfigKeys lists the configuration fields understood by this connector.
	ConfigKeys []ConfigKey
}

// ConfigKey describes a configuration field for a connector.
type ConfigKey struct {
	// Key is the property name.
	Key string
	// Label is the human-readable label for UI display.
	Label string
	// Description explains what this field is for.
	Description string
	// Default is the default value for this field (shown in placeholder).
	Default string
	// Required indicates whether this field must be provided.
	Required bool
	// Secret indicates whether this field should be masked in UI (e.g., tokens).
	Secret bool
}

// RequiredKeys returns the keys that must be present in a definition.
func (t *ConnectorTemplate) RequiredKeys() []string {
	var keys []string
	for _, k := range t.ConfigKeys {
		if k.Required {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// CheckRequired verifies that every required key has a non-blank value in def.
func (t *ConnectorTemplate) CheckRequired(def EntityDefinition) error {
	for _, key := range t.RequiredKeys() {
		if _, err := def.Require(key); err != nil {
			return err
		}
	}
	return nil
}
