package driven

import "github.com/custodia-labs/harvester/internal/core/domain"

// Connector validates definitions for one broker type.
// Each connector type (FOLDER, WAF, JDBC, etc.) implements one of the
// role-specific interfaces below.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Template describes the properties the connector understands.
	Template() domain.ConnectorTemplate

	// Validate checks structural well-formedness of a definition:
	// required properties present, URLs parseable, referenced options known.
	// It must not perform I/O.
	// Returns an error wrapping domain.ErrInvalidDefinition on failure.
	Validate(def domain.EntityDefinition) error
}

// InputConnector creates input brokers.
type InputConnector interface {
	Connector

	// CreateBroker validates def and instantiates the input broker.
	CreateBroker(def domain.EntityDefinition) (InputBroker, error)
}

// OutputConnector creates output brokers.
type OutputConnector interface {
	Connector

	// CreateBroker validates def and instantiates the output broker.
	CreateBroker(def domain.EntityDefinition) (OutputBroker, error)
}
