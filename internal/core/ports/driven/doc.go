// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a harvest to run:
//
//   - InputBroker: Produces a lazy, finite sequence of data references
//   - OutputBroker: Publishes one data reference to a destination
//   - InputConnector / OutputConnector: Validate definitions and create brokers
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - ProcessStore: Process history persistence. Without it, no history is kept.
//   - TaskSource: Task definitions loaded by the host from configuration files.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
