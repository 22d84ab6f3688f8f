package connectors

import (
	"errors"

	"github.com/custodia-labs/harvester/internal/connectors/csw"
	"github.com/custodia-labs/harvester/internal/connectors/folder"
	"github.com/custodia-labs/harvester/internal/connectors/github"
	"github.com/custodia-labs/harvester/internal/connectors/jdbc"
	"github.com/custodia-labs/harvester/internal/connectors/redis"
	"github.com/custodia-labs/harvester/internal/connectors/waf"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/services"
)

// Inputs returns the built-in input connectors.
func Inputs() []driven.InputConnector {
	return []driven.InputConnector{
		folder.NewInputConnector(),
		waf.NewConnector(),
		jdbc.NewConnector(),
		github.NewConnector(),
		csw.NewConnector(),
	}
}

// Outputs returns the built-in output connectors.
func Outputs() []driven.OutputConnector {
	return []driven.OutputConnector{
		folder.NewOutputConnector(),
		redis.NewConnector(),
	}
}

// RegisterBuiltins registers every built-in connector with reg.
func RegisterBuiltins(reg *services.ConnectorRegistry) error {
	var errs []error
	for _, c := range Inputs() {
		errs = append(errs, reg.RegisterInput(c))
	}
	for _, c := range Outputs() {
		errs = append(errs, reg.RegisterOutput(c))
	}
	return errors.Join(errs...)
}

// NewRegistry returns a registry holding the built-in connectors.
func NewRegistry() (*services.ConnectorRegistry, error) {
	reg := services.NewConnectorRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
