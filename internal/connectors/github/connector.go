package github

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "GITHUB"

// Ensure Connector implements the interface.
var _ driven.InputConnector = (*Connector)(nil)

// Connector creates brokers harvesting repository files.
type Connector struct {
	rps float64
}

// Option configures a Connector.
type Option func(*Connector)

// WithRate overrides the proactive request rate.
func WithRate(rps float64) Option {
	return func(c *Connector) { c.rps = rps }
}

// NewConnector creates the GITHUB connector.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{rps: ProactiveRate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the connector type identifier.
func (c *Connector) Type() string { return Type }

// Template describes the configuration.
func (c *Connector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type:        Type,
		Role:        domain.RoleSource,
		Name:        "GitHub",
		Description: "Harvest files from a GitHub repository",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropRepo, Label: "Repository", Description: "owner/name", Required: true},
			{Key: PropRef, Label: "Ref", Description: "Branch, tag or SHA (default branch when empty)"},
			{Key: PropPattern, Label: "Patterns", Description: "Comma-separated path globs", Default: DefaultPattern},
			{Key: PropToken, Label: "Token", Description: "Personal access token", Secret: true},
			{Key: PropAPIURL, Label: "API URL", Description: "GitHub Enterprise API base URL"},
		},
	}
}

// Validate checks the definition without calling the API.
func (c *Connector) Validate(def domain.EntityDefinition) error {
	_, err := ParseConfig(def)
	return err
}

// CreateBroker creates a broker for def.
func (c *Connector) CreateBroker(def domain.EntityDefinition) (driven.InputBroker, error) {
	cfg, err := ParseConfig(def)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(context.Background(), cfg.Token, cfg.APIURL, c.rps)
	if err != nil {
		return nil, domain.InvalidDefinitionf("%s: %v", Type, err)
	}
	return newBroker(def, cfg, client), nil
}
