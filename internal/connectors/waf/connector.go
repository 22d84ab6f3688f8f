package waf

import (
	"net/url"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "WAF"

// Property keys.
const (
	PropHostURL = "waf.host.url"
	PropPattern = "waf.pattern"
	PropRate    = "waf.rate"

	PropUsername = "waf.cred.username"
	PropPassword = "waf.cred.password"
)

// Defaults.
const (
	DefaultPattern = "*.xml"
	DefaultRate    = 5.0
)

// Ensure Connector implements the interface.
var _ driven.InputConnector = (*Connector)(nil)

// Connector creates WAF input brokers.
type Connector struct{}

// NewConnector creates the WAF connector.
func NewConnector() *Connector {
	return &Connector{}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string { return Type }

// Template describes the configuration.
func (c *Connector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type:        Type,
		Role:        domain.RoleSource,
		Name:        "Web Accessible Folder",
		Description: "Harvest files linked from an HTTP directory listing",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropHostURL, Label: "Url", Description: "Folder URL (http or https)", Required: true},
			{Key: PropPattern, Label: "Patterns", Description: "Comma-separated file name globs", Default: DefaultPattern},
			{Key: PropRate, Label: "Rate", Description: "Maximum requests per second", Default: "5"},
			{Key: PropUsername, Label: "User name", Description: "HTTP basic auth user"},
			{Key: PropPassword, Label: "Password", Description: "HTTP basic auth password", Secret: true},
		},
	}
}

// Config is the parsed broker configuration.
type Config struct {
	Root     *url.URL
	Patterns []string
	Rate     float64
	Username string
	Password string
}

// ParseConfig validates def and returns its configuration.
func ParseConfig(def domain.EntityDefinition) (*Config, error) {
	raw, err := def.Require(PropHostURL)
	if err != nil {
		return nil, err
	}
	root, err := url.Parse(raw)
	if err != nil || !root.IsAbs() || root.Host == "" {
		return nil, domain.InvalidDefinitionf("%s: %s is not an absolute URL: %q", Type, PropHostURL, raw)
	}
	if root.Scheme != "http" && root.Scheme != "https" {
		return nil, domain.InvalidDefinitionf("%s: unsupported scheme %q", Type, root.Scheme)
	}

	patterns := def.List(PropPattern, DefaultPattern)
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, domain.InvalidDefinitionf("%s: invalid pattern %q", Type, p)
		}
	}

	rate := DefaultRate
	if v := def.Get(PropRate); v != "" {
		rate, err = strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return nil, domain.InvalidDefinitionf("%s: %s must be a positive number, got %q", Type, PropRate, v)
		}
	}

	cfg := &Config{
		Root:     root,
		Patterns: patterns,
		Rate:     rate,
		Username: def.Get(PropUsername),
		Password: def.Get(PropPassword),
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, domain.InvalidDefinitionf("%s: %s requires %s", Type, PropPassword, PropUsername)
	}
	return cfg, nil
}

// Validate checks the definition without network I/O.
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
	c := newClient(cfg.Rate)
	if cfg.Username != "" {
		c.http.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return newBroker(def, cfg, c), nil
}
