package csw

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "CSW"

// Property keys.
const (
	PropHostURL  = "csw.host.url"
	PropProfile  = "csw.profile.id"
	PropPageSize = "csw.pagesize"
	PropRate     = "csw.rate"
	PropUsername = "csw.cred.username"
	PropPassword = "csw.cred.password"
)

// Defaults.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
	DefaultRate     = 5.0
)

// Ensure Connector implements the interface.
var _ driven.InputConnector = (*Connector)(nil)

// Connector creates CSW input brokers.
type Connector struct{}

// NewConnector creates the CSW connector.
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
		Name:        "Catalogue Service for the Web",
		Description: "Harvest the records of an OGC CSW 2.0.2 catalog",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropHostURL, Label: "Url", Description: "CSW endpoint URL", Required: true},
			{
				Key:         PropProfile,
				Label:       "Profile",
				Description: "One of " + strings.Join(ProfileIDs(), ", "),
				Default:     DefaultProfile,
			},
			{Key: PropPageSize, Label: "Page size", Description: "Records requested per GetRecords call", Default: strconv.Itoa(DefaultPageSize)},
			{Key: PropRate, Label: "Rate", Description: "Maximum requests per second", Default: "5"},
			{Key: PropUsername, Label: "User name", Description: "HTTP basic auth user"},
			{Key: PropPassword, Label: "Password", Description: "HTTP basic auth password", Secret: true},
		},
	}
}

// Config is the parsed broker configuration.
type Config struct {
	Endpoint *url.URL
	Profile  *Profile
	PageSize int
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
	endpoint, err := url.Parse(raw)
	if err != nil || !endpoint.IsAbs() || endpoint.Host == "" {
		return nil, domain.InvalidDefinitionf("%s: invalid %s: %q", Type, PropHostURL, raw)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, domain.InvalidDefinitionf("%s: unsupported scheme %q", Type, endpoint.Scheme)
	}

	id := def.GetOrDefault(PropProfile, DefaultProfile)
	p, ok := ProfileByID(id)
	if !ok {
		return nil, domain.InvalidDefinitionf("%s: invalid %s: %s", Type, PropProfile, id)
	}

	cfg := &Config{
		Endpoint: endpoint,
		Profile:  p,
		PageSize: DefaultPageSize,
		Rate:     DefaultRate,
		Username: def.Get(PropUsername),
		Password: def.Get(PropPassword),
	}
	if v := def.Get(PropPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return nil, domain.InvalidDefinitionf("%s: %s must be between 1 and %d, got %q", Type, PropPageSize, MaxPageSize, v)
		}
		cfg.PageSize = n
	}
	if v := def.Get(PropRate); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			return nil, domain.InvalidDefinitionf("%s: %s must be a positive number, got %q", Type, PropRate, v)
		}
		cfg.Rate = r
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
	cl := newClient(cfg.Rate)
	if cfg.Username != "" {
		cl.http.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return newBroker(def, cfg, cl), nil
}
