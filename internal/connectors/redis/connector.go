// Package redis implements the REDIS output connector, which appends every
// published record to a Redis stream.
package redis

import (
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "REDIS"

// Property keys.
const (
	PropAddr     = "redis.addr"
	PropStream   = "redis.stream"
	PropDB       = "redis.db"
	PropMaxLen   = "redis.maxlen"
	PropPassword = "redis.password"
)

// DefaultStream is the stream records are appended to.
const DefaultStream = "harvester:records"

// Ensure Connector implements the interface.
var _ driven.OutputConnector = (*Connector)(nil)

// Connector creates stream publishing brokers.
type Connector struct{}

// NewConnector creates the REDIS connector.
func NewConnector() *Connector {
	return &Connector{}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string { return Type }

// Template describes the configuration.
func (c *Connector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type:        Type,
		Role:        domain.RoleDestination,
		Name:        "Redis stream",
		Description: "Append harvested records to a Redis stream",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropAddr, Label: "Address", Description: "host:port", Required: true},
			{Key: PropStream, Label: "Stream", Description: "Stream key", Default: DefaultStream},
			{Key: PropDB, Label: "Database", Description: "Database number", Default: "0"},
			{Key: PropMaxLen, Label: "Max length", Description: "Approximate stream length cap (0 = unbounded)", Default: "0"},
			{Key: PropPassword, Label: "Password", Secret: true},
		},
	}
}

// Config is the parsed broker configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// ParseConfig validates def and returns its configuration.
func ParseConfig(def domain.EntityDefinition) (*Config, error) {
	addr, err := def.Require(PropAddr)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Addr:     addr,
		Password: def.Get(PropPassword),
		Stream:   def.GetOrDefault(PropStream, DefaultStream),
	}

	if v := def.Get(PropDB); v != "" {
		cfg.DB, err = strconv.Atoi(v)
		if err != nil || cfg.DB < 0 {
			return nil, domain.InvalidDefinitionf("%s: %s must be a non-negative integer, got %q", Type, PropDB, v)
		}
	}
	if v := def.Get(PropMaxLen); v != "" {
		cfg.MaxLen, err = strconv.ParseInt(v, 10, 64)
		if err != nil || cfg.MaxLen < 0 {
			return nil, domain.InvalidDefinitionf("%s: %s must be a non-negative integer, got %q", Type, PropMaxLen, v)
		}
	}
	return cfg, nil
}

// Validate checks the definition without connecting.
func (c *Connector) Validate(def domain.EntityDefinition) error {
	_, err := ParseConfig(def)
	return err
}

// CreateBroker creates a broker for def. Connections are established lazily.
func (c *Connector) CreateBroker(def domain.EntityDefinition) (driven.OutputBroker, error) {
	cfg, err := ParseConfig(def)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newBroker(def, cfg, client), nil
}
