package jdbc

import (
	"net/url"
	"slices"
	"strings"

	// Database drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "JDBC"

// Property keys.
const (
	PropDriver      = "jdbc.driver"
	PropConnection  = "jdbc.connection"
	PropSQL         = "jdbc.sql"
	PropFileID      = "jdbc.fileid"
	PropTitle       = "jdbc.title"
	PropDescription = "jdbc.description"
	PropUsername    = "jdbc.cred.username"
	PropPassword    = "jdbc.cred.password"
)

// Drivers lists the supported database/sql driver names.
var Drivers = []string{"sqlite", "pgx"}

// Ensure Connector implements the interface.
var _ driven.InputConnector = (*Connector)(nil)

// Connector creates JDBC input brokers.
type Connector struct{}

// NewConnector creates the JDBC connector.
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
		Name:        "Database",
		Description: "Harvest the rows of a SQL query",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropDriver, Label: "Driver", Description: "sqlite or pgx", Required: true},
			{Key: PropConnection, Label: "Connection", Description: "Driver data source name", Required: true, Secret: true},
			{Key: PropSQL, Label: "SQL", Description: "A single SELECT statement", Required: true},
			{Key: PropFileID, Label: "File id column", Description: "Column holding the record identifier", Required: true},
			{Key: PropTitle, Label: "Title column", Description: "Column holding the record title"},
			{Key: PropDescription, Label: "Description column", Description: "Column holding the record description"},
			{Key: PropUsername, Label: "User name", Description: "Database user (pgx only)"},
			{Key: PropPassword, Label: "Password", Description: "Database password (pgx only)", Secret: true},
		},
	}
}

// Config is the parsed broker configuration.
type Config struct {
	Driver            string
	Connection        string
	SQL               string
	FileIDColumn      string
	TitleColumn       string
	DescriptionColumn string
	Username          string
	Password          string
}

// DataSource returns the connection string handed to the driver, with the
// credentials merged in. URL connection strings get them as user info;
// keyword/value strings get user and password keywords.
func (c *Config) DataSource() string {
	if c.Username == "" {
		return c.Connection
	}
	if u, err := url.Parse(c.Connection); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
		return u.String()
	}
	dsn := strings.TrimSpace(c.Connection + " user=" + quoteKeyword(c.Username))
	if c.Password != "" {
		dsn += " password=" + quoteKeyword(c.Password)
	}
	return dsn
}

// quoteKeyword quotes a libpq keyword value.
func quoteKeyword(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ParseConfig validates def and returns its configuration.
func ParseConfig(def domain.EntityDefinition) (*Config, error) {
	tmpl := (&Connector{}).Template()
	if err := tmpl.CheckRequired(def); err != nil {
		return nil, err
	}

	cfg := &Config{
		Driver:            strings.ToLower(def.Get(PropDriver)),
		Connection:        def.Get(PropConnection),
		SQL:               def.Get(PropSQL),
		FileIDColumn:      def.Get(PropFileID),
		TitleColumn:       def.Get(PropTitle),
		DescriptionColumn: def.Get(PropDescription),
		Username:          def.Get(PropUsername),
		Password:          def.Get(PropPassword),
	}
	if !slices.Contains(Drivers, cfg.Driver) {
		return nil, domain.InvalidDefinitionf("%s: unsupported driver %q (want one of %s)",
			Type, cfg.Driver, strings.Join(Drivers, ", "))
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, domain.InvalidDefinitionf("%s: %s requires %s", Type, PropPassword, PropUsername)
	}
	if cfg.Username != "" && cfg.Driver != "pgx" {
		return nil, domain.InvalidDefinitionf("%s: driver %s does not take credentials", Type, cfg.Driver)
	}
	query, err := checkSelect(cfg.SQL)
	if err != nil {
		return nil, err
	}
	cfg.SQL = query
	return cfg, nil
}

// checkSelect accepts exactly one SELECT (or WITH ... SELECT) statement.
// A single trailing semicolon is dropped.
func checkSelect(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if strings.Contains(q, ";") {
		return "", domain.InvalidDefinitionf("%s: %s must be a single statement", Type, PropSQL)
	}
	fields := strings.Fields(strings.ToLower(q))
	if len(fields) == 0 || (fields[0] != "select" && fields[0] != "with") {
		return "", domain.InvalidDefinitionf("%s: %s must be a SELECT statement", Type, PropSQL)
	}
	return q, nil
}

// Validate checks the definition without connecting.
func (c *Connector) Validate(def domain.EntityDefinition) error {
	_, err := ParseConfig(def)
	return err
}

// CreateBroker creates a broker for def. The connection is opened on first use.
func (c *Connector) CreateBroker(def domain.EntityDefinition) (driven.InputBroker, error) {
	cfg, err := ParseConfig(def)
	if err != nil {
		return nil, err
	}
	return newBroker(def, cfg), nil
}
