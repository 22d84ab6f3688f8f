package folder

import (
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Type is the connector type identifier.
const Type = "FOLDER"

// Property keys.
const (
	PropRoot    = "folder.root"
	PropPattern = "folder.pattern"
	PropCleanup = "folder.cleanup"
)

// DefaultPattern matches every file below the root.
const DefaultPattern = "**/*"

// Ensure connectors implement the interfaces.
var (
	_ driven.InputConnector  = (*InputConnector)(nil)
	_ driven.OutputConnector = (*OutputConnector)(nil)
)

// InputConnector creates brokers crawling a local folder.
type InputConnector struct{}

// NewInputConnector creates the FOLDER input connector.
func NewInputConnector() *InputConnector {
	return &InputConnector{}
}

// Type returns the connector type identifier.
func (c *InputConnector) Type() string { return Type }

// Template describes the source configuration.
func (c *InputConnector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type:        Type,
		Role:        domain.RoleSource,
		Name:        "Folder",
		Description: "Harvest files from a local directory",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropRoot, Label: "Root folder", Description: "Directory to crawl", Required: true},
			{Key: PropPattern, Label: "Patterns", Description: "Comma-separated glob patterns", Default: DefaultPattern},
		},
	}
}

// Validate checks the definition without touching the filesystem.
func (c *InputConnector) Validate(def domain.EntityDefinition) error {
	tmpl := c.Template()
	if err := tmpl.CheckRequired(def); err != nil {
		return err
	}
	for _, p := range def.List(PropPattern, DefaultPattern) {
		if !doublestar.ValidatePattern(p) {
			return domain.InvalidDefinitionf("%s: invalid pattern %q", Type, p)
		}
	}
	return nil
}

// CreateBroker creates a source broker for def.
func (c *InputConnector) CreateBroker(def domain.EntityDefinition) (driven.InputBroker, error) {
	if err := c.Validate(def); err != nil {
		return nil, err
	}
	return newInputBroker(def), nil
}

// OutputConnector creates brokers writing into a folder.
type OutputConnector struct {
	fs afero.Fs
}

// OutputOption configures an OutputConnector.
type OutputOption func(*OutputConnector)

// WithFs writes through fs instead of the OS filesystem.
func WithFs(fs afero.Fs) OutputOption {
	return func(c *OutputConnector) { c.fs = fs }
}

// NewOutputConnector creates the FOLDER output connector.
func NewOutputConnector(opts ...OutputOption) *OutputConnector {
	c := &OutputConnector{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the connector type identifier.
func (c *OutputConnector) Type() string { return Type }

// Template describes the destination configuration.
func (c *OutputConnector) Template() domain.ConnectorTemplate {
	return domain.ConnectorTemplate{
		Type:        Type,
		Role:        domain.RoleDestination,
		Name:        "Folder",
		Description: "Write harvested records to a local directory",
		ConfigKeys: []domain.ConfigKey{
			{Key: PropRoot, Label: "Root folder", Description: "Directory to write to", Required: true},
			{Key: PropCleanup, Label: "Cleanup", Description: "Remove files not written during the run", Default: "false"},
		},
	}
}

// Validate checks the definition without touching the filesystem.
func (c *OutputConnector) Validate(def domain.EntityDefinition) error {
	tmpl := c.Template()
	if err := tmpl.CheckRequired(def); err != nil {
		return err
	}
	_, err := parseCleanup(def)
	return err
}

// CreateBroker creates a destination broker for def.
func (c *OutputConnector) CreateBroker(def domain.EntityDefinition) (driven.OutputBroker, error) {
	if err := c.Validate(def); err != nil {
		return nil, err
	}
	cleanup, _ := parseCleanup(def)
	return newOutputBroker(def, afero.NewBasePathFs(c.fs, def.Get(PropRoot)), cleanup), nil
}

func parseCleanup(def domain.EntityDefinition) (bool, error) {
	raw := def.GetOrDefault(PropCleanup, "false")
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.InvalidDefinitionf("%s: %s must be true or false, got %q", Type, PropCleanup, raw)
	}
	return v, nil
}
