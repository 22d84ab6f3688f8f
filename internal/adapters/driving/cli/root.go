// Package cli provides the harvester command-line interface.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services wired by the entry point.
var (
	engine          driving.Engine
	catalog         driving.ConnectorCatalog
	shutdownTimeout = 30 * time.Second
)

// loadTasks reads a task file. Replaced in tests.
var loadTasks = func(path string) (driven.TaskSource, error) {
	return file.LoadTasks(path)
}

// EngineFactory builds the engine. The returned func releases what it opened.
type EngineFactory func(ctx context.Context) (driving.Engine, func(), error)

// Commands annotated with annotationEngine build the engine before running.
const annotationEngine = "engine"

var (
	newEngine     EngineFactory
	releaseEngine func()
)

var verbose bool

var errNotConfigured = errors.New("harvest engine not configured")

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest metadata records from sources into destinations",
	Long: `harvester pulls records from a configured source (folder, web accessible
folder, SQL query, GitHub repository) and publishes each one to every
configured destination (folder, Redis stream).

Tasks are declared in TOML task files; see "harvester validate".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if verbose {
			logger.SetVerbose(true)
		}
		return ensureEngine(cmd)
	},
}

// ensureEngine builds the engine for commands that need one, so commands
// such as version and connectors work while history or events are unreachable.
func ensureEngine(cmd *cobra.Command) error {
	if engine != nil || newEngine == nil || cmd.Annotations[annotationEngine] != "true" {
		return nil
	}
	e, release, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	engine = e
	releaseEngine = func() {
		engine = nil
		if release != nil {
			release()
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Options configures the CLI services.
// When Engine is nil, EngineFactory builds it on first use.
type Options struct {
	Engine          driving.Engine
	EngineFactory   EngineFactory
	Catalog         driving.ConnectorCatalog
	ShutdownTimeout time.Duration
}

// Configure installs the services used by the commands.
func Configure(opts Options) {
	engine = opts.Engine
	newEngine = opts.EngineFactory
	catalog = opts.Catalog
	if opts.ShutdownTimeout > 0 {
		shutdownTimeout = opts.ShutdownTimeout
	}
}

// SetVersion sets the version reported by "harvester version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx and releases a lazily
// built engine afterwards.
func ExecuteContext(ctx context.Context) error {
	defer func() {
		if releaseEngine != nil {
			releaseEngine()
			releaseEngine = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
