package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <tasks.toml>",
	Short: "Check task definitions without running them",
	Long: `Parses a task file and validates every task against the registered
connectors and processors. No connection is made to any source or destination.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationEngine: "true"},
	RunE:        runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if engine == nil {
		return errNotConfigured
	}

	tasks, err := loadTasks(args[0])
	if err != nil {
		return err
	}

	defs := tasks.Tasks()
	if len(defs) == 0 {
		cmd.Println("No tasks defined.")
		return nil
	}

	invalid := 0
	for _, def := range defs {
		if err := engine.Validate(def); err != nil {
			invalid++
			cmd.Printf("✗ %s: %v\n", def.Name, err)
			continue
		}
		cmd.Printf("✓ %s (%s, %d destinations)\n", def.Name, def.Source.Type, len(def.Destinations))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d tasks invalid", invalid, len(defs))
	}
	return nil
}
