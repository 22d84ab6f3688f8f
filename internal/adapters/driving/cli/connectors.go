package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var connectorsJSON bool

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List available connector types",
	Long: `Lists every registered source and destination connector together with
the configuration properties it understands.`,
	Args: cobra.NoArgs,
	RunE: runConnectors,
}

func init() {
	connectorsCmd.Flags().BoolVar(&connectorsJSON, "json", false, "output templates as JSON")
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, _ []string) error {
	if catalog == nil {
		return errNotConfigured
	}

	templates := catalog.Templates()
	if connectorsJSON {
		data, err := json.MarshalIndent(templates, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal templates: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(templates) == 0 {
		cmd.Println("No connectors registered.")
		return nil
	}

	var role domain.BrokerRole
	for _, t := range templates {
		if t.Role != role {
			role = t.Role
			cmd.Printf("\n%s connectors:\n", roleTitle(role))
		}
		cmd.Printf("  %-8s %s\n", t.Type, t.Description)
		for _, k := range t.ConfigKeys {
			cmd.Printf("    %-22s %s\n", k.Key, describeKey(k))
		}
	}
	return nil
}

func roleTitle(role domain.BrokerRole) string {
	if role == domain.RoleDestination {
		return "Destination"
	}
	return "Source"
}

func describeKey(k domain.ConfigKey) string {
	desc := k.Label
	if k.Description != "" {
		desc += ": " + k.Description
	}
	switch {
	case k.Required:
		desc += " (required)"
	case k.Default != "":
		desc += fmt.Sprintf(" (default %s)", k.Default)
	}
	if k.Secret {
		desc += " [secret]"
	}
	return desc
}
