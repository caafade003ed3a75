package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// Flags fall back to PORT and CONFIG_PATH so container deployments need no
// arguments.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "olympia-live",
		Short: "Live match orchestration service for the Olympia quiz show",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envOr("PORT", "8080"), "HTTP listen port")
	cmd.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config/config.yaml"), "YAML config file")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
