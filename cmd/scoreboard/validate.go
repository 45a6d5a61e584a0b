package main

import (
	"fmt"

	"github.com/okian/scoreboard/internal/config"
	"github.com/spf13/cobra"
)

// newValidateCmd validates configuration without starting the server.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Load and validate configuration without starting the server.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  scoreboard validate -c /etc/scoreboard/scoreboard.toml`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cmd.Context(), configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Listen:     %s\n", cfg.Addr())
	fmt.Fprintf(out, "  Data:       %s\n", cfg.Store.Data)
	fmt.Fprintf(out, "  Write-back: %s\n", cfg.FlushInterval())
	fmt.Fprintf(out, "  Page:       %s (%d, %s)\n", cfg.Meta.Title, cfg.Meta.Year, cfg.Meta.Timezone)
	return nil
}
