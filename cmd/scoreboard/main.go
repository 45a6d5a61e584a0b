// Package main is the entry point for the scoreboard CLI.
//
// Usage:
//
//	scoreboard -c scoreboard.toml           # Start the server (same as serve)
//	scoreboard serve -c scoreboard.toml     # Start the server
//	scoreboard validate -c scoreboard.toml  # Validate configuration
//	scoreboard loadgen --secret s3cret      # Drive a running server and verify it
//	scoreboard version                      # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/internal/version"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Without a subcommand it serves.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scoreboard",
		Short: "A score submission and leaderboard server",
		Long: `Scoreboard accepts score submissions from teams over HTTP and serves
a ranked leaderboard of each team's best record.

A submission is admitted only when it does not rank below the team's
current best. Higher scores rank above lower ones; on equal scores the
earlier record ranks above. Every admitted record is kept in a history
that is written to disk periodically and once more on shutdown.

Configuration is layered: defaults, then the file given with --config
(or ` + config.EnvConfigPath + `), then ` + config.EnvPrefix + `* environment variables,
e.g. ` + config.EnvPrefix + `STORE__SECRET.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to config file (.toml, .yaml, .yml)")

	root.AddCommand(newServeCmd(), newValidateCmd(), newLoadgenCmd(), newVersionCmd())
	return root
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this scoreboard binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scoreboard %s\n", version.Version)
			fmt.Fprintf(out, "  commit: %s\n", version.Commit)
			fmt.Fprintf(out, "  built:  %s\n", version.Date)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}
