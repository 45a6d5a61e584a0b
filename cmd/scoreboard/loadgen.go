package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/okian/scoreboard/internal/loadgen"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/spf13/cobra"
)

// newLoadgenCmd drives a running server with concurrent submissions.
func newLoadgenCmd() *cobra.Command {
	defaults := loadgen.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Submit concurrent scores to a running server and verify the result",
		Long: `Generate submissions for a set of fresh teams, post them concurrently,
then read back /history and the leaderboard and check that:
  - each team's best is the highest ranked record sent for it
  - each team's history holds exactly the admitted records, never regressing
  - the leaderboard is ordered

Teams with a failed request are skipped, since the request may or may not
have been applied.

Example:
  scoreboard loadgen --url http://127.0.0.1:8080 --secret s3cret --teams 50 --submissions 200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := defaults
			flags := cmd.Flags()
			cfg.BaseURL, _ = flags.GetString("url")
			cfg.Secret, _ = flags.GetString("secret")
			cfg.Teams, _ = flags.GetInt("teams")
			cfg.Submissions, _ = flags.GetInt("submissions")
			cfg.Workers, _ = flags.GetInt("workers")
			cfg.Timeout, _ = flags.GetDuration("timeout")

			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			report, err := loadgen.Run(ctx, cfg, logger.Named("loadgen"))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "submitted %d: created %d, conflicts %d, failed %d\n",
				report.Submitted, report.Created, report.Conflicts, report.Failed)
			fmt.Fprintf(out, "teams %d: verified %d, skipped %d\n", report.Teams, report.Verified, report.Skipped)
			return err
		},
	}

	cmd.Flags().String("url", defaults.BaseURL, "base URL of the server")
	cmd.Flags().String("secret", "", "submission secret (required)")
	cmd.Flags().Int("teams", defaults.Teams, "number of fresh teams")
	cmd.Flags().Int("submissions", defaults.Submissions, "submissions per team")
	cmd.Flags().Int("workers", defaults.Workers, "concurrent workers")
	cmd.Flags().Duration("timeout", defaults.Timeout, "HTTP request timeout")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
