package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/discovery"
	"github.com/x45dev/keyops/internal/pipeline"
	"github.com/x45dev/keyops/internal/sops"
)

func NewAuditCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun  bool
		jobs    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit [file|dir|glob ...]",
		Short: "Check that every secret file still decrypts",
		Long: `Verify that each target file decrypts under the current identity and
recipient configuration. Nothing is written; decrypted output is discarded.

The run fails when at least one file cannot be decrypted, which makes this
suitable as a CI step after recipient or key changes.

Examples:
  keyops audit                       # All files matched by the default globs
  keyops audit secrets/              # Everything under secrets/
  keyops audit --jobs 4              # Check four files at a time`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			client := sops.NewClient(cfg.GetExecutor())
			if err := client.CheckInstalled(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout <= 0 {
				timeout = toolTimeout(cfg)
			}

			resolver := discovery.NewResolver(cfg.Logger)
			candidates, err := resolver.Resolve(targetSpec(cfg, args, cfg.Settings.AuditGlobs))
			if err != nil {
				return err
			}

			// Auditing is the check itself, so classification only drops
			// unreadable candidates; the decrypt check runs as the
			// per-file operation and its misses count as failures.
			classified := discovery.Classify(ctx, cfg.Logger, candidates, discovery.Readable())

			runner := pipeline.NewRunner(cfg.Logger, pipeline.Options{
				DryRun:  dryRun,
				Jobs:    jobs,
				Timeout: timeout,
			})

			_, summary, err := runner.Run(ctx, classified, func(ctx context.Context, path string) pipeline.Outcome {
				ok, reason := client.Check(ctx, path)
				if !ok {
					return pipeline.Failed(sops.CheckFailure(path, reason))
				}
				return pipeline.Success()
			})
			if err != nil {
				return err
			}

			cfg.Logger.Info("audit: %s", summary)
			return summaryError(summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be checked")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Number of files to check concurrently")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-file tool timeout (default: configured tool timeout)")

	return cmd
}
