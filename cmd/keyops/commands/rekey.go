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

func NewRekeyCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun     bool
		withBackup bool
		yes        bool
		jobs       int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rekey [file|dir|glob ...]",
		Short: "Re-encrypt SOPS files against the current recipient set",
		Long: `Re-encrypt SOPS files in place after the recipient list changed.

Targets can be files, directories, or glob patterns (** is supported).
Without arguments the configured default globs are used. Files that do not
decrypt under the current identity configuration are excluded up front.

Plaintext content is never changed, so rekeying an already-current file is
harmless. Every mutating run asks for confirmation first.

Examples:
  keyops rekey                          # All files matched by the default globs
  keyops rekey secrets/                 # Everything under secrets/
  keyops rekey 'env/**/*.sops.yaml'     # A custom glob
  keyops rekey --dry-run                # Show what would be rekeyed
  keyops rekey --backup secrets/prod.yaml  # Keep a restorable snapshot`,
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
			candidates, err := resolver.Resolve(targetSpec(cfg, args, cfg.Settings.RekeyGlobs))
			if err != nil {
				return err
			}
			cfg.Logger.Debug("resolved %d candidate(s)", len(candidates))

			classified := discovery.Classify(ctx, cfg.Logger, candidates, func(ctx context.Context, path string) (bool, string) {
				checkCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return client.Check(checkCtx, path)
			})

			runner := pipeline.NewRunner(cfg.Logger, pipeline.Options{
				DryRun:    dryRun,
				Mutates:   true,
				Backup:    withBackup,
				AssumeYes: yes || cfg.NonInteractive,
				Jobs:      jobs,
				Timeout:   timeout,
			})

			_, summary, err := runner.Run(ctx, classified, func(ctx context.Context, path string) pipeline.Outcome {
				if err := client.UpdateKeys(ctx, path); err != nil {
					return pipeline.Failed(err)
				}
				return pipeline.Success()
			})
			if err != nil {
				return err
			}

			cfg.Logger.Info("rekey: %s", summary)
			return summaryError(summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be rekeyed without changing anything")
	cmd.Flags().BoolVar(&withBackup, "backup", false, "Snapshot each file before rekeying and restore it on failure")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Number of files to rekey concurrently")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-file tool timeout (default: configured tool timeout)")

	return cmd
}
