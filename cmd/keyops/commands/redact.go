package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/discovery"
	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/pipeline"
	"github.com/x45dev/keyops/internal/redact"
)

func NewRedactCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun    bool
		outputDir string
		marker    string
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "redact [file|dir|glob ...]",
		Short: "Write redacted copies of secret files for safe sharing",
		Long: `Copy secret files into an output directory with every value blanked out.

Lines of the form 'key: value', 'key=value', or 'export key=value' keep
their key and separator; the value becomes the redaction marker. Other
lines pass through unchanged. Originals are never modified.

Redaction is line-based on purpose: multi-line or nested structured values
are not understood and will pass through. Review the output before sharing.

Examples:
  keyops redact .env                     # Write redacted/.env
  keyops redact --output-dir /tmp/share secrets/
  keyops redact --marker '<removed>' config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			// Flag beats environment beats file.
			if outputDir == "" {
				outputDir = cfg.Settings.OutputDir
			}
			if marker == "" {
				marker = cfg.Settings.RedactMarker
			}

			ctx := cmd.Context()

			resolver := discovery.NewResolver(cfg.Logger)
			candidates, err := resolver.Resolve(targetSpec(cfg, args, cfg.Settings.RedactGlobs))
			if err != nil {
				return err
			}

			classified := discovery.Classify(ctx, cfg.Logger, candidates, discovery.Readable())

			if !dryRun && len(classified) > 0 {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return kerrors.UserError{
						Message:    fmt.Sprintf("Cannot create output directory %s", outputDir),
						Details:    err.Error(),
						Suggestion: "Choose a writable location with --output-dir",
					}
				}
			}

			// Writes land in outputDir only; the originals stay untouched,
			// so no confirmation gate or backup applies.
			runner := pipeline.NewRunner(cfg.Logger, pipeline.Options{
				DryRun: dryRun,
				Jobs:   jobs,
			})

			_, summary, err := runner.Run(ctx, classified, func(_ context.Context, path string) pipeline.Outcome {
				if err := redactFile(path, outputDir, marker); err != nil {
					return pipeline.Failed(err)
				}
				return pipeline.SuccessWithReason("redacted copy written to " + outputDir)
			})
			if err != nil {
				return err
			}

			cfg.Logger.Info("redact: %s", summary)
			return summaryError(summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be redacted")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for redacted copies (default: configured output dir)")
	cmd.Flags().StringVar(&marker, "marker", "", "Replacement text for redacted values (default: REDACTED)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Number of files to redact concurrently")

	return cmd
}

// redactFile writes the redacted copy of path under outputDir, flattening
// to the base name. Rerunning overwrites with identical content, so the
// operation is idempotent in effect.
func redactFile(path, outputDir, marker string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	target := filepath.Join(outputDir, filepath.Base(path))
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := redact.Copy(out, in, marker); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return err
	}
	return out.Close()
}
