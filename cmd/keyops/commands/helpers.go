package commands

import (
	"fmt"
	"time"

	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/discovery"
	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/pipeline"
)

// targetSpec builds the discovery input for a command: explicit args win,
// otherwise the operation's configured default globs apply.
func targetSpec(cfg *config.Config, args []string, defaultGlobs []string) discovery.TargetSpec {
	return discovery.TargetSpec{
		Paths:        args,
		DefaultGlobs: defaultGlobs,
		Extensions:   cfg.Settings.Extensions,
	}
}

// toolTimeout returns the per-invocation timeout for external tools.
func toolTimeout(cfg *config.Config) time.Duration {
	ms := cfg.Settings.ToolTimeoutMs
	if ms <= 0 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

// summaryError converts a run summary into the command's error result.
// The summary is the sole authority for the exit code: nil for clean,
// dry-run, and user-aborted runs; an error only when files failed.
func summaryError(summary pipeline.Summary) error {
	if summary.OK() {
		return nil
	}
	return kerrors.UserError{
		Message:    fmt.Sprintf("%d of %d file(s) failed", summary.Failed, summary.Total()),
		Suggestion: "Rerun with --debug for per-file details",
	}
}
