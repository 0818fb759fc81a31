package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/x45dev/keyops/internal/backup"
	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/logging"
)

// Transform applies the per-file operation. Mutating transforms must write
// in place; the runner owns backup and restore around the call.
type Transform func(ctx context.Context, path string) Outcome

// Options configures a pipeline run.
type Options struct {
	// DryRun reports what would happen without touching anything.
	DryRun bool

	// Mutates marks the transform as destructive: it gates the
	// confirmation prompt and enables backups.
	Mutates bool

	// Backup snapshots each file before the transform and restores it on
	// failure. Only meaningful for mutating transforms.
	Backup bool

	// AssumeYes skips the confirmation prompt.
	AssumeYes bool

	// Jobs bounds concurrent transforms. Values below 1 mean serial.
	Jobs int

	// Timeout bounds each file's transform. Zero means no limit. Wrapped
	// tools can block forever on interactive prompts, so commands always
	// set this.
	Timeout time.Duration

	// Input supplies confirmation answers; defaults to stdin.
	Input io.Reader
}

// Runner executes one operation per classified file.
type Runner struct {
	logger *logging.Logger
	opts   Options
}

// NewRunner creates a runner.
func NewRunner(logger *logging.Logger, opts Options) *Runner {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	return &Runner{logger: logger, opts: opts}
}

// ErrRestoreFailed aborts a run when a backup could not be restored.
// Unlike ordinary per-file failures, this escalates past the current file
// because the filesystem may be in an undefined state.
var ErrRestoreFailed = errors.New("backup restore failed")

// Run processes every file and returns one result per file, in input
// order, plus the aggregate summary. One file's failure never prevents the
// others from being processed. The error return is non-nil only for
// run-level conditions (fatal restore failure, canceled context).
func (r *Runner) Run(ctx context.Context, files []string, transform Transform) ([]Result, Summary, error) {
	if len(files) == 0 {
		r.logger.Info("no files to process")
		return nil, Summarize(nil, r.opts.DryRun), nil
	}

	if r.opts.DryRun {
		results := make([]Result, len(files))
		for i, f := range files {
			results[i] = Result{File: f, Outcome: SuccessWithReason("would be processed")}
			r.logger.Info("[dry-run] would process %s", f)
		}
		return results, Summarize(results, true), nil
	}

	// Confirmation happens exactly once, before any work starts.
	if r.opts.Mutates && !r.opts.AssumeYes {
		if !r.confirm(len(files)) {
			r.logger.Info("aborted by user")
			return nil, Summary{Aborted: true}, nil
		}
	}

	results := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)

	for i, file := range files {
		g.Go(func() error {
			outcome := r.processOne(gctx, file, transform)
			results[i] = Result{File: file, Outcome: outcome}
			r.report(file, outcome)

			// Only a failed restore unwinds the run.
			if outcome.Err != nil {
				var restoreErr kerrors.RestoreError
				if errors.As(outcome.Err, &restoreErr) {
					return fmt.Errorf("%w: %v", ErrRestoreFailed, restoreErr)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	summary := Summarize(results, false)
	return results, summary, err
}

// processOne runs the transform for a single file, with backup and restore
// when enabled.
func (r *Runner) processOne(ctx context.Context, file string, transform Transform) Outcome {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	if !(r.opts.Mutates && r.opts.Backup) {
		return r.runTransform(ctx, file, transform)
	}

	b, err := backup.Create(file)
	if err != nil {
		return Failed(err)
	}

	outcome := r.runTransform(ctx, file, transform)
	if outcome.Status == StatusFailed {
		r.logger.Warn("transform failed for %s, restoring from backup", file)
		if restoreErr := b.Restore(); restoreErr != nil {
			r.logger.Fatal("%v", restoreErr)
			return Failed(restoreErr)
		}
		r.logger.Info("restored %s from backup", file)
		return outcome
	}

	if err := b.Remove(); err != nil {
		r.logger.Warn("%v", err)
	}
	return outcome
}

func (r *Runner) runTransform(ctx context.Context, file string, transform Transform) Outcome {
	outcome := transform(ctx, file)
	if outcome.Status == StatusFailed && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome.Err = kerrors.UserError{
			Message:    fmt.Sprintf("Timed out processing %s", file),
			Details:    fmt.Sprintf("operation exceeded %s, the wrapped tool may be waiting for input", r.opts.Timeout),
			Suggestion: "Increase --timeout (or KEYOPS_TOOL_TIMEOUT_MS) or run the tool manually once to cache credentials",
			Err:        outcome.Err,
		}
	}
	return outcome
}

// report writes the per-file status line at the matching severity.
func (r *Runner) report(file string, outcome Outcome) {
	switch outcome.Status {
	case StatusSuccess:
		if outcome.Reason != "" {
			r.logger.Info("%s (%s)", file, outcome.Reason)
		} else {
			r.logger.Info("%s", file)
		}
	case StatusSkipped:
		r.logger.Warn("skipped %s: %s", file, outcome.Reason)
	case StatusFailed:
		r.logger.Error("failed %s: %v", file, outcome.Err)
	}
}

// confirm asks the operator to approve a mutating run over count files.
func (r *Runner) confirm(count int) bool {
	fmt.Fprintf(os.Stderr, "About to modify %d file(s). Continue? (y/N): ", count)
	reader := bufio.NewReader(r.opts.Input)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
