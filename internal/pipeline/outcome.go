// Package pipeline executes a per-file operation across a classified file
// set with per-file isolation, optional backups, and aggregate reporting.
package pipeline

import "fmt"

// Status is the terminal state of one file's processing.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of processing a single file.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

// SuccessWithReason returns a successful outcome with an annotation,
// e.g. "would be processed" in dry-run mode.
func SuccessWithReason(reason string) Outcome {
	return Outcome{Status: StatusSuccess, Reason: reason}
}

// Skipped returns a non-error outcome for a file that needed no work.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// Failed returns a failed outcome. The error stays attached to the file;
// it never aborts the rest of the run.
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// Result pairs a file with its outcome.
type Result struct {
	File    string
	Outcome Outcome
}

// Summary aggregates outcomes over a whole run. It is the sole authority
// for the process exit decision.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int

	// DryRun records that no transform was attempted; the exit status is
	// always success in that case.
	DryRun bool

	// Aborted records a user-declined confirmation, which is success.
	Aborted bool
}

// Summarize aggregates results into a Summary.
func Summarize(results []Result, dryRun bool) Summary {
	s := Summary{DryRun: dryRun}
	for _, r := range results {
		switch r.Outcome.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Total returns the number of files that received an outcome.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

// OK reports whether the run should exit zero.
func (s Summary) OK() bool {
	return s.DryRun || s.Failed == 0
}

// String renders the final count line.
func (s Summary) String() string {
	if s.Aborted {
		return "aborted by user, no files processed"
	}
	line := fmt.Sprintf("%d succeeded, %d skipped, %d failed", s.Succeeded, s.Skipped, s.Failed)
	if s.DryRun {
		line += " (dry run)"
	}
	return line
}
