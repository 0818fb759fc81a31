package discovery

import (
	"context"
	"os"

	"github.com/x45dev/keyops/internal/logging"
)

// Predicate decides whether a candidate is a valid subject for an operation.
// It must be side-effect-free: no mutation of the candidate, no partial
// output on disk. A false result is expected flow, not an error.
type Predicate func(ctx context.Context, path string) (ok bool, reason string)

// Classify filters candidates through the predicate. Misses are logged at
// debug severity and dropped; order is preserved.
func Classify(ctx context.Context, logger *logging.Logger, candidates []string, predicate Predicate) []string {
	var classified []string
	for _, candidate := range candidates {
		ok, reason := predicate(ctx, candidate)
		if !ok {
			logger.Debug("excluding %s: %s", candidate, reason)
			continue
		}
		classified = append(classified, candidate)
	}
	return classified
}

// Readable is the predicate for operations that only need file access.
func Readable() Predicate {
	return func(_ context.Context, path string) (bool, string) {
		f, err := os.Open(path)
		if err != nil {
			return false, err.Error()
		}
		_ = f.Close()
		return true, ""
	}
}
