// Package discovery turns user-supplied paths, directories, and glob
// patterns into the deduplicated candidate set the pipeline operates on.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/x45dev/keyops/internal/logging"
)

// TargetSpec describes what the user asked to process.
type TargetSpec struct {
	// Paths are explicit files, directories, or glob patterns from the
	// command line. Empty means "fall back to DefaultGlobs".
	Paths []string

	// DefaultGlobs are the configured patterns used when Paths is empty,
	// resolved relative to Root.
	DefaultGlobs []string

	// Extensions restricts directory walks. Explicit file paths bypass
	// the filter: naming a file is taken as intent.
	Extensions []string

	// Root anchors relative patterns. Empty means the working directory.
	Root string
}

// Resolver expands a TargetSpec into candidate files.
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a resolver that reports skipped inputs through logger.
func NewResolver(logger *logging.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve expands the spec. Missing paths and empty patterns are logged and
// skipped; a zero-candidate result is valid, not an error. The returned list
// is deduplicated by canonical path, first appearance order preserved.
func (r *Resolver) Resolve(spec TargetSpec) ([]string, error) {
	root := spec.Root
	if root == "" {
		root = "."
	}

	var candidates []string
	seen := make(map[string]bool)

	add := func(path string) {
		canonical := canonicalPath(path)
		if seen[canonical] {
			return
		}
		seen[canonical] = true
		candidates = append(candidates, path)
	}

	if len(spec.Paths) > 0 {
		for _, raw := range spec.Paths {
			path := expandTilde(raw)
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, path)
			}

			info, err := os.Stat(path)
			if err != nil {
				// A glob pattern won't stat; try expanding it before
				// declaring the input missing. Glob matches express the
				// same intent as explicit files, so no extension filter.
				if strings.ContainsAny(raw, "*?[{") {
					for _, m := range r.expandGlob(path, nil) {
						add(m)
					}
					continue
				}
				r.logger.Warn("skipping %s: %v", raw, err)
				continue
			}

			if info.IsDir() {
				for _, m := range r.walkDir(path, spec.Extensions) {
					add(m)
				}
				continue
			}

			// Explicit file: taken as-is, extension filter does not apply.
			add(path)
		}
		return candidates, nil
	}

	for _, pattern := range spec.DefaultGlobs {
		abs := pattern
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, abs)
		}
		for _, m := range r.expandGlob(abs, nil) {
			add(m)
		}
	}

	return candidates, nil
}

func (r *Resolver) expandGlob(pattern string, extensions []string) []string {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		r.logger.Warn("skipping invalid glob pattern %q: %v", pattern, err)
		return nil
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if len(extensions) > 0 && !hasExtension(m, extensions) {
			continue
		}
		files = append(files, m)
	}
	return files
}

func (r *Resolver) walkDir(dir string, extensions []string) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Debug("skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(extensions) > 0 && !hasExtension(path, extensions) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		r.logger.Warn("error walking %s: %v", dir, err)
	}
	return files
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// canonicalPath resolves symlinks and relative segments so the same file
// reached through different spellings deduplicates to one candidate.
func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
