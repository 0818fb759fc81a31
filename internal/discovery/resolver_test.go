package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x45dev/keyops/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data\n"), 0o644))
}

func TestResolve_ExplicitFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.yaml"))
	touch(t, filepath.Join(dir, "b.txt"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths:      []string{"a.yaml", "b.txt"},
		Extensions: []string{".yaml"},
		Root:       dir,
	})
	require.NoError(t, err)

	// Explicit files bypass the extension filter.
	assert.Len(t, got, 2)
}

func TestResolve_MissingPathSkippedNotFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths: []string{"a.yaml", "does-not-exist.yaml"},
		Root:  dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolve_DirectoryWalkHonorsExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "secrets", "prod.yaml"))
	touch(t, filepath.Join(dir, "secrets", "nested", "dev.env"))
	touch(t, filepath.Join(dir, "secrets", "README.md"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths:      []string{"secrets"},
		Extensions: []string{".yaml", ".env"},
		Root:       dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, f := range got {
		assert.NotContains(t, f, "README")
	}
}

func TestResolve_DefaultGlobsRecursive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "secrets", "prod.yaml"))
	touch(t, filepath.Join(dir, "secrets", "deep", "deeper", "dev.yaml"))
	touch(t, filepath.Join(dir, "secrets", "notes.txt"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		DefaultGlobs: []string{"secrets/**/*.yaml"},
		Root:         dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResolve_GlobArgument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "one.sops.yaml"))
	touch(t, filepath.Join(dir, "two.sops.yaml"))
	touch(t, filepath.Join(dir, "plain.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths: []string{"*.sops.yaml"},
		Root:  dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResolve_BracePatternArgument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "dev.yaml"))
	touch(t, filepath.Join(dir, "prod.yaml"))
	touch(t, filepath.Join(dir, "stage.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths: []string{"{dev,prod}.yaml"},
		Root:  dir,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got, filepath.Join(dir, "dev.yaml"))
	assert.Contains(t, got, filepath.Join(dir, "prod.yaml"))
}

func TestResolve_DeduplicatesOverlappingPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "secrets", "prod.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		DefaultGlobs: []string{"secrets/**/*.yaml", "secrets/*.yaml", "**/*.yaml"},
		Root:         dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1, "overlapping globs must not duplicate candidates")
}

func TestResolve_ExplicitDuplicateListedOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths: []string{"a.yaml", "./a.yaml", filepath.Join(dir, "a.yaml")},
		Root:  dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolve_ZeroMatchesIsValid(t *testing.T) {
	t.Parallel()

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		DefaultGlobs: []string{"nothing/**/*.yaml"},
		Root:         t.TempDir(),
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_InvalidGlobSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		DefaultGlobs: []string{"[invalid", "*.yaml"},
		Root:         dir,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolve_OrderPreserved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "z.yaml"))
	touch(t, filepath.Join(dir, "a.yaml"))

	r := NewResolver(testLogger())
	got, err := r.Resolve(TargetSpec{
		Paths: []string{"z.yaml", "a.yaml"},
		Root:  dir,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "z.yaml")
	assert.Contains(t, got[1], "a.yaml")
}

func TestClassify(t *testing.T) {
	t.Parallel()

	candidates := []string{"keep-1", "drop", "keep-2"}

	got := Classify(context.Background(), testLogger(), candidates, func(_ context.Context, path string) (bool, string) {
		return path != "drop", "not wanted"
	})

	assert.Equal(t, []string{"keep-1", "keep-2"}, got)
}

func TestReadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	readable := filepath.Join(dir, "ok.yaml")
	touch(t, readable)

	pred := Readable()

	ok, _ := pred(context.Background(), readable)
	assert.True(t, ok)

	ok, reason := pred(context.Background(), filepath.Join(dir, "missing.yaml"))
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestClassify_AuditScenario(t *testing.T) {
	t.Parallel()

	// 3 decryptable and 2 non-decryptable files yield exactly 3 classified.
	files := []string{"a", "b", "c", "x", "y"}
	decryptable := map[string]bool{"a": true, "b": true, "c": true}

	got := Classify(context.Background(), testLogger(), files, func(_ context.Context, path string) (bool, string) {
		if decryptable[path] {
			return true, ""
		}
		return false, "cannot decrypt"
	})

	assert.Equal(t, []string{"a", "b", "c"}, got)
}
