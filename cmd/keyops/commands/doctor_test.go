package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/logging"
	"github.com/x45dev/keyops/tests/testutil"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestDoctorCommand_AllChecksPass(t *testing.T) {
	withFakeTools(t, "sops", "gpg", "age", "ykman")
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SOPS_AGE_KEY_FILE", "")
	t.Setenv("GNUPGHOME", "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sops.yaml"), []byte("creation_rules: []\n"), 0o644))

	cfg := newTestConfig(testutil.NewMockCommandExecutor())
	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.NoError(t, err)
	assert.Contains(t, output, "tool: sops")
	assert.Contains(t, output, "tool: gpg")
	assert.Contains(t, output, "tool: age")
	assert.Contains(t, output, ".sops.yaml")
}

func TestDoctorCommand_MissingTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SOPS_AGE_KEY_FILE", "")
	t.Setenv("GNUPGHOME", "")

	cfg := newTestConfig(testutil.NewMockCommandExecutor())
	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "required check(s) failed")
	assert.Contains(t, output, "not found on PATH")
}

func TestDoctorCommand_MissingSopsConfig(t *testing.T) {
	withFakeTools(t, "sops", "gpg", "age")
	t.Chdir(t.TempDir())
	t.Setenv("SOPS_AGE_KEY_FILE", "")
	t.Setenv("GNUPGHOME", "")

	cfg := newTestConfig(testutil.NewMockCommandExecutor())
	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.Error(t, err)
	assert.Contains(t, output, "not found in project root")
}

func TestDoctorCommand_BrokenAgeIdentity(t *testing.T) {
	withFakeTools(t, "sops", "gpg", "age")
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SOPS_AGE_KEY_FILE", filepath.Join(dir, "missing-key.txt"))
	t.Setenv("GNUPGHOME", "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sops.yaml"), []byte("creation_rules: []\n"), 0o644))

	cfg := newTestConfig(testutil.NewMockCommandExecutor())
	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{"--verbose"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.Error(t, err)
	assert.Contains(t, output, "missing-key.txt")
	assert.Contains(t, output, "age-keygen")
}

func TestDoctorCommand_ValidAgeIdentity(t *testing.T) {
	withFakeTools(t, "sops", "gpg", "age")
	dir := t.TempDir()
	t.Chdir(dir)

	keyFile := filepath.Join(dir, "keys.txt")
	require.NoError(t, os.WriteFile(keyFile, []byte("AGE-SECRET-KEY-TEST\n"), 0o600))
	t.Setenv("SOPS_AGE_KEY_FILE", keyFile)
	t.Setenv("GNUPGHOME", "")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sops.yaml"), []byte("creation_rules: []\n"), 0o644))

	cfg := newTestConfig(testutil.NewMockCommandExecutor())
	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})

	var err error
	output := captureStdout(t, func() {
		err = cmd.Execute()
	})

	require.NoError(t, err)
	assert.Contains(t, output, "AGE identity")
}

func TestDoctorCommand_FlagDefinitions(t *testing.T) {
	cmd := NewDoctorCommand(&config.Config{Logger: logging.New(false, true)})

	f := cmd.Flags().Lookup("verbose")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}
