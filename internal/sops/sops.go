// Package sops wraps the sops CLI for decrypt checks and rekeying.
// The encryption format itself is opaque to keyops; only exit codes and
// stderr matter here.
package sops

import (
	"context"
	"errors"
	"strings"

	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/pkg/exec"
)

const binary = "sops"

// Client invokes the sops binary.
type Client struct {
	executor exec.CommandExecutor

	// AgeKeyFile and GnupgHome are exported to the tool's environment
	// indirectly; sops reads SOPS_AGE_KEY_FILE and GNUPGHOME itself, so
	// these are only used for error suggestions.
	AgeKeyFile string
	GnupgHome  string
}

// NewClient creates a sops client using the given executor.
func NewClient(executor exec.CommandExecutor) *Client {
	return &Client{executor: executor}
}

// CheckInstalled verifies the sops binary is on PATH.
func (c *Client) CheckInstalled() error {
	if err := exec.LookPath(binary); err != nil {
		return kerrors.WrapCommandNotFound(binary, err)
	}
	return nil
}

// Check reports whether the file decrypts under the current identity and
// recipient configuration. Output is discarded; only the exit code counts.
// A false result is expected classification flow, not an error.
func (c *Client) Check(ctx context.Context, path string) (bool, string) {
	_, stderr, err := c.executor.Execute(ctx, binary, "--decrypt", path)
	if err == nil {
		return true, ""
	}
	return false, firstLine(string(stderr))
}

// CheckFailure wraps a failed decrypt check as a reportable error. The
// reason text drives the suggestion, so "no identity matched" and "not a
// sops file" failures get targeted fixes.
func CheckFailure(path, reason string) error {
	if reason == "" {
		reason = "decryption failed"
	}
	return kerrors.ToolError(binary, "decrypt check of "+path, errors.New(reason))
}

// UpdateKeys re-encrypts the file in place against the recipient set from
// the matching .sops.yaml creation rule. Plaintext content is unchanged, so
// rekeying an already-current file is a no-op in effect.
func (c *Client) UpdateKeys(ctx context.Context, path string) error {
	_, stderr, err := c.executor.Execute(ctx, binary, "updatekeys", "--yes", path)
	if err != nil {
		cmdErr := kerrors.CommandError{
			Command:  binary + " updatekeys",
			ExitCode: exec.ExitCode(err),
			Message:  firstLine(string(stderr)),
		}
		return kerrors.ToolError(binary, "rekey of "+path, cmdErr)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
