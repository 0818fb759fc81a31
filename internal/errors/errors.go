package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents an external tool execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// RestoreError is raised when a failed transform could not be rolled back
// from its backup. The original file may be left in an undefined state, so
// this is surfaced fatally rather than as an ordinary per-file failure.
type RestoreError struct {
	File   string
	Backup string
	Err    error
}

func (e RestoreError) Error() string {
	return fmt.Sprintf("CRITICAL: failed to restore '%s' from backup '%s': %v\n"+
		"  The file may be partially modified. Recover it manually from the backup before rerunning.",
		e.File, e.Backup, e.Err)
}

func (e RestoreError) Unwrap() error {
	return e.Err
}

// ToolError enhances tool-specific errors with context
func ToolError(tool string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", tool, operation),
		Details:    err.Error(),
		Suggestion: getToolSuggestion(tool, err),
		Err:        err,
	}
}

// getToolSuggestion returns helpful suggestions based on tool and error
func getToolSuggestion(tool string, err error) string {
	errStr := err.Error()

	switch tool {
	case "sops":
		if strings.Contains(errStr, "no matching creation rules") {
			return "Add a creation rule for this path to .sops.yaml"
		}
		if strings.Contains(errStr, "Failed to get the data key") || strings.Contains(errStr, "no identity matched") {
			return "Check that your AGE identity or GPG key can decrypt this file. Set SOPS_AGE_KEY_FILE or verify your keyring"
		}
		if strings.Contains(errStr, "sops metadata not found") {
			return "The file does not look like a SOPS-encrypted file. Encrypt it first with 'sops --encrypt'"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install sops: https://github.com/getsops/sops"
		}

	case "gpg":
		if strings.Contains(errStr, "No secret key") {
			return "The secret key is not in your keyring. Import it or plug in your YubiKey"
		}
		if strings.Contains(errStr, "inappropriate ioctl") || strings.Contains(errStr, "pinentry") {
			return "GPG could not prompt for a passphrase. Set GPG_TTY or configure a pinentry program"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install GnuPG: https://gnupg.org/download/"
		}

	case "age":
		if strings.Contains(errStr, "no identity matched") {
			return "None of your AGE identities can decrypt this file. Check SOPS_AGE_KEY_FILE"
		}
		if strings.Contains(errStr, "command not found") {
			return "Install age: https://github.com/FiloSottile/age"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") || errors.Is(err, context.DeadlineExceeded) {
		return "The tool timed out, possibly waiting for an interactive prompt. Increase the timeout or run the tool manually once to cache credentials"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Check file permissions, including GNUPGHOME (must be 0700)"
	}

	return ""
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"sops":  "Install sops from https://github.com/getsops/sops/releases",
		"gpg":   "Install GnuPG from https://gnupg.org/download/",
		"age":   "Install age from https://github.com/FiloSottile/age",
		"ykman": "Install YubiKey Manager from https://developers.yubico.com/yubikey-manager/",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: suggestion,
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	switch err.(type) {
	case UserError, ConfigError, CommandError, RestoreError:
		return err
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
