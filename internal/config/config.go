// Package config provides runtime configuration for keyops.
//
// Values are layered: explicit flags override environment variables,
// which override the optional keyops.yaml project file, which overrides
// the hardcoded defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	env "github.com/allisson/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/logging"
	"github.com/x45dev/keyops/pkg/exec"
)

// Config holds the runtime configuration
type Config struct {
	Path           string // keyops.yaml path, empty means "look for one"
	Logger         *logging.Logger
	NonInteractive bool

	// Executor runs external tools; tests inject a mock here.
	Executor exec.CommandExecutor

	Settings Settings
}

// Settings holds the tunable values shared by the subcommands.
type Settings struct {
	// ExpiryDays is the warning threshold for 'keys expiry'.
	ExpiryDays int `yaml:"expiry_days"`

	// Default glob sets used when no paths are given on the command line.
	RekeyGlobs  []string `yaml:"rekey_globs"`
	AuditGlobs  []string `yaml:"audit_globs"`
	RedactGlobs []string `yaml:"redact_globs"`

	// Extensions restricts directory walks to likely secret files.
	Extensions []string `yaml:"extensions"`

	// OutputDir is where redacted copies are written.
	OutputDir string `yaml:"output_dir"`

	// RedactMarker replaces values in redacted output.
	RedactMarker string `yaml:"redact_marker"`

	// ToolTimeoutMs bounds each external tool invocation.
	ToolTimeoutMs int `yaml:"tool_timeout_ms"`

	// AgeKeyFile and GnupgHome are passed through to sops/gpg.
	AgeKeyFile string `yaml:"age_key_file"`
	GnupgHome  string `yaml:"gnupg_home"`
}

const defaultConfigFile = "keyops.yaml"

// Load resolves settings from the environment and the optional keyops.yaml.
func (c *Config) Load() error {
	loadDotEnv()

	// Hardcoded defaults, overridable via environment.
	c.Settings = Settings{
		ExpiryDays:    env.GetInt("KEYOPS_EXPIRY_DAYS", 30),
		RekeyGlobs:    splitList(env.GetString("KEYOPS_REKEY_GLOBS", "secrets/**/*.yaml,secrets/**/*.json,**/*.sops.yaml")),
		AuditGlobs:    splitList(env.GetString("KEYOPS_AUDIT_GLOBS", "secrets/**/*.yaml,secrets/**/*.json,**/*.sops.yaml")),
		RedactGlobs:   splitList(env.GetString("KEYOPS_REDACT_GLOBS", "**/*.env,secrets/**/*.yaml")),
		Extensions:    splitList(env.GetString("KEYOPS_EXTENSIONS", ".yaml,.yml,.json,.env,.ini")),
		OutputDir:     env.GetString("KEYOPS_OUTPUT_DIR", "redacted"),
		RedactMarker:  env.GetString("KEYOPS_REDACT_MARKER", "REDACTED"),
		ToolTimeoutMs: env.GetInt("KEYOPS_TOOL_TIMEOUT_MS", 30000),
		AgeKeyFile:    env.GetString("SOPS_AGE_KEY_FILE", ""),
		GnupgHome:     env.GetString("GNUPGHOME", ""),
	}

	path := c.Path
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return kerrors.ConfigError{
					Field:      "config",
					Value:      path,
					Message:    "configuration file not found",
					Suggestion: "Create a keyops.yaml or omit --config to use environment defaults",
				}
			}
			// The project file is optional.
			return nil
		}
		return kerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := ValidateSchema(data); err != nil {
		return err
	}

	// Environment values win over the file, so unmarshal into a scratch
	// struct and only take fields that are actually set.
	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return kerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	c.mergeFile(file)

	return nil
}

// mergeFile applies keyops.yaml values underneath environment overrides.
func (c *Config) mergeFile(file Settings) {
	s := &c.Settings
	if file.ExpiryDays > 0 && !envSet("KEYOPS_EXPIRY_DAYS") {
		s.ExpiryDays = file.ExpiryDays
	}
	if len(file.RekeyGlobs) > 0 && !envSet("KEYOPS_REKEY_GLOBS") {
		s.RekeyGlobs = file.RekeyGlobs
	}
	if len(file.AuditGlobs) > 0 && !envSet("KEYOPS_AUDIT_GLOBS") {
		s.AuditGlobs = file.AuditGlobs
	}
	if len(file.RedactGlobs) > 0 && !envSet("KEYOPS_REDACT_GLOBS") {
		s.RedactGlobs = file.RedactGlobs
	}
	if len(file.Extensions) > 0 && !envSet("KEYOPS_EXTENSIONS") {
		s.Extensions = file.Extensions
	}
	if file.OutputDir != "" && !envSet("KEYOPS_OUTPUT_DIR") {
		s.OutputDir = file.OutputDir
	}
	if file.RedactMarker != "" && !envSet("KEYOPS_REDACT_MARKER") {
		s.RedactMarker = file.RedactMarker
	}
	if file.ToolTimeoutMs > 0 && !envSet("KEYOPS_TOOL_TIMEOUT_MS") {
		s.ToolTimeoutMs = file.ToolTimeoutMs
	}
	if file.AgeKeyFile != "" && !envSet("SOPS_AGE_KEY_FILE") {
		s.AgeKeyFile = file.AgeKeyFile
	}
	if file.GnupgHome != "" && !envSet("GNUPGHOME") {
		s.GnupgHome = file.GnupgHome
	}
}

// GetExecutor returns the injected executor or the production default.
func (c *Config) GetExecutor() exec.CommandExecutor {
	if c.Executor != nil {
		return c.Executor
	}
	return exec.DefaultExecutor()
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDotEnv searches for a .env file up the directory tree and loads it.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
