package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/x45dev/keyops/cmd/keyops/commands"
	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "keyops",
		Short: "Key lifecycle and encrypted-secrets operations",
		Long: `keyops wraps sops, gpg, and age to keep encrypted secrets healthy:
rekey files after recipient changes, audit that everything still decrypts,
redact secrets for sharing, and watch for expiring keys.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: keyops.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode, skip confirmation prompts")

	// Add commands
	rootCmd.AddCommand(
		commands.NewRekeyCommand(cfg),
		commands.NewAuditCommand(cfg),
		commands.NewRedactCommand(cfg),
		commands.NewKeysCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
