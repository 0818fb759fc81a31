package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/x45dev/keyops/internal/config"
	"github.com/x45dev/keyops/internal/discovery"
	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/pkg/exec"
)

// checkResult is one row of the doctor report.
type checkResult struct {
	Name       string
	Status     string
	Detail     string
	Suggestion string
	Required   bool
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools and project configuration",
		Long: `Verify that the project is ready for secrets operations.

This command checks:
- Required external tools on PATH (sops, gpg, age)
- Optional tooling (ykman for YubiKey-backed keys)
- keyops.yaml validity
- .sops.yaml presence
- Identity configuration (SOPS_AGE_KEY_FILE, GNUPGHOME)
- Whether the default globs match anything`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cfg)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
			failed := 0
			for _, r := range results {
				detail := r.Detail
				if r.Status != "ok" && r.Suggestion != "" && verbose {
					detail += " — " + r.Suggestion
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, detail)
				if r.Status == "error" && r.Required {
					failed++
				}
			}
			_ = w.Flush()

			if failed > 0 {
				return kerrors.UserError{
					Message:    fmt.Sprintf("%d required check(s) failed", failed),
					Suggestion: "Run 'keyops doctor -v' for fix suggestions",
				}
			}
			cfg.Logger.Info("all required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show fix suggestions for failing checks")

	return cmd
}

func runChecks(cfg *config.Config) []checkResult {
	var results []checkResult

	// Required and optional tools.
	for _, tool := range []string{"sops", "gpg", "age"} {
		r := checkResult{Name: "tool: " + tool, Status: "ok", Required: true}
		if err := exec.LookPath(tool); err != nil {
			r.Status = "error"
			r.Detail = "not found on PATH"
			r.Suggestion = kerrors.WrapCommandNotFound(tool, err).Error()
		}
		results = append(results, r)
	}
	ykman := checkResult{Name: "tool: ykman", Status: "ok", Detail: "optional"}
	if err := exec.LookPath("ykman"); err != nil {
		ykman.Status = "warn"
		ykman.Detail = "not found (only needed for YubiKey-backed keys)"
	}
	results = append(results, ykman)

	// Project configuration.
	cfgCheck := checkResult{Name: "keyops.yaml", Status: "ok", Required: true}
	if err := cfg.Load(); err != nil {
		cfgCheck.Status = "error"
		cfgCheck.Detail = err.Error()
	} else if cfg.Path == "" {
		if _, err := os.Stat("keyops.yaml"); os.IsNotExist(err) {
			cfgCheck.Status = "warn"
			cfgCheck.Detail = "not present, using environment defaults"
			cfgCheck.Required = false
		}
	}
	results = append(results, cfgCheck)

	sopsCfg := checkResult{Name: ".sops.yaml", Status: "ok", Required: true}
	if _, err := os.Stat(".sops.yaml"); err != nil {
		sopsCfg.Status = "error"
		sopsCfg.Detail = "not found in project root"
		sopsCfg.Suggestion = "Create a .sops.yaml with creation rules so sops knows the recipient set"
	}
	results = append(results, sopsCfg)

	// Identity configuration. At least one of AGE identity or GNUPGHOME
	// keyring should be usable; both missing is only a warning because
	// gpg may still find its default home.
	identity := checkResult{Name: "identity", Status: "ok"}
	switch {
	case cfg.Settings.AgeKeyFile != "":
		if _, err := os.Stat(cfg.Settings.AgeKeyFile); err != nil {
			identity.Status = "error"
			identity.Required = true
			identity.Detail = fmt.Sprintf("SOPS_AGE_KEY_FILE points to missing file %s", cfg.Settings.AgeKeyFile)
			identity.Suggestion = "Fix the path or generate an identity with 'age-keygen'"
		} else {
			identity.Detail = "AGE identity: " + cfg.Settings.AgeKeyFile
		}
	case cfg.Settings.GnupgHome != "":
		if _, err := os.Stat(cfg.Settings.GnupgHome); err != nil {
			identity.Status = "error"
			identity.Required = true
			identity.Detail = fmt.Sprintf("GNUPGHOME points to missing directory %s", cfg.Settings.GnupgHome)
		} else {
			identity.Detail = "GNUPGHOME: " + cfg.Settings.GnupgHome
		}
	default:
		identity.Status = "warn"
		identity.Detail = "neither SOPS_AGE_KEY_FILE nor GNUPGHOME set, relying on tool defaults"
	}
	results = append(results, identity)

	// Default globs should match something once the project is set up.
	if cfg.Logger != nil {
		resolver := discovery.NewResolver(cfg.Logger)
		candidates, err := resolver.Resolve(discovery.TargetSpec{DefaultGlobs: cfg.Settings.RekeyGlobs})
		globs := checkResult{Name: "default globs", Status: "ok"}
		if err != nil || len(candidates) == 0 {
			globs.Status = "warn"
			globs.Detail = "no files match the configured rekey globs"
			globs.Suggestion = "Set KEYOPS_REKEY_GLOBS or rekey_globs in keyops.yaml to match your layout"
		} else {
			globs.Detail = fmt.Sprintf("%d file(s) match", len(candidates))
		}
		results = append(results, globs)
	}

	return results
}
