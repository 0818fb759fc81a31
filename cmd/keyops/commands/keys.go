package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/x45dev/keyops/internal/config"
	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/gpg"
)

func NewKeysCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect GPG key material",
		Long: `Inspect the GPG keyring backing your encrypted secrets.

Subcommands:
  expiry  Report keys that are expired or about to expire

Examples:
  keyops keys expiry              # Secret keys expiring within the threshold
  keyops keys expiry --days 90    # Wider warning window
  keyops keys expiry --all-keys   # Include the whole public keyring`,
	}

	cmd.AddCommand(
		NewKeysExpiryCommand(cfg),
	)

	return cmd
}

func NewKeysExpiryCommand(cfg *config.Config) *cobra.Command {
	var (
		days      int
		gnupgHome string
		allKeys   bool
	)

	cmd := &cobra.Command{
		Use:   "expiry",
		Short: "Report keys that are expired or about to expire",
		Long: `List keys together with their expiration dates and flag any that are
expired or expire within the warning threshold.

By default only secret keys are checked, since those are the ones you can
renew. The run fails when at least one checked key is expired or expiring,
which makes this suitable as a scheduled CI check.

Examples:
  keyops keys expiry
  keyops keys expiry --days 14
  keyops keys expiry --gnupghome ~/.gnupg-work --all-keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			if days < 0 {
				return kerrors.ConfigError{
					Field:      "days",
					Value:      days,
					Message:    "warning threshold must be a positive number of days",
					Suggestion: "Pass --days with a value of 1 or more, or omit it to use the configured default",
				}
			}
			// Flag beats environment beats file.
			if days == 0 {
				days = cfg.Settings.ExpiryDays
			}
			if gnupgHome == "" {
				gnupgHome = cfg.Settings.GnupgHome
			}

			client := gpg.NewClient(cfg.GetExecutor())
			client.GnupgHome = gnupgHome
			if err := client.CheckInstalled(); err != nil {
				return err
			}

			keys, err := client.ListKeys(cmd.Context(), !allKeys)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				cfg.Logger.Info("no keys found")
				return nil
			}

			now := time.Now()
			expiring := reportKeyExpiry(cfg, keys, days, now)

			if expiring > 0 {
				return kerrors.UserError{
					Message:    fmt.Sprintf("%d key(s) expired or expiring within %d days", expiring, days),
					Suggestion: "Extend the expiration with 'gpg --quick-set-expire <fpr> <period>' and redistribute the public key",
				}
			}
			cfg.Logger.Info("no keys expiring within %d days", days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Warning threshold in days (default: configured expiry days)")
	cmd.Flags().StringVar(&gnupgHome, "gnupghome", "", "GnuPG home directory (default: $GNUPGHOME)")
	cmd.Flags().BoolVar(&allKeys, "all-keys", false, "Check the public keyring instead of only secret keys")

	return cmd
}

// reportKeyExpiry prints the key table and returns how many keys are
// expired or inside the warning threshold.
func reportKeyExpiry(cfg *config.Config, keys []gpg.Key, days int, now time.Time) int {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tKIND\tIDENTITY\tEXPIRES\tSTATUS")

	expiring := 0
	for _, key := range keys {
		status := "ok"
		expires := "never"
		if !key.NeverExpires() {
			expires = key.ExpiresAt.Format("2006-01-02")
			switch {
			case key.Expired(now):
				status = "EXPIRED"
				expiring++
			case key.ExpiresWithin(days, now):
				status = fmt.Sprintf("expires in %dd", int(key.ExpiresAt.Sub(now).Hours()/24))
				expiring++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", key.KeyID, key.Kind, key.UserID, expires, status)
	}
	_ = w.Flush()

	return expiring
}
