// Package gpg wraps the gpg CLI for keyring inspection. Key material never
// enters this process; only the machine-readable listing output is parsed.
package gpg

import (
	"context"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/pkg/exec"
)

const binary = "gpg"

// Key is one entry from a gpg --with-colons listing.
type Key struct {
	// Kind is the record type: pub, sub, sec, or ssb.
	Kind        string
	KeyID       string
	Fingerprint string
	CreatedAt   time.Time
	// ExpiresAt is zero for keys that never expire.
	ExpiresAt time.Time
	// UserID is the primary user identity associated with the key group.
	UserID string
}

// Primary reports whether this is a primary key rather than a subkey.
func (k Key) Primary() bool {
	return k.Kind == "pub" || k.Kind == "sec"
}

// Secret reports whether this entry came from the secret keyring.
func (k Key) Secret() bool {
	return k.Kind == "sec" || k.Kind == "ssb"
}

// NeverExpires reports whether the key has no expiration set.
func (k Key) NeverExpires() bool {
	return k.ExpiresAt.IsZero()
}

// Expired reports whether the key is already past its expiration.
func (k Key) Expired(now time.Time) bool {
	return !k.NeverExpires() && k.ExpiresAt.Before(now)
}

// ExpiresWithin reports whether the key expires inside the threshold.
// Already-expired keys count as expiring.
func (k Key) ExpiresWithin(days int, now time.Time) bool {
	if k.NeverExpires() {
		return false
	}
	return k.ExpiresAt.Before(now.AddDate(0, 0, days))
}

// Client invokes the gpg binary.
type Client struct {
	executor exec.CommandExecutor

	// GnupgHome overrides the keyring location via --homedir.
	GnupgHome string
}

// NewClient creates a gpg client using the given executor.
func NewClient(executor exec.CommandExecutor) *Client {
	return &Client{executor: executor}
}

// CheckInstalled verifies the gpg binary is on PATH.
func (c *Client) CheckInstalled() error {
	if err := exec.LookPath(binary); err != nil {
		return kerrors.WrapCommandNotFound(binary, err)
	}
	return nil
}

// ListKeys returns the public keyring; with secret set, the secret keyring
// (so hardware-backed stub entries are included).
func (c *Client) ListKeys(ctx context.Context, secret bool) ([]Key, error) {
	args := []string{"--batch", "--with-colons", "--fixed-list-mode"}
	if c.GnupgHome != "" {
		args = append(args, "--homedir", c.GnupgHome)
	}
	if secret {
		args = append(args, "--list-secret-keys")
	} else {
		args = append(args, "--list-keys")
	}

	stdout, stderr, err := c.executor.Execute(ctx, binary, args...)
	if err != nil {
		return nil, kerrors.CommandError{
			Command:  binary + " --list-keys",
			ExitCode: exec.ExitCode(err),
			Message:  strings.TrimSpace(string(stderr)),
		}
	}

	return parseColons(string(stdout)), nil
}

// parseColons reads gpg's machine-readable listing. Relevant fields per
// record: 1 = type, 5 = key ID, 6 = creation epoch, 7 = expiry epoch
// (empty means never), 10 = user ID on uid records or fingerprint on fpr
// records.
func parseColons(output string) []Key {
	var keys []Key
	groupStart := -1 // index of the current primary key in keys

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "pub", "sec", "sub", "ssb":
			key := Key{Kind: fields[0]}
			if len(fields) > 4 {
				key.KeyID = fields[4]
			}
			if len(fields) > 5 {
				key.CreatedAt = parseEpoch(fields[5])
			}
			if len(fields) > 6 {
				key.ExpiresAt = parseEpoch(fields[6])
			}
			keys = append(keys, key)
			if key.Primary() {
				groupStart = len(keys) - 1
			}
		case "fpr":
			if len(keys) > 0 && len(fields) > 9 {
				keys[len(keys)-1].Fingerprint = fields[9]
			}
		case "uid":
			// The first uid after a primary names the whole key group.
			if groupStart >= 0 && len(fields) > 9 {
				for i := groupStart; i < len(keys); i++ {
					if keys[i].UserID == "" {
						keys[i].UserID = fields[9]
					}
				}
			}
		}
	}

	// Subkeys listed after the uid record still inherit the group's uid.
	uid := ""
	for i := range keys {
		if keys[i].Primary() {
			uid = keys[i].UserID
		} else if keys[i].UserID == "" {
			keys[i].UserID = uid
		}
	}

	return keys
}

func parseEpoch(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	epoch, err := strconv.ParseInt(s, 10, 64)
	if err != nil || epoch == 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
