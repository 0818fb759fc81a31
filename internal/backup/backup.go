// Package backup snapshots files before destructive transforms so a failed
// run can put the original content back.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	kerrors "github.com/x45dev/keyops/internal/errors"
)

// Backup is an ownership-transferring snapshot of a file's prior content.
// Lifecycle: created immediately before mutation, removed at the end of
// that file's processing regardless of outcome.
type Backup struct {
	Original string
	Path     string
}

// Create copies the file to a timestamped sibling path. The backup is
// opened exclusively so concurrent runs on the same file cannot share a
// path; on collision the nanosecond suffix disambiguates.
func Create(path string) (*Backup, error) {
	now := time.Now()
	backupPath := fmt.Sprintf("%s.%s.bak", path, now.Format("20060102-150405"))
	err := copyFile(path, backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if errors.Is(err, os.ErrExist) {
		backupPath = fmt.Sprintf("%s.%s-%09d.bak", path, now.Format("20060102-150405"), now.Nanosecond())
		err = copyFile(path, backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to back up %s: %w", path, err)
	}

	return &Backup{Original: path, Path: backupPath}, nil
}

// Restore puts the original content back after a failed transform and
// removes the backup. A failure here means the original may be left in an
// undefined state, which is escalated as a RestoreError.
func (b *Backup) Restore() error {
	if err := copyFile(b.Path, b.Original, os.O_WRONLY|os.O_CREATE|os.O_TRUNC); err != nil {
		return kerrors.RestoreError{
			File:   b.Original,
			Backup: b.Path,
			Err:    err,
		}
	}
	return b.Remove()
}

// Remove deletes the backup file after a successful transform.
func (b *Backup) Remove() error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup %s: %w", b.Path, err)
	}
	return nil
}

func copyFile(src, dst string, flags int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
