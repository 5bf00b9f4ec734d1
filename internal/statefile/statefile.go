// Package statefile copies the SNAFU state database for backup and restore.
package statefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/imbi7py/snafu/internal/config"
)

// Export copies the active state database to dstPath.
func Export(dstPath string) error {
	src, err := config.DBPath()
	if err != nil {
		return err
	}
	return copyFile(src, dstPath)
}

// Import copies srcPath into the default database location. If overwrite
// is false and the destination exists, an error is returned.
func Import(srcPath string, overwrite bool) error {
	dst, err := config.DBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return errors.New("destination database exists; use --overwrite to replace")
	}
	return copyFile(srcPath, dst)
}

// Backup snapshots the state database next to itself with a unique suffix,
// returning the snapshot path. A missing database is not an error; the
// returned path is empty in that case. Setup runs this before applying
// schema migrations.
func Backup() (string, error) {
	src, err := config.DBPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return "", nil
	}
	dst := fmt.Sprintf("%s.bak-%s", src, uuid.NewString()[:8])
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source db: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create dst db: %w", err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}
