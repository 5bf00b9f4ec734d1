// Package python locates installed Python interpreters. On Windows the
// PythonCore registry entries (HKCU first, then HKLM) are consulted before
// falling back to the managed versions directory.
package python

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imbi7py/snafu/internal/config"
)

// ErrNotInstalled is returned when no installation can be located for a name.
var ErrNotInstalled = errors.New("not installed")

// Installation is a located Python installation on disk.
type Installation struct {
	Name string
	Path string
}

// Exe returns the interpreter executable inside the installation.
func (i *Installation) Exe() string {
	return filepath.Join(i.Path, "python.exe")
}

// ScriptsDir returns the installation's script directory (where pip and
// friends land).
func (i *Installation) ScriptsDir() string {
	return filepath.Join(i.Path, "Scripts")
}

// ManagedPath returns the directory a managed install of name targets,
// whether or not anything is installed there.
func ManagedPath(name string) (string, error) {
	d, err := config.VersionsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// Find locates the installation for a version name. The registry wins over
// the managed directory so externally installed interpreters are respected.
func Find(name string) (*Installation, error) {
	if p, err := lookupRegistry(name); err == nil && p != "" {
		if hasInterpreter(p) {
			return &Installation{Name: name, Path: p}, nil
		}
	}
	p, err := ManagedPath(name)
	if err != nil {
		return nil, err
	}
	if hasInterpreter(p) {
		return &Installation{Name: name, Path: p}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
}

// IsInstalled reports whether a version can be located.
func IsInstalled(name string) bool {
	_, err := Find(name)
	return err == nil
}

func hasInterpreter(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, "python.exe"))
	return err == nil && !fi.IsDir()
}

// MicroVersion asks the installed interpreter for its full version. Used by
// upgrade to decide whether an installer run is needed.
func MicroVersion(ctx context.Context, inst *Installation) ([]int, error) {
	out, err := exec.CommandContext(ctx, inst.Exe(), "-c",
		"import sys; print('%d.%d.%d' % sys.version_info[:3])").Output()
	if err != nil {
		return nil, fmt.Errorf("query interpreter version: %w", err)
	}
	return ParseVersionInfo(strings.TrimSpace(string(out)))
}

// ParseVersionInfo parses a dotted version string into its numeric parts.
func ParseVersionInfo(s string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed version %q", s)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("malformed version %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

// Script extensions tried when resolving a command inside an installation's
// Scripts directory, in order.
var scriptExts = []string{".exe", "", ".py", ".bat", ".cmd"}

// FindScript resolves a command name inside the installation's Scripts
// directory. Returns os.ErrNotExist when the command is not provided.
func FindScript(inst *Installation, command string) (string, error) {
	dir := inst.ScriptsDir()
	for _, ext := range scriptExts {
		p := filepath.Join(dir, command+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", command, dir, os.ErrNotExist)
}
