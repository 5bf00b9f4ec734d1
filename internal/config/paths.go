package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Home returns the SNAFU installation root. The SNAFU_ROOT environment
// variable overrides the platform default.
func Home() (string, error) {
	if v := os.Getenv("SNAFU_ROOT"); v != "" {
		return v, nil
	}
	if runtime.GOOS == "windows" {
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return filepath.Join(v, "Programs", "SNAFU"), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Local", "Programs", "SNAFU"), nil
	}
	return filepath.Join(home, ".local", "share", "snafu"), nil
}

// LibDir is the payload directory, replaced wholesale on every setup run.
func LibDir() (string, error) { return subdir("lib") }

// CmdDir holds published command shims, including snafu.shim.
func CmdDir() (string, error) { return subdir("cmd") }

// ScriptsDir holds scripts published from installed Python versions.
func ScriptsDir() (string, error) { return subdir("scripts") }

// VersionsDir holds managed Python installations, one per version name.
func VersionsDir() (string, error) { return subdir("versions") }

// CacheDir holds downloaded installer assets.
func CacheDir() (string, error) { return subdir("cache") }

func subdir(name string) (string, error) {
	h, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, name), nil
}

// DBPath returns the full path to the SQLite state database file.
func DBPath() (string, error) {
	h, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, "snafu.db"), nil
}

// EnsureHome creates the installation root if needed and returns it.
func EnsureHome() (string, error) {
	h, err := Home()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(h, 0o755); err != nil {
		return "", err
	}
	return h, nil
}

// EnsureLayout creates the root and every managed subdirectory.
func EnsureLayout() (string, error) {
	h, err := EnsureHome()
	if err != nil {
		return "", err
	}
	for _, d := range []string{"lib", "cmd", "scripts", "versions", "cache"} {
		if err := os.MkdirAll(filepath.Join(h, d), 0o755); err != nil {
			return "", err
		}
	}
	return h, nil
}
