// Package selfinstall sets up and tears down the SNAFU installation itself:
// the managed directory layout, the launcher shim, bundled prerequisite
// packages, PATH membership and the Add/Remove Programs registration.
package selfinstall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/runner"
	"github.com/imbi7py/snafu/internal/shim"
	"github.com/imbi7py/snafu/internal/statefile"
	"github.com/imbi7py/snafu/internal/version"
)

// Options controls setup behavior.
type Options struct {
	From      string // explicit launcher binary; defaults to the running executable
	Publisher string
	AddToPath bool
	DryRun    bool
	Run       runner.Runner
	Out       io.Writer
}

// displayName is the product name shown in Add/Remove Programs.
const displayName = "SNAFU Python Manager"

func launcherName() string {
	if runtime.GOOS == "windows" {
		return "snafu.exe"
	}
	return "snafu"
}

// metadata records what setup changed so teardown can reverse it. It doubles
// as the uninstall registration on platforms without a registry, so it
// carries the same DisplayName/Publisher/UninstallString triple as the
// Windows uninstall key.
type metadata struct {
	DisplayName     string    `json:"display_name"`
	Publisher       string    `json:"publisher,omitempty"`
	UninstallString string    `json:"uninstall_string"`
	LauncherPath    string    `json:"launcher_path"`
	AddedToPath     bool      `json:"added_to_path"`
	PathFile        string    `json:"path_file,omitempty"`
	OldUserPath     string    `json:"old_user_path,omitempty"`
	InstalledAt     time.Time `json:"installed_at"`
}

func metadataPath() (string, error) {
	h, err := config.Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, "setup.json"), nil
}

func saveMetadata(m *metadata) error {
	p, err := metadataPath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func loadMetadata() (*metadata, error) {
	p, err := metadataPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var m metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func removeMetadata() error {
	p, err := metadataPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// pathDirs returns the directories setup places on PATH: cmd first so
// interpreter shims win, then scripts.
func pathDirs() ([]string, error) {
	cmdDir, err := config.CmdDir()
	if err != nil {
		return nil, err
	}
	scriptsDir, err := config.ScriptsDir()
	if err != nil {
		return nil, err
	}
	return []string{cmdDir, scriptsDir}, nil
}

// Setup installs SNAFU itself: creates the directory layout, refreshes the
// lib payload with the launcher binary, publishes the snafu shim, installs
// bundled prerequisite packages, optionally edits PATH and registers the
// uninstaller. Returns human-readable descriptions of what happened.
func Setup(ctx context.Context, opts Options) ([]string, error) {
	if err := checkSupportedOS(); err != nil {
		return nil, err
	}
	var actions []string

	home, err := config.Home()
	if err != nil {
		return nil, err
	}
	actions = append(actions, fmt.Sprintf("Ensure directory layout under %s", home))
	if opts.DryRun {
		return planSetup(opts, home)
	}
	if _, err := config.EnsureLayout(); err != nil {
		return nil, err
	}

	// The state database may predate this launcher; keep a snapshot before
	// any schema migration touches it.
	if bak, err := statefile.Backup(); err != nil {
		return nil, fmt.Errorf("backup state database: %w", err)
	} else if bak != "" {
		actions = append(actions, fmt.Sprintf("Backed up state database to %s", bak))
	}

	launcher, err := refreshLib(opts.From)
	if err != nil {
		return nil, err
	}
	actions = append(actions, fmt.Sprintf("Installed launcher to %s", launcher))

	cmdDir, err := config.CmdDir()
	if err != nil {
		return nil, err
	}
	if _, err := shim.Publish(cmdDir, "snafu", launcher); err != nil {
		return nil, fmt.Errorf("publish launcher shim: %w", err)
	}
	actions = append(actions, fmt.Sprintf("Published %s", filepath.Join(cmdDir, "snafu"+shim.Ext)))

	pkgActions, err := installBundledPackages(ctx, opts.Run, opts.Out)
	if err != nil {
		return nil, err
	}
	actions = append(actions, pkgActions...)

	m := &metadata{
		DisplayName:     displayName,
		Publisher:       opts.Publisher,
		UninstallString: launcher + " teardown",
		LauncherPath:    launcher,
		InstalledAt:     time.Now(),
	}
	if opts.AddToPath {
		dirs, err := pathDirs()
		if err != nil {
			return nil, err
		}
		if runtime.GOOS == "windows" {
			old, err := addToUserPathWindows(dirs)
			if err != nil {
				return nil, fmt.Errorf("add to PATH: %w", err)
			}
			m.AddedToPath, m.PathFile, m.OldUserPath = true, "UserEnv", old
		} else {
			rc, err := addToPathUnix(dirs)
			if err != nil {
				return nil, fmt.Errorf("add to PATH: %w", err)
			}
			m.AddedToPath, m.PathFile = true, rc
		}
		actions = append(actions, fmt.Sprintf("Added %s to PATH", strings.Join(dirs, ", ")))
	}
	if err := saveMetadata(m); err != nil {
		return nil, fmt.Errorf("save setup metadata: %w", err)
	}

	if err := writeUninstallKey(version.Version, opts.Publisher, home, m.UninstallString); err != nil {
		return nil, fmt.Errorf("register uninstaller: %w", err)
	}
	if runtime.GOOS == "windows" {
		actions = append(actions, "Registered SNAFU in Add/Remove Programs")
	}
	return actions, nil
}

// planSetup describes what Setup would do without touching anything.
func planSetup(opts Options, home string) ([]string, error) {
	launcher := filepath.Join(home, "lib", launcherName())
	actions := []string{
		fmt.Sprintf("Ensure directory layout under %s", home),
		fmt.Sprintf("Copy launcher to %s", launcher),
		fmt.Sprintf("Publish snafu%s into %s", shim.Ext, filepath.Join(home, "cmd")),
	}
	if opts.AddToPath {
		actions = append(actions,
			fmt.Sprintf("Add %s and %s to user PATH", filepath.Join(home, "cmd"), filepath.Join(home, "scripts")))
	}
	if runtime.GOOS == "windows" {
		actions = append(actions, "Register SNAFU in Add/Remove Programs")
	}
	return actions, nil
}

// refreshLib replaces the lib payload wholesale with the launcher binary and
// returns the installed launcher path. cmd/ and scripts/ are left alone so
// user-published shims survive re-setup.
func refreshLib(from string) (string, error) {
	libDir, err := config.LibDir()
	if err != nil {
		return "", err
	}
	src := from
	if src == "" {
		src, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("determine current executable: %w", err)
		}
	} else if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(libDir, launcherName())
	same := filepath.Clean(src) == filepath.Clean(dst)

	entries, err := os.ReadDir(libDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	for _, entry := range entries {
		// Bundled prerequisite packages under lib/setup are kept for
		// later repair runs.
		if entry.Name() == "setup" {
			continue
		}
		if same && filepath.Join(libDir, entry.Name()) == dst {
			continue
		}
		if err := os.RemoveAll(filepath.Join(libDir, entry.Name())); err != nil {
			return "", err
		}
	}
	if same {
		return dst, nil
	}
	if err := copyExecutable(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// copyExecutable copies src to dst through a temp file in the destination
// directory, then renames. On Windows the rename can fail while the old
// launcher is running, so a plain copy is the fallback.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".snafu_tmp_")
	if err != nil {
		return fmt.Errorf("create temp dest: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpName, 0o755); err != nil {
			return fmt.Errorf("set exec bit: %w", err)
		}
	}
	if err := os.Rename(tmpName, dst); err == nil {
		return nil
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("fallback open dst: %w", err)
	}
	defer func() { _ = out.Close() }()
	f, err := os.Open(tmpName)
	if err != nil {
		return fmt.Errorf("fallback open tmp: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("fallback copy: %w", err)
	}
	return nil
}

// installBundledPackages runs the prerequisite installers shipped under
// lib/setup: Windows update packages (.msu) through wusa and launcher
// packages (.msi) through msiexec. An MSU failure is tolerated because the
// update is commonly already present.
func installBundledPackages(ctx context.Context, r runner.Runner, out io.Writer) ([]string, error) {
	if r == nil {
		return nil, nil
	}
	libDir, err := config.LibDir()
	if err != nil {
		return nil, err
	}
	setupDir := filepath.Join(libDir, "setup")
	entries, err := os.ReadDir(setupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var actions []string
	for _, name := range names {
		p := filepath.Join(setupDir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".msu":
			if err := runner.InstallMSU(ctx, r, p, out); err != nil {
				actions = append(actions, fmt.Sprintf("Skipped %s: %v", name, err))
				continue
			}
			actions = append(actions, fmt.Sprintf("Installed update %s", name))
		case ".msi":
			if err := runner.InstallMSI(ctx, r, p, "", out); err != nil {
				return actions, fmt.Errorf("install %s: %w", name, err)
			}
			actions = append(actions, fmt.Sprintf("Installed package %s", name))
		}
	}
	return actions, nil
}

// Teardown reverses Setup: restores PATH, drops the uninstaller registration
// and removes the entire installation root, managed Pythons included.
func Teardown(verbose bool) ([]string, error) {
	var actions []string
	home, err := config.Home()
	if err != nil {
		return nil, err
	}

	m, merr := loadMetadata()
	if merr != nil {
		actions = append(actions, "No setup metadata found; removing what can be found")
		m = &metadata{}
	}

	if m.AddedToPath {
		dirs, err := pathDirs()
		if err != nil {
			return nil, err
		}
		if runtime.GOOS == "windows" {
			if m.OldUserPath != "" {
				if err := setWindowsPath("User", m.OldUserPath); err != nil {
					actions = append(actions, fmt.Sprintf("Failed to restore user PATH: %v", err))
				} else {
					actions = append(actions, "Restored user PATH to its previous value")
				}
			} else if removed, err := removeFromUserPathWindows(dirs); err != nil {
				actions = append(actions, fmt.Sprintf("Failed to edit user PATH: %v", err))
			} else if removed {
				actions = append(actions, "Removed SNAFU directories from user PATH")
			}
		} else {
			rc := m.PathFile
			if rc == "" {
				rc, _ = rcFile()
			}
			if err := removeFromPathUnix(rc, dirs); err != nil {
				actions = append(actions, fmt.Sprintf("Failed to edit %s: %v", rc, err))
			} else {
				actions = append(actions, fmt.Sprintf("Removed PATH entries from %s", rc))
			}
		}
	}

	if err := deleteUninstallKey(); err != nil {
		actions = append(actions, fmt.Sprintf("Failed to drop uninstaller registration: %v", err))
	} else if runtime.GOOS == "windows" {
		actions = append(actions, "Removed SNAFU from Add/Remove Programs")
	}

	_ = removeMetadata()
	if err := os.RemoveAll(home); err != nil {
		return actions, fmt.Errorf("remove %s: %w", home, err)
	}
	actions = append(actions, fmt.Sprintf("Removed %s", home))
	if verbose && m.LauncherPath != "" {
		actions = append(actions, fmt.Sprintf("Launcher was %s", m.LauncherPath))
	}
	return actions, nil
}

// Status reports the state of the SNAFU installation itself.
type Status struct {
	Home                string
	HomeExists          bool
	LauncherPath        string
	LauncherFound       bool
	ShimPresent         bool
	CmdOnPath           bool
	ScriptsOnPath       bool
	MetadataFound       bool
	UninstallRegistered bool
}

// GetStatus inspects the filesystem and PATH without modifying anything.
func GetStatus() (*Status, error) {
	home, err := config.Home()
	if err != nil {
		return nil, err
	}
	st := &Status{Home: home}
	if _, err := os.Stat(home); err == nil {
		st.HomeExists = true
	}

	libDir, err := config.LibDir()
	if err != nil {
		return nil, err
	}
	st.LauncherPath = filepath.Join(libDir, launcherName())
	if _, err := os.Stat(st.LauncherPath); err == nil {
		st.LauncherFound = true
	}

	cmdDir, err := config.CmdDir()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(cmdDir, "snafu"+shim.Ext)); err == nil {
		st.ShimPresent = true
	}
	scriptsDir, err := config.ScriptsDir()
	if err != nil {
		return nil, err
	}

	pathEnv := os.Getenv("PATH")
	st.CmdOnPath = ContainsPath(pathEnv, cmdDir)
	st.ScriptsOnPath = ContainsPath(pathEnv, scriptsDir)
	if runtime.GOOS == "windows" {
		if userPath := queryWindowsPath("User"); userPath != "" {
			st.CmdOnPath = st.CmdOnPath || ContainsPath(userPath, cmdDir)
			st.ScriptsOnPath = st.ScriptsOnPath || ContainsPath(userPath, scriptsDir)
		}
	}
	if !st.CmdOnPath {
		if lp, err := exec.LookPath(launcherName()); err == nil {
			if strings.EqualFold(filepath.Dir(filepath.Clean(lp)), filepath.Clean(cmdDir)) {
				st.CmdOnPath = true
			}
		}
	}

	if p, err := metadataPath(); err == nil {
		if _, err := os.Stat(p); err == nil {
			st.MetadataFound = true
		}
	}
	st.UninstallRegistered = hasUninstallKey()
	return st, nil
}
