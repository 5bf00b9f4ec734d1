// Package operations implements the SNAFU command semantics: installing,
// uninstalling and upgrading Python versions, maintaining the active set,
// and publishing command shims with first-match precedence.
package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/download"
	"github.com/imbi7py/snafu/internal/python"
	"github.com/imbi7py/snafu/internal/runner"
	"github.com/imbi7py/snafu/internal/shim"
	"github.com/imbi7py/snafu/internal/store"
	"github.com/imbi7py/snafu/internal/versions"
)

// Sentinel errors surfaced to the CLI layer.
var (
	ErrAlreadyInstalled = errors.New("already installed")
	ErrNoActiveVersions = errors.New("no active versions")
	ErrCommandNotFound  = errors.New("command not found")
	ErrLinkExists       = errors.New("link target already exists")
)

// Env carries the collaborators every operation needs.
type Env struct {
	Cfg  *config.Config
	Repo *store.Repository
	Run  runner.Runner
	Log  *slog.Logger
	Out  io.Writer
}

// Arch returns the architecture key used to pick installer assets.
func Arch() string {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		return "amd64"
	}
	return "win32"
}

func (e *Env) echo(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format+"\n", args...)
}

// DownloadInstaller fetches the installer asset for a definition into the
// cache, reporting progress on the output stream.
func (e *Env) DownloadInstaller(ctx context.Context, def *versions.Definition) (string, error) {
	asset, err := def.InstallerAsset(Arch())
	if err != nil {
		return "", err
	}
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	url := download.ApplyMirror(asset.URL, e.Cfg.DownloadMirror)
	if asset.SHA256 == "" {
		e.Log.Debug("no pinned checksum for asset", "url", url)
	}
	e.echo("Downloading %s", url)
	var lastPct int64 = -1
	progress := func(received, total int64) {
		if total <= 0 {
			return
		}
		pct := received * 100 / total
		if pct/10 != lastPct/10 {
			lastPct = pct
			e.Log.Debug("download progress", "percent", pct)
		}
	}
	return download.Fetch(ctx, url, cacheDir, asset.SHA256, progress)
}

// Install resolves, downloads and runs the installer for a version, records
// the installation and links its interpreter commands.
func (e *Env) Install(ctx context.Context, name, fromFile string) error {
	def, err := versions.Get(name)
	if err != nil {
		return err
	}
	if python.IsInstalled(def.Name) {
		// Make sure commands exist for it before bailing out.
		if err := e.linkCommands(def.Name); err != nil {
			e.Log.Warn("relink failed", "version", def.Name, "error", err)
		}
		return fmt.Errorf("%s is %w", def, ErrAlreadyInstalled)
	}

	installerPath := fromFile
	if installerPath == "" {
		installerPath, err = e.DownloadInstaller(ctx, def)
		if err != nil {
			return err
		}
	}

	targetDir, err := python.ManagedPath(def.Name)
	if err != nil {
		return err
	}
	e.echo("Running installer %s", installerPath)
	switch def.Type {
	case versions.TypeCPythonMSI:
		err = runner.InstallMSI(ctx, e.Run, installerPath, targetDir, e.Out)
	default:
		err = runner.InstallExe(ctx, e.Run, installerPath, targetDir, e.Out)
	}
	if err != nil {
		return err
	}

	if err := e.Repo.AddInstallation(def.Name, targetDir, def.VersionInfo); err != nil {
		return err
	}
	if err := e.Repo.SetUninstallerPath(def.Name, installerPath); err != nil {
		return err
	}
	if err := e.linkCommands(def.Name); err != nil {
		return err
	}
	e.echo("%s is installed successfully to %s", def, targetDir)
	return nil
}

// Uninstall runs the uninstaller for an installed version and removes its
// recorded state and published commands.
func (e *Env) Uninstall(ctx context.Context, name, fromFile string) error {
	def, err := versions.Get(name)
	if err != nil {
		return err
	}
	inst, err := python.Find(def.Name)
	if err != nil {
		// Clean up stale publications either way.
		if uerr := e.unlinkCommands(def.Name); uerr != nil {
			e.Log.Warn("unlink failed", "version", def.Name, "error", uerr)
		}
		return err
	}
	if err := e.Repo.RemoveFromActive(def.Name); err != nil {
		return err
	}

	uninstallerPath := fromFile
	if uninstallerPath == "" {
		if rec, err := e.Repo.GetInstallation(def.Name); err == nil && rec != nil && rec.UninstallerPath.Valid {
			if _, serr := os.Stat(rec.UninstallerPath.String); serr == nil {
				uninstallerPath = rec.UninstallerPath.String
			}
		}
	}
	if uninstallerPath == "" {
		uninstallerPath, err = e.DownloadInstaller(ctx, def)
		if err != nil {
			return err
		}
	}

	e.echo("Running uninstaller %s", uninstallerPath)
	switch def.Type {
	case versions.TypeCPythonMSI:
		err = runner.UninstallMSI(ctx, e.Run, uninstallerPath, e.Out)
	default:
		err = runner.UninstallExe(ctx, e.Run, uninstallerPath, e.Out)
	}
	if err != nil {
		return err
	}

	// The uninstaller may leave an empty tree behind in the managed dir.
	if managed, merr := python.ManagedPath(def.Name); merr == nil && inst.Path == managed {
		_ = os.RemoveAll(managed)
	}
	if err := e.unlinkCommands(def.Name); err != nil {
		return err
	}
	if err := e.Repo.RemoveInstallation(def.Name); err != nil {
		return err
	}
	e.echo("%s is uninstalled successfully.", def)
	return nil
}

// Upgrade re-runs a newer installer over an installed version when the
// definition is ahead of the installation.
func (e *Env) Upgrade(ctx context.Context, name, fromFile string) error {
	def, err := versions.Get(name)
	if err != nil {
		return err
	}
	inst, err := python.Find(def.Name)
	if err != nil {
		return err
	}

	current, err := e.installedVersionInfo(ctx, def.Name, inst)
	if err != nil {
		return err
	}
	if versions.Compare(current, def.VersionInfo) >= 0 {
		e.echo("Python %s is up to date.", joinVersion(current))
		return nil
	}

	installerPath := fromFile
	if installerPath == "" {
		installerPath, err = e.DownloadInstaller(ctx, def)
		if err != nil {
			return err
		}
	}
	e.echo("Running installer %s", installerPath)
	switch def.Type {
	case versions.TypeCPythonMSI:
		err = runner.InstallMSI(ctx, e.Run, installerPath, inst.Path, e.Out)
	default:
		err = runner.UpgradeExe(ctx, e.Run, installerPath, inst.Path, e.Out)
	}
	if err != nil {
		return err
	}

	if err := e.Repo.UpdateVersionInfo(def.Name, def.VersionInfo); err != nil {
		return err
	}
	if err := e.Repo.SetUninstallerPath(def.Name, installerPath); err != nil {
		return err
	}
	if err := e.linkCommands(def.Name); err != nil {
		return err
	}
	e.echo("%s is upgraded successfully at %s", def, inst.Path)
	return nil
}

// installedVersionInfo prefers the recorded version and falls back to asking
// the interpreter itself.
func (e *Env) installedVersionInfo(ctx context.Context, name string, inst *python.Installation) ([]int, error) {
	if rec, err := e.Repo.GetInstallation(name); err == nil && rec != nil && len(rec.VersionInfo) > 0 {
		return rec.VersionInfo, nil
	}
	return python.MicroVersion(ctx, inst)
}

func joinVersion(vi []int) string {
	parts := make([]string, len(vi))
	for i, v := range vi {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ".")
}

// Activate replaces the active set with names (or re-materializes the stored
// set when names is empty) and rebuilds every published command.
func (e *Env) Activate(ctx context.Context, names []string) error {
	if len(names) == 0 {
		stored, err := e.Repo.ActiveNames()
		if err != nil {
			return err
		}
		names = stored
	}
	if len(names) == 0 {
		return ErrNoActiveVersions
	}
	insts := make([]*python.Installation, 0, len(names))
	for _, n := range names {
		def, err := versions.Get(n)
		if err != nil {
			return err
		}
		inst, err := python.Find(def.Name)
		if err != nil {
			return err
		}
		insts = append(insts, inst)
	}

	// Rebuild from scratch rather than diffing the previous set.
	if err := e.Deactivate(); err != nil {
		return err
	}
	if err := e.publishInterpreters(insts); err != nil {
		return err
	}
	if err := e.publishScripts(insts); err != nil {
		return err
	}
	resolved := make([]string, len(insts))
	for i, inst := range insts {
		resolved[i] = inst.Name
	}
	return e.Repo.SetActiveNames(resolved)
}

// Deactivate removes every published command. The stored active set is left
// alone so a later bare `use` can rebuild it.
func (e *Env) Deactivate() error {
	links, err := e.Repo.ListLinks()
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := e.removePublished(l.Command); err != nil {
			return err
		}
		if err := e.Repo.RemoveLink(l.Command); err != nil {
			return err
		}
	}
	return nil
}

// Where returns the interpreter executable path for an installed version.
func (e *Env) Where(name string) (string, error) {
	def, err := versions.Get(name)
	if err != nil {
		return "", err
	}
	inst, err := python.Find(def.Name)
	if err != nil {
		return "", err
	}
	return inst.Exe(), nil
}

// Entry is one row of `snafu list`.
type Entry struct {
	Name        string
	Installed   bool
	Active      bool
	InstallPath string
	Latest      string
}

// List builds the version listing. With all false only installed versions
// are returned. filter fuzzy-matches version names.
func (e *Env) List(all bool, filter string) ([]Entry, error) {
	defs, err := versions.All()
	if err != nil {
		return nil, err
	}
	activeNames, err := e.Repo.ActiveNames()
	if err != nil {
		return nil, err
	}
	active := map[string]bool{}
	for _, n := range activeNames {
		active[n] = true
	}

	var out []Entry
	for _, def := range defs {
		if !store.FuzzyMatch(def.Name, filter) {
			continue
		}
		entry := Entry{Name: def.Name, Latest: def.MicroString(), Active: active[def.Name]}
		if inst, err := python.Find(def.Name); err == nil {
			entry.Installed = true
			entry.InstallPath = inst.Path
		}
		if !all && !entry.Installed {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Link publishes one command from the active versions, first match wins.
// Returns the name of the version that provided the command.
func (e *Env) Link(command string, force bool) (string, error) {
	activeNames, err := e.Repo.ActiveNames()
	if err != nil {
		return "", err
	}
	if len(activeNames) == 0 {
		return "", ErrNoActiveVersions
	}

	var target, provider string
	for _, n := range activeNames {
		inst, err := python.Find(n)
		if err != nil {
			continue
		}
		p, err := python.FindScript(inst, command)
		if err != nil {
			continue
		}
		target, provider = p, n
		break
	}
	if target == "" {
		return "", fmt.Errorf("%w: %q (looked in: %s)",
			ErrCommandNotFound, command, strings.Join(activeNames, ", "))
	}

	scriptsDir, err := config.ScriptsDir()
	if err != nil {
		return "", err
	}
	dest := filepath.Join(scriptsDir, command+shim.Ext)
	if existing, err := shim.Read(dest); err == nil {
		if existing.Target == target {
			// Identical publication; nothing to do.
			return provider, nil
		}
		if !force {
			if l, lerr := e.Repo.GetLink(command); lerr == nil && l != nil {
				return "", fmt.Errorf("%w: %s (currently from %s)", ErrLinkExists, dest, l.VersionName)
			}
			return "", fmt.Errorf("%w: %s", ErrLinkExists, dest)
		}
	}
	if _, err := shim.Publish(scriptsDir, command, target); err != nil {
		return "", err
	}
	if err := e.Repo.RecordLink(command, provider, target); err != nil {
		return "", err
	}
	return provider, nil
}

// linkCommands publishes the per-version interpreter command (e.g.
// python3.6) after an install or upgrade.
func (e *Env) linkCommands(name string) error {
	inst, err := python.Find(name)
	if err != nil {
		return err
	}
	cmdDir, err := config.CmdDir()
	if err != nil {
		return err
	}
	command := "python" + name
	if _, err := shim.Publish(cmdDir, command, inst.Exe()); err != nil {
		return err
	}
	return e.Repo.RecordLink(command, name, inst.Exe())
}

// unlinkCommands removes everything published from one version.
func (e *Env) unlinkCommands(name string) error {
	removed, err := e.Repo.RemoveLinksForVersion(name)
	if err != nil {
		return err
	}
	for _, command := range removed {
		if err := e.removePublished(command); err != nil {
			return err
		}
	}
	return nil
}

// publishInterpreters writes python / pythonX / python<name> shims for the
// active versions. Earlier versions take precedence.
func (e *Env) publishInterpreters(insts []*python.Installation) error {
	cmdDir, err := config.CmdDir()
	if err != nil {
		return err
	}
	published := map[string]bool{}
	for _, inst := range insts {
		names := []string{"python", "python" + majorOf(inst.Name), "python" + inst.Name}
		for _, n := range names {
			if published[n] {
				continue
			}
			if _, err := shim.Publish(cmdDir, n, inst.Exe()); err != nil {
				return err
			}
			if err := e.Repo.RecordLink(n, inst.Name, inst.Exe()); err != nil {
				return err
			}
			published[n] = true
		}
	}
	return nil
}

// publishScripts publishes every script of every active version, first
// provider wins.
func (e *Env) publishScripts(insts []*python.Installation) error {
	scriptsDir, err := config.ScriptsDir()
	if err != nil {
		return err
	}
	published := map[string]bool{}
	for _, inst := range insts {
		entries, err := os.ReadDir(inst.ScriptsDir())
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			command, ok := scriptCommandName(entry.Name())
			if !ok || published[command] {
				continue
			}
			target := filepath.Join(inst.ScriptsDir(), entry.Name())
			if _, err := shim.Publish(scriptsDir, command, target); err != nil {
				return err
			}
			if err := e.Repo.RecordLink(command, inst.Name, target); err != nil {
				return err
			}
			published[command] = true
		}
	}
	return nil
}

// scriptCommandName derives the published command name from a script file
// name, skipping non-runnable files.
func scriptCommandName(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".exe", ".py", ".bat", ".cmd":
	default:
		return "", false
	}
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if name == "" || strings.HasPrefix(name, "python") {
		return "", false
	}
	return name, true
}

func majorOf(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// removePublished deletes the shim file for a command wherever it was
// published. The snafu launcher shim is never touched here because setup
// does not record it as a link.
func (e *Env) removePublished(command string) error {
	for _, dirFn := range []func() (string, error){config.CmdDir, config.ScriptsDir} {
		dir, err := dirFn()
		if err != nil {
			return err
		}
		p := filepath.Join(dir, command+shim.Ext)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
