package operations

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imbi7py/snafu/internal/config"
	"github.com/imbi7py/snafu/internal/db"
	"github.com/imbi7py/snafu/internal/python"
	"github.com/imbi7py/snafu/internal/shim"
	"github.com/imbi7py/snafu/internal/store"
)

// fakeInstaller pretends to be the external installer processes: an install
// invocation materializes python.exe under the target directory.
type fakeInstaller struct {
	calls []string
}

func (f *fakeInstaller) Run(_ context.Context, name string, args []string, stdout, stderr io.Writer) error {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	for _, a := range args {
		for _, prefix := range []string{"TargetDir=", "TARGETDIR="} {
			if strings.HasPrefix(a, prefix) {
				dir := strings.TrimPrefix(a, prefix)
				if err := os.MkdirAll(filepath.Join(dir, "Scripts"), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(dir, "python.exe"), []byte("py"), 0o755); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func setupEnv(t *testing.T) (*Env, *fakeInstaller) {
	t.Helper()
	t.Setenv("SNAFU_ROOT", t.TempDir())
	if _, err := config.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	f := &fakeInstaller{}
	env := &Env{
		Cfg:  &config.Config{DownloadMirror: config.DefaultMirror},
		Repo: store.NewRepository(conn),
		Run:  f,
		Log:  slog.New(slog.DiscardHandler),
		Out:  &bytes.Buffer{},
	}
	return env, f
}

func dummyInstaller(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("installer"), 0o755); err != nil {
		t.Fatalf("write installer: %v", err)
	}
	return p
}

func installVersion(t *testing.T, env *Env, name string) {
	t.Helper()
	if err := env.Install(context.Background(), name, dummyInstaller(t, "python-"+name+".exe")); err != nil {
		t.Fatalf("Install(%s): %v", name, err)
	}
}

func addScript(t *testing.T, name, script string) {
	t.Helper()
	inst, err := python.Find(name)
	if err != nil {
		t.Fatalf("Find(%s): %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(inst.ScriptsDir(), script), []byte("s"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestInstallRecordsAndLinks(t *testing.T) {
	env, f := setupEnv(t)
	installVersion(t, env, "3.6")

	if len(f.calls) != 1 || !strings.Contains(f.calls[0], "/quiet") {
		t.Fatalf("unexpected installer calls: %v", f.calls)
	}
	inst, err := env.Repo.GetInstallation("3.6")
	if err != nil || inst == nil {
		t.Fatalf("expected installation record, err=%v", err)
	}

	cmdDir, _ := config.CmdDir()
	s, err := shim.Read(filepath.Join(cmdDir, "python3.6.shim"))
	if err != nil {
		t.Fatalf("expected python3.6 shim: %v", err)
	}
	if filepath.Base(s.Target) != "python.exe" {
		t.Fatalf("unexpected shim target: %s", s.Target)
	}
}

func TestInstallTwiceFails(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	err := env.Install(context.Background(), "3.6", dummyInstaller(t, "again.exe"))
	if !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("expected ErrAlreadyInstalled, got %v", err)
	}
}

func TestInstallUnknownVersion(t *testing.T) {
	env, _ := setupEnv(t)
	if err := env.Install(context.Background(), "9.9", ""); err == nil {
		t.Fatalf("expected unknown version error")
	}
}

func TestUninstallRemovesEverything(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	if err := env.Activate(context.Background(), []string{"3.6"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := env.Uninstall(context.Background(), "3.6", dummyInstaller(t, "un.exe")); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if python.IsInstalled("3.6") {
		t.Fatalf("managed dir should be gone")
	}
	rec, err := env.Repo.GetInstallation("3.6")
	if err != nil {
		t.Fatalf("GetInstallation: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected record removed")
	}
	cmdDir, _ := config.CmdDir()
	if _, err := os.Stat(filepath.Join(cmdDir, "python3.6.shim")); !os.IsNotExist(err) {
		t.Fatalf("expected shim removed")
	}
}

func TestUpgradeUpToDate(t *testing.T) {
	env, f := setupEnv(t)
	installVersion(t, env, "3.6")
	callsBefore := len(f.calls)

	if err := env.Upgrade(context.Background(), "3.6", dummyInstaller(t, "up.exe")); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if len(f.calls) != callsBefore {
		t.Fatalf("up-to-date upgrade must not run the installer")
	}
	if !strings.Contains(env.Out.(*bytes.Buffer).String(), "up to date") {
		t.Fatalf("expected up-to-date message")
	}
}

func TestUpgradeRunsInstallerWhenBehind(t *testing.T) {
	env, f := setupEnv(t)
	installVersion(t, env, "3.6")
	if err := env.Repo.UpdateVersionInfo("3.6", []int{3, 6, 0}); err != nil {
		t.Fatalf("UpdateVersionInfo: %v", err)
	}
	callsBefore := len(f.calls)

	if err := env.Upgrade(context.Background(), "3.6", dummyInstaller(t, "up.exe")); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if len(f.calls) != callsBefore+1 {
		t.Fatalf("expected one installer run, calls: %v", f.calls)
	}
	rec, err := env.Repo.GetInstallation("3.6")
	if err != nil || rec == nil {
		t.Fatalf("GetInstallation: %v", err)
	}
	if rec.VersionInfo[2] != 3 {
		t.Fatalf("expected recorded micro bump, got %v", rec.VersionInfo)
	}
}

func TestActivatePrecedence(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	installVersion(t, env, "3.5")
	addScript(t, "3.6", "pip.exe")
	addScript(t, "3.5", "pip.exe")
	addScript(t, "3.5", "virtualenv.exe")

	if err := env.Activate(context.Background(), []string{"3.6", "3.5"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	cmdDir, _ := config.CmdDir()
	s, err := shim.Read(filepath.Join(cmdDir, "python.shim"))
	if err != nil {
		t.Fatalf("python shim: %v", err)
	}
	if !strings.Contains(s.Target, string(filepath.Separator)+"3.6"+string(filepath.Separator)) {
		t.Fatalf("python must dispatch to 3.6, got %s", s.Target)
	}

	scriptsDir, _ := config.ScriptsDir()
	pip, err := shim.Read(filepath.Join(scriptsDir, "pip.shim"))
	if err != nil {
		t.Fatalf("pip shim: %v", err)
	}
	if !strings.Contains(pip.Target, string(filepath.Separator)+"3.6"+string(filepath.Separator)) {
		t.Fatalf("pip must come from 3.6, got %s", pip.Target)
	}
	virtualenv, err := shim.Read(filepath.Join(scriptsDir, "virtualenv.shim"))
	if err != nil {
		t.Fatalf("virtualenv shim: %v", err)
	}
	if !strings.Contains(virtualenv.Target, string(filepath.Separator)+"3.5"+string(filepath.Separator)) {
		t.Fatalf("virtualenv must come from 3.5, got %s", virtualenv.Target)
	}

	names, err := env.Repo.ActiveNames()
	if err != nil {
		t.Fatalf("ActiveNames: %v", err)
	}
	if len(names) != 2 || names[0] != "3.6" {
		t.Fatalf("unexpected active set: %v", names)
	}
}

func TestActivateEmpty(t *testing.T) {
	env, _ := setupEnv(t)
	if err := env.Activate(context.Background(), nil); !errors.Is(err, ErrNoActiveVersions) {
		t.Fatalf("expected ErrNoActiveVersions, got %v", err)
	}
}

func TestDeactivateKeepsStoredSetAndSnafuShim(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	if err := env.Activate(context.Background(), []string{"3.6"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	cmdDir, _ := config.CmdDir()
	if err := shim.Write(filepath.Join(cmdDir, "snafu.shim"), "python.exe", "-m", "snafu"); err != nil {
		t.Fatalf("write snafu.shim: %v", err)
	}

	if err := env.Deactivate(); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cmdDir, "python.shim")); !os.IsNotExist(err) {
		t.Fatalf("expected python shim removed")
	}
	if _, err := os.Stat(filepath.Join(cmdDir, "snafu.shim")); err != nil {
		t.Fatalf("snafu.shim must survive deactivate: %v", err)
	}

	names, err := env.Repo.ActiveNames()
	if err != nil {
		t.Fatalf("ActiveNames: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("stored active set must survive deactivate: %v", names)
	}

	// A bare activate rebuilds from the stored set.
	if err := env.Activate(context.Background(), nil); err != nil {
		t.Fatalf("Activate (stored): %v", err)
	}
	if _, err := os.Stat(filepath.Join(cmdDir, "python.shim")); err != nil {
		t.Fatalf("expected python shim rebuilt: %v", err)
	}
}

func TestWhere(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	p, err := env.Where("3.6")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	if filepath.Base(p) != "python.exe" {
		t.Fatalf("unexpected path: %s", p)
	}
	if _, err := env.Where("3.5"); !errors.Is(err, python.ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}

func TestListMarkers(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	installVersion(t, env, "3.5")
	if err := env.Activate(context.Background(), []string{"3.6"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	installed, err := env.List(false, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 2 {
		t.Fatalf("expected 2 installed entries, got %d", len(installed))
	}
	for _, e := range installed {
		if e.Name == "3.6" && !e.Active {
			t.Fatalf("3.6 should be active")
		}
		if e.Name == "3.5" && e.Active {
			t.Fatalf("3.5 should not be active")
		}
	}

	all, err := env.List(true, "")
	if err != nil {
		t.Fatalf("List --all: %v", err)
	}
	if len(all) <= len(installed) {
		t.Fatalf("expected more entries with --all")
	}

	filtered, err := env.List(true, "2.7")
	if err != nil {
		t.Fatalf("List filter: %v", err)
	}
	for _, e := range filtered {
		if !strings.Contains(e.Name, "2.7") {
			t.Fatalf("filter leaked %s", e.Name)
		}
	}
}

func TestLinkFirstMatchAndForce(t *testing.T) {
	env, _ := setupEnv(t)
	installVersion(t, env, "3.6")
	installVersion(t, env, "3.5")
	if err := env.Activate(context.Background(), []string{"3.6", "3.5"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	addScript(t, "3.5", "flake8.exe")

	provider, err := env.Link("flake8", false)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if provider != "3.5" {
		t.Fatalf("expected provider 3.5, got %s", provider)
	}

	// Re-linking the identical target succeeds silently.
	if _, err := env.Link("flake8", false); err != nil {
		t.Fatalf("Link (identical): %v", err)
	}

	// A conflicting target needs --force.
	addScript(t, "3.6", "flake8.exe")
	if _, err := env.Link("flake8", false); !errors.Is(err, ErrLinkExists) {
		t.Fatalf("expected ErrLinkExists, got %v", err)
	} else if !strings.Contains(err.Error(), "3.5") {
		t.Fatalf("conflict error should name the current provider: %v", err)
	}
	provider, err = env.Link("flake8", true)
	if err != nil {
		t.Fatalf("Link --force: %v", err)
	}
	if provider != "3.6" {
		t.Fatalf("expected provider 3.6 after force, got %s", provider)
	}

	if _, err := env.Link("nosuch", false); !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
}
