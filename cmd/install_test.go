package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/imbi7py/snafu/internal/db"
	"github.com/imbi7py/snafu/internal/operations"
	"github.com/imbi7py/snafu/internal/python"
	"github.com/imbi7py/snafu/internal/shim"
	"github.com/imbi7py/snafu/internal/store"
)

// seedInstallation lays down a managed interpreter tree and its database
// record, as if the version had been installed.
func seedInstallation(t *testing.T, name string) string {
	t.Helper()
	managed, err := python.ManagedPath(name)
	if err != nil {
		t.Fatalf("ManagedPath: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(managed, "Scripts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(managed, "python.exe"), []byte("python"), 0o755); err != nil {
		t.Fatalf("write python.exe: %v", err)
	}
	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if err := store.NewRepository(conn).AddInstallation(name, managed, []int{3, 6, 0}); err != nil {
		t.Fatalf("AddInstallation: %v", err)
	}
	return managed
}

func dummyInstaller(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "python-3.6.3-amd64.exe")
	if err := os.WriteFile(p, []byte("exe"), 0o644); err != nil {
		t.Fatalf("write installer: %v", err)
	}
	return p
}

func TestInstallAlreadyInstalledFails(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SNAFU_ROOT", root)
	managed := seedInstallation(t, "3.6")

	_, err := runCommand(t, "install", "3.6", "--file", dummyInstaller(t))
	if !errors.Is(err, operations.ErrAlreadyInstalled) {
		t.Fatalf("expected ErrAlreadyInstalled, got %v", err)
	}

	// The interpreter command is still relinked before the error surfaces.
	s, err := shim.Read(filepath.Join(root, "cmd", "python3.6"+shim.Ext))
	if err != nil {
		t.Fatalf("expected python3.6 shim: %v", err)
	}
	if s.Target != filepath.Join(managed, "python.exe") {
		t.Fatalf("shim targets %s", s.Target)
	}
}
