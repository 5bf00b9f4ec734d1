// Package runner invokes external installer processes (installer
// executables, msiexec, wusa) quietly, with their output streamed to the
// caller and exit codes checked.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// msiexec exit code for "success, reboot required".
const msiRebootRequired = 3010

// Runner is an interface for launching external processes. It allows tests
// to inject fake implementations without running real installers.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// Exec is the real Runner implementation.
type Exec struct {
	DryRun bool
}

// New returns a Runner backed by the real Exec implementation.
func New(dry bool) Runner {
	return &Exec{DryRun: dry}
}

// Run launches the named program and waits for it.
func (e *Exec) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	if e.DryRun {
		fmt.Fprintf(stdout, "dry-run: %s %v\n", name, args)
		return nil
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// rebootTolerant filters out the msiexec reboot-required exit code, which
// counts as success.
func rebootTolerant(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == msiRebootRequired {
		return nil
	}
	return err
}

// InstallExe runs a CPython web/exe installer quietly into targetDir.
func InstallExe(ctx context.Context, r Runner, installer, targetDir string, out io.Writer) error {
	args := []string{"/quiet", "InstallAllUsers=0", "TargetDir=" + targetDir}
	if err := r.Run(ctx, installer, args, out, out); err != nil {
		return fmt.Errorf("run installer: %w", err)
	}
	return nil
}

// UninstallExe runs a CPython exe installer in uninstall mode.
func UninstallExe(ctx context.Context, r Runner, installer string, out io.Writer) error {
	if err := r.Run(ctx, installer, []string{"/uninstall", "/quiet"}, out, out); err != nil {
		return fmt.Errorf("run uninstaller: %w", err)
	}
	return nil
}

// UpgradeExe re-runs a newer exe installer over an existing installation.
func UpgradeExe(ctx context.Context, r Runner, installer, targetDir string, out io.Writer) error {
	return InstallExe(ctx, r, installer, targetDir, out)
}

// InstallMSI installs an MSI package quietly via msiexec. An empty targetDir
// leaves the package's default install location alone.
func InstallMSI(ctx context.Context, r Runner, msi, targetDir string, out io.Writer) error {
	args := []string{"/i", msi}
	if targetDir != "" {
		args = append(args, "TARGETDIR="+targetDir)
	}
	args = append(args, "/quiet", "/norestart")
	if err := rebootTolerant(r.Run(ctx, "msiexec", args, out, out)); err != nil {
		return fmt.Errorf("msiexec install: %w", err)
	}
	return nil
}

// UninstallMSI removes an MSI package quietly via msiexec.
func UninstallMSI(ctx context.Context, r Runner, msi string, out io.Writer) error {
	args := []string{"/x", msi, "/quiet", "/norestart"}
	if err := rebootTolerant(r.Run(ctx, "msiexec", args, out, out)); err != nil {
		return fmt.Errorf("msiexec uninstall: %w", err)
	}
	return nil
}

// InstallMSU installs a standalone Windows update package via wusa. A
// failure here is reported but commonly tolerated by callers, since the
// update may already be present.
func InstallMSU(ctx context.Context, r Runner, msu string, out io.Writer) error {
	args := []string{msu, "/quiet", "/norestart"}
	if err := rebootTolerant(r.Run(ctx, "wusa", args, out, out)); err != nil {
		return fmt.Errorf("wusa: %w", err)
	}
	return nil
}
