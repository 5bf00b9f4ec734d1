//go:build windows

package selfinstall

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyPath = `Software\Microsoft\Windows\CurrentVersion\Uninstall\SNAFU`

// writeUninstallKey registers SNAFU in the Add/Remove Programs list so
// Windows offers the teardown command as the uninstaller. HKLM is tried
// first; without elevation the per-user hive is used instead.
func writeUninstallKey(displayVersion, publisher, installLocation, uninstallString string) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, uninstallKeyPath, registry.SET_VALUE)
	if err != nil {
		k, _, err = registry.CreateKey(registry.CURRENT_USER, uninstallKeyPath, registry.SET_VALUE)
		if err != nil {
			return fmt.Errorf("create uninstall key: %w", err)
		}
	}
	defer func() { _ = k.Close() }()

	values := map[string]string{
		"DisplayName":     displayName,
		"DisplayVersion":  displayVersion,
		"Publisher":       publisher,
		"InstallLocation": installLocation,
		"UninstallString": uninstallString,
	}
	for name, v := range values {
		if err := k.SetStringValue(name, v); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	if err := k.SetDWordValue("NoModify", 1); err != nil {
		return err
	}
	return k.SetDWordValue("NoRepair", 1)
}

// hasUninstallKey reports whether the registration exists in either hive.
func hasUninstallKey() bool {
	for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
		k, err := registry.OpenKey(root, uninstallKeyPath, registry.QUERY_VALUE)
		if err == nil {
			_ = k.Close()
			return true
		}
	}
	return false
}

// deleteUninstallKey removes the Add/Remove Programs registration from both
// hives. Missing keys are not errors.
func deleteUninstallKey() error {
	var firstErr error
	for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
		if err := registry.DeleteKey(root, uninstallKeyPath); err != nil && err != registry.ErrNotExist {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
