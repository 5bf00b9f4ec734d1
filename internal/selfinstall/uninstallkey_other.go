//go:build !windows

package selfinstall

// Off Windows the uninstall registration lives in the setup metadata file;
// there is no registry key to maintain.

func writeUninstallKey(displayVersion, publisher, installLocation, uninstallString string) error {
	return nil
}

func deleteUninstallKey() error {
	return nil
}

func hasUninstallKey() bool {
	m, err := loadMetadata()
	return err == nil && m.UninstallString != ""
}
