//go:build windows

package selfinstall

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkSupportedOS refuses to set up on Windows versions older than Vista;
// the bundled prerequisite packages and CPython installers need NT 6.0.
func checkSupportedOS() error {
	v := windows.RtlGetVersion()
	if v.MajorVersion < 6 {
		return fmt.Errorf("Windows %d.%d is not supported; Windows Vista or newer is required",
			v.MajorVersion, v.MinorVersion)
	}
	return nil
}
