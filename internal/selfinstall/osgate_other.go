//go:build !windows

package selfinstall

func checkSupportedOS() error { return nil }
