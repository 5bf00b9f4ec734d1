//go:build windows

package python

import (
	"golang.org/x/sys/windows/registry"
)

// lookupRegistry resolves a PythonCore tag to its InstallPath. The per-user
// hive takes precedence over the machine hive.
func lookupRegistry(tag string) (string, error) {
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		k, err := registry.OpenKey(root, `Software\Python\PythonCore\`+tag+`\InstallPath`, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		s, _, err := k.GetStringValue("")
		k.Close()
		if err == nil && s != "" {
			return s, nil
		}
	}
	return "", ErrNotInstalled
}
