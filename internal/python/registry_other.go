//go:build !windows

package python

// lookupRegistry has no registry to consult off Windows; discovery relies on
// the managed versions directory alone.
func lookupRegistry(string) (string, error) {
	return "", ErrNotInstalled
}
