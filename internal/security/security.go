// Package security guards filesystem writes driven by user-supplied names.
package security

import (
	"errors"
	"regexp"
	"strings"
)

// Published shims and scripts are written into shared directories using a
// user-chosen command name. A name that escapes the directory or collides
// with a Windows device name must never reach the filesystem.
var deniedPatterns = []*regexp.Regexp{
	// path traversal
	regexp.MustCompile(`\.\.`),
	// absolute Windows paths (drive letter or UNC)
	regexp.MustCompile(`^[A-Za-z]:`),
	regexp.MustCompile(`^\\\\`),
	// reserved Windows device names, with or without an extension
	regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`),
}

// CheckLinkName returns nil if name may be used as a published command name,
// or an error describing why it's blocked. Checking is conservative and not
// exhaustive.
func CheckLinkName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return errors.New("empty command name")
	}
	if strings.ContainsAny(n, `/\`) {
		return errors.New("command name must not contain path separators")
	}
	for _, re := range deniedPatterns {
		if re.MatchString(n) {
			return errors.New("command name is not allowed")
		}
	}
	return nil
}
