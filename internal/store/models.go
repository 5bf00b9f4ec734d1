// Package store persists SNAFU state: recorded installations, the ordered
// active-version list, and the provenance of published commands.
package store

import "database/sql"

// Installation is a Python version SNAFU has installed.
type Installation struct {
	Name            string
	InstallPath     string
	VersionInfo     []int
	InstalledAt     string
	UninstallerPath sql.NullString
}

// Link records a published command shim or script and where it points.
type Link struct {
	Command     string
	VersionName string
	TargetPath  string
	PublishedAt string
}
