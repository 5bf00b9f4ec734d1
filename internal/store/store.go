package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imbi7py/snafu/internal/nameutil"
)

// Repository provides CRUD operations for installations, the active set,
// and published links.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository using db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddInstallation records a newly installed version. The existence check
// happens inside the DB engine and avoids TOCTOU races across processes.
func (r *Repository) AddInstallation(name, installPath string, versionInfo []int) error {
	name = strings.TrimSpace(name)
	if err := nameutil.ValidateName(name); err != nil {
		return err
	}
	viJSON, err := json.Marshal(versionInfo)
	if err != nil {
		return fmt.Errorf("marshal version info: %w", err)
	}
	res, err := r.db.Exec(`INSERT INTO installations (name, install_path, version_info, installed_at)
			SELECT ?, ?, ?, datetime('now')
			WHERE NOT EXISTS(SELECT 1 FROM installations WHERE name = ?)`,
		name, installPath, string(viJSON), name)
	if err != nil {
		return fmt.Errorf("insert installation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s is already installed", name)
	}
	return nil
}

// GetInstallation retrieves an installation by version name. Returns nil
// without error when the version is not installed.
func (r *Repository) GetInstallation(name string) (*Installation, error) {
	row := r.db.QueryRow("SELECT name, install_path, version_info, installed_at, uninstaller_path FROM installations WHERE name = ?", name)
	var inst Installation
	var viJSON string
	if err := row.Scan(&inst.Name, &inst.InstallPath, &viJSON, &inst.InstalledAt, &inst.UninstallerPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(viJSON), &inst.VersionInfo); err != nil {
		return nil, fmt.Errorf("unmarshal version info: %w", err)
	}
	return &inst, nil
}

// ListInstallations returns all recorded installations ordered by name.
func (r *Repository) ListInstallations() ([]Installation, error) {
	rows, err := r.db.Query("SELECT name, install_path, version_info, installed_at, uninstaller_path FROM installations ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Installation
	for rows.Next() {
		var inst Installation
		var viJSON string
		if err := rows.Scan(&inst.Name, &inst.InstallPath, &viJSON, &inst.InstalledAt, &inst.UninstallerPath); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(viJSON), &inst.VersionInfo); err != nil {
			return nil, fmt.Errorf("unmarshal version info: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// UpdateVersionInfo rewrites the recorded interpreter version after an
// upgrade.
func (r *Repository) UpdateVersionInfo(name string, versionInfo []int) error {
	viJSON, err := json.Marshal(versionInfo)
	if err != nil {
		return fmt.Errorf("marshal version info: %w", err)
	}
	_, err = r.db.Exec("UPDATE installations SET version_info = ? WHERE name = ?", string(viJSON), name)
	return err
}

// SetUninstallerPath remembers where the cached uninstaller for a version lives.
func (r *Repository) SetUninstallerPath(name, path string) error {
	_, err := r.db.Exec("UPDATE installations SET uninstaller_path = ? WHERE name = ?", path, name)
	return err
}

// RemoveInstallation deletes an installation record along with its active-set
// membership and published links, atomically.
func (r *Repository) RemoveInstallation(name string) error {
	trx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = trx.Rollback() }()

	if _, err := trx.Exec("DELETE FROM active_versions WHERE name = ?", name); err != nil {
		return err
	}
	if _, err := trx.Exec("DELETE FROM links WHERE version_name = ?", name); err != nil {
		return err
	}
	if _, err := trx.Exec("DELETE FROM installations WHERE name = ?", name); err != nil {
		return err
	}
	return trx.Commit()
}

// ActiveNames returns the active version names in precedence order.
func (r *Repository) ActiveNames() ([]string, error) {
	rows, err := r.db.Query("SELECT name FROM active_versions ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// SetActiveNames replaces the active set with names, in order. Every name
// must refer to a recorded installation.
func (r *Repository) SetActiveNames(names []string) error {
	trx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = trx.Rollback() }()

	if _, err := trx.Exec("DELETE FROM active_versions"); err != nil {
		return err
	}
	for i, name := range names {
		var exists int
		row := trx.QueryRow("SELECT COUNT(1) FROM installations WHERE name = ?", name)
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%s is not installed", name)
		}
		if _, err := trx.Exec("INSERT INTO active_versions (position, name) VALUES (?, ?)", i+1, name); err != nil {
			return fmt.Errorf("insert active version: %w", err)
		}
	}
	return trx.Commit()
}

// RemoveFromActive drops a single version from the active set, keeping the
// relative order of the remaining entries.
func (r *Repository) RemoveFromActive(name string) error {
	names, err := r.ActiveNames()
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	return r.SetActiveNames(kept)
}

// RecordLink upserts the provenance of a published command.
func (r *Repository) RecordLink(command, versionName, targetPath string) error {
	_, err := r.db.Exec(`INSERT INTO links (command, version_name, target_path, published_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(command) DO UPDATE SET
				version_name = excluded.version_name,
				target_path = excluded.target_path,
				published_at = excluded.published_at`,
		command, versionName, targetPath)
	if err != nil {
		return fmt.Errorf("record link: %w", err)
	}
	return nil
}

// GetLink returns the recorded link for a command, or nil when absent.
func (r *Repository) GetLink(command string) (*Link, error) {
	row := r.db.QueryRow("SELECT command, version_name, target_path, published_at FROM links WHERE command = ?", command)
	var l Link
	if err := row.Scan(&l.Command, &l.VersionName, &l.TargetPath, &l.PublishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ListLinks returns all published links ordered by command name.
func (r *Repository) ListLinks() ([]Link, error) {
	rows, err := r.db.Query("SELECT command, version_name, target_path, published_at FROM links ORDER BY command ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Command, &l.VersionName, &l.TargetPath, &l.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RemoveLink deletes the provenance record for a command.
func (r *Repository) RemoveLink(command string) error {
	_, err := r.db.Exec("DELETE FROM links WHERE command = ?", command)
	return err
}

// RemoveLinksForVersion deletes every link published from the named version
// and returns the affected command names.
func (r *Repository) RemoveLinksForVersion(versionName string) ([]string, error) {
	rows, err := r.db.Query("SELECT command FROM links WHERE version_name = ?", versionName)
	if err != nil {
		return nil, err
	}
	var commands []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			_ = rows.Close()
			return nil, err
		}
		commands = append(commands, c)
	}
	_ = rows.Close()
	if _, err := r.db.Exec("DELETE FROM links WHERE version_name = ?", versionName); err != nil {
		return nil, err
	}
	return commands, nil
}
