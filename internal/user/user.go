// Package user persists per-user SNAFU preferences.
package user

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/imbi7py/snafu/internal/config"
)

// Profile holds persisted preferences.
type Profile struct {
	DefaultPython string `json:"default_python,omitempty"`
}

func profilePath() (string, error) {
	d, err := config.EnsureHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "preferences.json"), nil
}

// SetProfile saves the preferences to disk.
func SetProfile(p Profile) error {
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	f, err := os.Create(pfile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// GetProfile reads the preferences. Returns (Profile, true, nil) if found.
func GetProfile() (Profile, bool, error) {
	pfile, err := profilePath()
	if err != nil {
		return Profile{}, false, err
	}
	b, err := os.ReadFile(pfile)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

// ClearProfile removes the persisted preferences.
func ClearProfile() error {
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(pfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
