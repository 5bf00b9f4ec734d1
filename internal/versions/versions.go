// Package versions holds the known Python version definitions and resolves
// user-supplied names against them.
package versions

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/imbi7py/snafu/internal/nameutil"
)

// Definition types. A cpython definition carries a single quiet-installable
// exe asset; a cpython-msi definition carries per-architecture MSI assets.
const (
	TypeCPython    = "cpython"
	TypeCPythonMSI = "cpython-msi"
)

// ErrUnknownVersion is returned when a name matches no definition.
var ErrUnknownVersion = errors.New("unknown version")

// Asset is a downloadable installer artifact.
type Asset struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Definition describes one installable Python version.
type Definition struct {
	Name        string `json:"-"`
	Type        string `json:"type"`
	VersionInfo []int  `json:"version_info"`
	Asset       *Asset `json:"asset,omitempty"`
	X86         *Asset `json:"x86,omitempty"`
	AMD64       *Asset `json:"amd64,omitempty"`
}

// String renders the definition for user-facing messages.
func (d *Definition) String() string {
	return "Python " + d.Name
}

// MicroString renders the full dotted version, e.g. "3.6.3".
func (d *Definition) MicroString() string {
	parts := make([]string, len(d.VersionInfo))
	for i, v := range d.VersionInfo {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ".")
}

// Is32Bit reports whether the definition names a 32-bit build.
func (d *Definition) Is32Bit() bool {
	return strings.HasSuffix(d.Name, "-32")
}

// InstallerAsset selects the asset to download. arch is "amd64" or "win32";
// it is ignored for exe definitions, whose name already pins the bitness.
func (d *Definition) InstallerAsset(arch string) (*Asset, error) {
	switch d.Type {
	case TypeCPython:
		if d.Asset == nil {
			return nil, fmt.Errorf("definition %s has no installer asset", d.Name)
		}
		return d.Asset, nil
	case TypeCPythonMSI:
		var a *Asset
		if arch == "amd64" && !d.Is32Bit() {
			a = d.AMD64
		} else {
			a = d.X86
		}
		if a == nil {
			return nil, fmt.Errorf("definition %s has no %s installer asset", d.Name, arch)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("definition %s has unknown type %q", d.Name, d.Type)
	}
}

// Compare orders version_info slices; missing elements compare as zero.
func Compare(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

//go:embed definitions/*.json
var definitionFiles embed.FS

var (
	loadOnce sync.Once
	loaded   map[string]*Definition
	loadErr  error
)

func load() (map[string]*Definition, error) {
	loadOnce.Do(func() {
		defs := map[string]*Definition{}
		err := fs.WalkDir(definitionFiles, "definitions", func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
				return err
			}
			data, err := definitionFiles.ReadFile(path)
			if err != nil {
				return err
			}
			var def Definition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			name := strings.TrimSuffix(filepath.Base(path), ".json")
			def.Name = name
			defs[name] = &def
			return nil
		})
		loaded, loadErr = defs, err
	})
	return loaded, loadErr
}

// Get resolves a version name to its definition.
func Get(name string) (*Definition, error) {
	name, _ = nameutil.SanitizeName(name)
	if err := nameutil.ValidateName(name); err != nil {
		return nil, err
	}
	if !nameutil.IsVersionName(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, name)
	}
	defs, err := load()
	if err != nil {
		return nil, err
	}
	d, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, name)
	}
	return d, nil
}

// All returns every definition, newest first; ties prefer shorter names
// because they look more default.
func All() ([]*Definition, error) {
	defs, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]*Definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := Compare(out[i].VersionInfo, out[j].VersionInfo); c != 0 {
			return c > 0
		}
		if len(out[i].Name) != len(out[j].Name) {
			return len(out[i].Name) < len(out[j].Name)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LatestName returns the name of the newest definition. It backs the
// "latest" default-version preference accepted by setup --python.
func LatestName() (string, error) {
	all, err := All()
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", errors.New("no version definitions")
	}
	return all[0].Name, nil
}
