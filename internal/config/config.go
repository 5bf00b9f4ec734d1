// Package config provides paths and configuration for the SNAFU Python
// manager. Configuration is layered: built-in defaults, then an optional
// snafu.yaml in the installation root, then SNAFU_* environment variables,
// then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultPublisher = "uranusjr"
	DefaultMirror    = "https://www.python.org/ftp/python"
)

// Config holds all runtime configuration options.
type Config struct {
	Root           string `koanf:"root"`
	Publisher      string `koanf:"publisher"`
	DefaultPython  string `koanf:"default_python"`
	DownloadMirror string `koanf:"download_mirror"`
	Verbose        bool   `koanf:"verbose"`
}

// Load reads configuration with precedence flags > env > file > defaults.
// cfgFile, when empty, defaults to snafu.yaml in the installation root.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	root, err := Home()
	if err != nil {
		return nil, err
	}

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"root":            root,
		"publisher":       DefaultPublisher,
		"download_mirror": DefaultMirror,
		"verbose":         false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile == "" {
		candidate := filepath.Join(root, "snafu.yaml")
		if _, err := os.Stat(candidate); err == nil {
			cfgFile = candidate
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	// SNAFU_DOWNLOAD_MIRROR -> download_mirror
	if err := k.Load(env.Provider("SNAFU_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SNAFU_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// --python is the setup-time default version preference.
			if key == "python" {
				return "default_python", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DownloadMirror == "" {
		cfg.DownloadMirror = DefaultMirror
	}
	return &cfg, nil
}
