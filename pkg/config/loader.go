package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load resolves the process configuration in three layers, later layers
// winning: embedded defaults, the user config file (config.toml or
// config.yaml under the XDG config dir), then SKILLSYNC_* environment
// variables.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(xdg.ConfigHome, "skillsync"))
}

// LoadFrom is Load with an explicit config directory, for tests.
func LoadFrom(configDir string) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, skerrors.Wrap(err, skerrors.ErrConfigParse, "failed to load embedded defaults")
	}

	// 2. User config file, TOML preferred over YAML
	for _, candidate := range []struct {
		name   string
		parser koanf.Parser
	}{
		{"config.toml", toml.Parser()},
		{"config.yaml", yaml.Parser()},
	} {
		path := filepath.Join(configDir, candidate.name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), candidate.parser); err != nil {
			return nil, skerrors.Wrapf(err, skerrors.ErrConfigLoad, "failed to load config from %s", path)
		}
		break
	}

	// 3. Environment variables. Keys are snake_case, so names map by
	// prefix strip + lowercase (SKILLSYNC_NO_BACKUP -> no_backup).
	if err := k.Load(env.Provider("SKILLSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SKILLSYNC_"))
	}), nil); err != nil {
		return nil, skerrors.Wrap(err, skerrors.ErrConfigLoad, "failed to load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, skerrors.Wrap(err, skerrors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := resolveHome(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveHome(cfg *Config) error {
	if cfg.Home != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return skerrors.Wrap(err, skerrors.ErrConfigLoad, "cannot determine home directory")
	}
	cfg.Home = filepath.Join(home, ".skillsync")
	return nil
}
