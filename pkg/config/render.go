package config

import (
	"github.com/pelletier/go-toml/v2"

	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
)

// Render returns the effective configuration as TOML, suitable for pasting
// into ~/.config/skillsync/config.toml.
func Render(cfg *Config) (string, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return "", skerrors.Wrap(err, skerrors.ErrInternal, "failed to render configuration")
	}
	return string(out), nil
}
