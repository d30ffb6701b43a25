// Package config loads frm's own settings from config.yaml in the base
// directory.
package config

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/paths"
)

// Config holds the user-tunable settings. Every field has a default so a
// missing file is not an error.
type Config struct {
	// ServerRepo is the GitHub repository release installs come from,
	// owner/name form.
	ServerRepo string
	// PackagesRepo is the repository alpha installs come from.
	PackagesRepo string
	// StopTimeout bounds graceful shutdown waits.
	StopTimeout time.Duration
	// CleanOlderThan is the default age filter for `alphas clean`.
	CleanOlderThan time.Duration
}

// fileConfig is the on-disk shape. Durations are strings like "45s" so
// the file stays readable.
type fileConfig struct {
	ServerRepo     string `yaml:"server_repo"`
	PackagesRepo   string `yaml:"packages_repo"`
	StopTimeout    string `yaml:"stop_timeout"`
	CleanOlderThan string `yaml:"clean_older_than"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		ServerRepo:     catalog.DefaultServerRepo,
		PackagesRepo:   catalog.DefaultPackagesRepo,
		StopTimeout:    30 * time.Second,
		CleanOlderThan: 30 * 24 * time.Hour,
	}
}

// Load reads config.yaml from the layout, applying defaults for missing
// fields and a missing file.
func Load(layout *paths.Layout) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(layout.ConfigFile())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read %s", layout.ConfigFile())
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", layout.ConfigFile())
	}
	if fc.ServerRepo != "" {
		cfg.ServerRepo = fc.ServerRepo
	}
	if fc.PackagesRepo != "" {
		cfg.PackagesRepo = fc.PackagesRepo
	}
	if cfg.StopTimeout, err = parseDuration(fc.StopTimeout, cfg.StopTimeout); err != nil {
		return cfg, errors.Wrap(err, "stop_timeout")
	}
	if cfg.CleanOlderThan, err = parseDuration(fc.CleanOlderThan, cfg.CleanOlderThan); err != nil {
		return cfg, errors.Wrap(err, "clean_older_than")
	}
	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, err
	}
	if d <= 0 {
		return fallback, errors.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
