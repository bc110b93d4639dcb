// Package config loads the sidecar's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/vimy-nav/rules"
)

const (
	DefaultSocket   = "/tmp/vimy-nav.sock"
	DefaultLogLevel = "info"
)

type Config struct {
	Socket   string `yaml:"socket"`
	HTTP     string `yaml:"http"` // debug listen address; empty disables it
	LogLevel string `yaml:"log_level"`
	Rules    Rules  `yaml:"rules"`
}

// Rules holds expr conditions over a tile. Empty means the built-in default.
type Rules struct {
	Walk  string `yaml:"walk"`
	Place string `yaml:"place"`
}

func Default() Config {
	return Config{
		Socket:   DefaultSocket,
		LogLevel: DefaultLogLevel,
		Rules: Rules{
			Walk:  rules.DefaultWalkSrc,
			Place: rules.DefaultPlaceSrc,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result, including
// compiling both rule conditions.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Socket == "" {
		cfg.Socket = DefaultSocket
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Rules.Walk == "" {
		cfg.Rules.Walk = rules.DefaultWalkSrc
	}
	if cfg.Rules.Place == "" {
		cfg.Rules.Place = rules.DefaultPlaceSrc
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.RuleSet(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("parse log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// RuleSet compiles the configured conditions.
func (c Config) RuleSet() (*rules.RuleSet, error) {
	return rules.NewRuleSet(c.Rules.Walk, c.Rules.Place)
}
