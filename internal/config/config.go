// Package config loads gpures settings from a YAML file.
//
// Values are layered: Default, then the file, then CLI flags (applied by the
// caller). Unknown keys in the file are rejected.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the engine, store and HTTP server.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Listen is the HTTP listen address for serve.
	Listen string `yaml:"listen"`

	// Catalog is the path of the resource catalog (.cue, .yaml or .yml).
	Catalog string `yaml:"catalog"`

	// Policy names the conflict policy: elder or priority.
	Policy string `yaml:"policy"`

	// MaxAttempts bounds re-runs of a transaction that saw a stale conflict set.
	MaxAttempts int `yaml:"max_attempts"`

	// PastTolerance accepts intervals that started at most this long ago.
	PastTolerance time.Duration `yaml:"past_tolerance"`

	// IdentityHeader carries the verified owner id on HTTP requests.
	IdentityHeader string `yaml:"identity_header"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:       "gpures.db",
		Listen:         ":8080",
		Policy:         "elder",
		MaxAttempts:    3,
		PastTolerance:  time.Minute,
		IdentityHeader: "X-User-ID",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads path over Default. An empty path returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database is required"))
	}
	switch c.Policy {
	case "elder", "priority":
	default:
		errs = append(errs, fmt.Errorf("policy %q must be elder or priority", c.Policy))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.PastTolerance < 0 {
		errs = append(errs, fmt.Errorf("past_tolerance must not be negative, got %s", c.PastTolerance))
	}
	if strings.TrimSpace(c.IdentityHeader) == "" {
		errs = append(errs, errors.New("identity_header is required"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SlogLevel returns LogLevel as a slog.Level. Invalid values map to Info.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q must be debug, info, warn or error", s)
	}
	return level, nil
}
