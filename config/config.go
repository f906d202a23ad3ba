// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads gorgon profiles from TOML or YAML files.
//
// A profile selects the backend, the feature level the device reports,
// whether the graphics context validates slot exclusivity, and the log level:
//
//	backend = "software"
//	feature_level = "10_1"
//	validation = true
//	log_level = "debug"
//	label = "probe"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/backend"
	"github.com/gogpu/gorgon/gpucore"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Errors returned by Load and Parse.
var (
	// ErrFormat is returned for file extensions other than .toml, .yaml and .yml.
	ErrFormat = errors.New("config: unsupported format")

	// ErrInvalid is returned when a profile field has an unusable value.
	ErrInvalid = errors.New("config: invalid value")
)

// maxSize bounds the profile files Load reads.
const maxSize = 1 << 20

// Format is the encoding of a profile.
type Format int

// Profile formats.
const (
	FormatTOML Format = iota + 1
	FormatYAML
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// FormatOf selects the format from the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrFormat, path)
	}
}

// Config is a gorgon profile. Empty fields keep the defaults.
type Config struct {
	// Backend names a registered backend. Empty selects the highest
	// priority backend that initializes.
	Backend string `toml:"backend" yaml:"backend"`

	// FeatureLevel is a level name such as "11_0" or "9.3".
	FeatureLevel string `toml:"feature_level" yaml:"feature_level"`

	// Validation toggles slot exclusivity checks. Nil keeps them on.
	Validation *bool `toml:"validation" yaml:"validation"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	Label string `toml:"label" yaml:"label"`
}

// Default returns the profile used when no file is given.
func Default() Config {
	return Config{LogLevel: "info"}
}

// Load reads the profile at path. The format follows the extension.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxSize {
		return Config{}, fmt.Errorf("%w: %s is %d bytes", ErrInvalid, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a profile and validates it. Unknown keys are rejected.
func Parse(data []byte, format Format) (Config, error) {
	cfg := Default()
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrFormat, format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the level names and the backend name.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Backend != "" && !backend.IsRegistered(c.Backend) {
		return fmt.Errorf("%w: backend %q is not registered (available: %s)",
			ErrInvalid, c.Backend, strings.Join(backend.Available(), ", "))
	}
	return nil
}

// Level parses FeatureLevel. Empty yields zero, the backend default.
func (c Config) Level() (gpucore.FeatureLevel, error) {
	if c.FeatureLevel == "" {
		return 0, nil
	}
	level, err := gpucore.ParseFeatureLevel(c.FeatureLevel)
	if err != nil {
		return 0, fmt.Errorf("%w: feature_level: %w", ErrInvalid, err)
	}
	return level, nil
}

// SlogLevel parses LogLevel. Empty yields slog.LevelInfo.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// BackendOptions converts the profile to backend options.
func (c Config) BackendOptions() backend.Options {
	level, _ := c.Level()
	return backend.Options{FeatureLevel: level, Label: c.Label}
}

// ContextOptions converts the profile to graphics context options.
func (c Config) ContextOptions() []gorgon.ContextOption {
	opts := []gorgon.ContextOption{gorgon.WithLabel(c.Label)}
	if c.Validation != nil {
		opts = append(opts, gorgon.WithValidation(*c.Validation))
	}
	return opts
}

// OpenBackend opens the configured backend, or the default one when
// Backend is empty.
func (c Config) OpenBackend() (backend.Backend, error) {
	if c.Backend == "" {
		return backend.InitDefault(c.BackendOptions())
	}
	return backend.Open(c.Backend, c.BackendOptions())
}
