// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/backend"
	_ "github.com/gogpu/gorgon/backend/software"
	"github.com/gogpu/gorgon/gpucore"
)

const tomlProfile = `
backend = "software"
feature_level = "10_1"
validation = false
log_level = "debug"
label = "probe"
`

const yamlProfile = `
backend: software
feature_level: "9.3"
log_level: warn
`

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		format     Format
		want       Config
		validation *bool
		wantErr    error
	}{
		{
			name:   "toml",
			data:   tomlProfile,
			format: FormatTOML,
			want:   Config{Backend: "software", FeatureLevel: "10_1", LogLevel: "debug", Label: "probe"},
		},
		{
			name:   "yaml",
			data:   yamlProfile,
			format: FormatYAML,
			want:   Config{Backend: "software", FeatureLevel: "9.3", LogLevel: "warn"},
		},
		{name: "empty toml", data: "", format: FormatTOML, want: Default()},
		{name: "empty yaml", data: "", format: FormatYAML, want: Default()},
		{name: "unknown toml key", data: `colour = "red"`, format: FormatTOML, wantErr: errAny},
		{name: "unknown yaml key", data: "colour: red\n", format: FormatYAML, wantErr: errAny},
		{name: "malformed toml", data: `backend = `, format: FormatTOML, wantErr: errAny},
		{name: "bad feature level", data: `feature_level = "12_0"`, format: FormatTOML, wantErr: ErrInvalid},
		{name: "bad log level", data: "log_level: loud\n", format: FormatYAML, wantErr: ErrInvalid},
		{name: "unregistered backend", data: `backend = "metal"`, format: FormatTOML, wantErr: ErrInvalid},
		{name: "unknown format", data: "", format: Format(9), wantErr: ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Parse() = %+v, want error", got)
				}
				if tt.wantErr != errAny && !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got.Validation = nil
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// errAny marks cases where any decode error is accepted.
var errAny = errors.New("any error")

func TestValidationField(t *testing.T) {
	cfg, err := Parse([]byte(tomlProfile), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Validation == nil || *cfg.Validation {
		t.Errorf("Validation = %v, want false", cfg.Validation)
	}
	cfg, err = Parse([]byte(yamlProfile), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Validation != nil {
		t.Errorf("unset Validation = %v, want nil", *cfg.Validation)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"gorgon.toml", FormatTOML},
		{"dir/profile.YAML", FormatYAML},
		{"profile.yml", FormatYAML},
		{"profile.json", 0},
		{"profile", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.want == 0 {
				if !errors.Is(err, ErrFormat) {
					t.Errorf("FormatOf(%q) error = %v, want ErrFormat", tt.path, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FormatOf(%q) = %s, %v, want %s", tt.path, got, err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	cfg, err := Load(write("gorgon.toml", tomlProfile))
	if err != nil {
		t.Fatalf("Load(toml): %v", err)
	}
	if cfg.Label != "probe" {
		t.Errorf("Label = %q", cfg.Label)
	}
	if _, err := Load(write("gorgon.yml", yamlProfile)); err != nil {
		t.Fatalf("Load(yml): %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
	if _, err := Load(write("gorgon.ini", "")); !errors.Is(err, ErrFormat) {
		t.Errorf(".ini error = %v, want ErrFormat", err)
	}
}

func TestConversions(t *testing.T) {
	off := false
	cfg := Config{Backend: backend.BackendSoftware, FeatureLevel: "10_0", Validation: &off, LogLevel: "error", Label: "conv"}

	opts := cfg.BackendOptions()
	if opts.FeatureLevel != gpucore.FeatureLevel10_0 || opts.Label != "conv" {
		t.Errorf("BackendOptions() = %+v", opts)
	}
	level, err := cfg.SlogLevel()
	if err != nil || level != slog.LevelError {
		t.Errorf("SlogLevel() = %v, %v", level, err)
	}
	if level, _ := (Config{}).SlogLevel(); level != slog.LevelInfo {
		t.Errorf("empty SlogLevel() = %v, want info", level)
	}

	b, err := cfg.OpenBackend()
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer b.Close()
	dev := b.Device()
	if dev.FeatureLevel() != gpucore.FeatureLevel10_0 {
		t.Errorf("device FeatureLevel() = %v", dev.FeatureLevel())
	}

	gc, err := gorgon.NewGraphicsContext(dev, cfg.ContextOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	defer gc.Close()
	if gc.Validating() {
		t.Error("validation = false in the profile, context validates")
	}
	if gc.Label() != "conv" {
		t.Errorf("Label() = %q", gc.Label())
	}
}
