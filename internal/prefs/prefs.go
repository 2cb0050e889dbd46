// Package prefs persists the few user settings that outlive a session.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"imgalpha/internal/engine"
)

// Dither is a tri-state dithering preference.
type Dither string

const (
	DitherAuto Dither = "auto"
	DitherOn   Dither = "on"
	DitherOff  Dither = "off"
)

// ParseDither accepts auto, on or off in any case. Empty means auto.
func ParseDither(s string) (Dither, error) {
	switch Dither(strings.ToLower(strings.TrimSpace(s))) {
	case "", DitherAuto:
		return DitherAuto, nil
	case DitherOn:
		return DitherOn, nil
	case DitherOff:
		return DitherOff, nil
	}
	return DitherAuto, fmt.Errorf("invalid dither mode %q (want auto, on or off)", s)
}

// Enabled resolves the preference. Auto resolves to off.
func (d Dither) Enabled() bool {
	return d == DitherOn
}

// Prefs is the on-disk preference document.
type Prefs struct {
	Dither Dither `yaml:"dither"`
	Speed  int    `yaml:"speed"`
}

// Default returns the preferences of a fresh install.
func Default() Prefs {
	return Prefs{Dither: DitherAuto, Speed: engine.DefaultSpeed}
}

func (p Prefs) normalize() Prefs {
	d, err := ParseDither(string(p.Dither))
	if err != nil {
		d = DitherAuto
	}
	p.Dither = d
	if p.Speed < engine.MinSpeed || p.Speed > engine.MaxSpeed {
		p.Speed = engine.DefaultSpeed
	}
	return p
}

// Apply copies the preferences onto opts.
func (p Prefs) Apply(opts engine.Options) engine.Options {
	p = p.normalize()
	opts.Dithered = p.Dither.Enabled()
	opts.Speed = p.Speed
	return opts
}

// DefaultPath is prefs.yaml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "imgalpha", "prefs.yaml"), nil
}

// Load reads path. A missing file yields Default and no error.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), err
	}

	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	return p.normalize(), nil
}

// Save writes p to path, creating the parent directory if needed.
func Save(path string, p Prefs) error {
	data, err := yaml.Marshal(p.normalize())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
