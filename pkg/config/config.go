// Package config holds the tunable settings of a document and the command
// engine, loaded from a TOML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/zcad/pkg/spatial"
)

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full set of settings.
type Config struct {
	// Index selects the spatial index: "grid" or "rtree".
	Index string `toml:"index"`
	// CellSize is the grid cell edge in drawing units.
	CellSize float64 `toml:"cell_size"`

	// Tolerance is the default coincidence distance for intersection
	// tests and offsets.
	Tolerance float64 `toml:"tolerance"`
	// PickTolerance is the half-width of the pick square.
	PickTolerance float64 `toml:"pick_tolerance"`
	// ChordTolerance bounds the deviation of flattened curves.
	ChordTolerance float64 `toml:"chord_tolerance"`
	// Crossings makes segment intersection tests also detect segments
	// crossing away from their endpoints.
	Crossings bool `toml:"crossings"`

	// Workers sizes the batch pool for edits; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
	// HistoryLimit caps the undo stack; 0 disables history.
	HistoryLimit int `toml:"history_limit"`

	// EvalTimeout bounds a single script evaluation.
	EvalTimeout Duration `toml:"eval_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	Units string `toml:"units"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Index:          spatial.KindGrid,
		CellSize:       spatial.DefaultCellSize,
		Tolerance:      1e-3,
		PickTolerance:  0.5,
		ChordTolerance: 0.01,
		HistoryLimit:   100,
		EvalTimeout:    Duration{5 * time.Second},
		LogLevel:       "info",
		Units:          "mm",
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Index {
	case spatial.KindGrid, spatial.KindRTree:
	default:
		errs = append(errs, fmt.Errorf("index %q must be %q or %q", c.Index, spatial.KindGrid, spatial.KindRTree))
	}
	if c.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("cell_size %g must be positive", c.CellSize))
	}
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance %g must not be negative", c.Tolerance))
	}
	if c.PickTolerance < 0 {
		errs = append(errs, fmt.Errorf("pick_tolerance %g must not be negative", c.PickTolerance))
	}
	if c.ChordTolerance <= 0 {
		errs = append(errs, fmt.Errorf("chord_tolerance %g must be positive", c.ChordTolerance))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("history_limit %d must not be negative", c.HistoryLimit))
	}
	if c.EvalTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("eval_timeout %v must be positive", c.EvalTimeout.Duration))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
