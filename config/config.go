// Package config loads engine settings from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-yaml"
)

// ErrInvalidConfig is returned by Validate and by Load/Parse for settings
// out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the tunable settings of a live engine.
type Config struct {
	SampleRate int       `yaml:"sample_rate"`
	Channels   int       `yaml:"channels"`
	Smoothing  Smoothing `yaml:"smoothing"`
	Reverb     Reverb    `yaml:"reverb"`
	Analyser   Analyser  `yaml:"analyser"`
	Meter      Meter     `yaml:"meter"`
	// PrefsPath is the JSON file backing the persisted chain order. Empty
	// keeps preferences in memory.
	PrefsPath string `yaml:"prefs_path"`
}

// Smoothing holds automation time constants in seconds.
type Smoothing struct {
	Bypass    float64 `yaml:"bypass"`
	Gain      float64 `yaml:"gain"`
	DelayTime float64 `yaml:"delay_time"`
}

// Reverb configures impulse generation. InitialDecay is both the length
// in seconds and the decay exponent of the impulse reverbs start with.
type Reverb struct {
	Seed         int64   `yaml:"seed"`
	InitialDecay float64 `yaml:"initial_decay"`
}

// Analyser configures the master-bus spectrum analyser.
type Analyser struct {
	FFTSize   int     `yaml:"fft_size"`
	Smoothing float64 `yaml:"smoothing"`
}

// Meter configures level meters.
type Meter struct {
	FloorDB float64 `yaml:"floor_db"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SampleRate: 44100,
		Channels:   2,
		Smoothing:  Smoothing{Bypass: 0.02, Gain: 0.01, DelayTime: 0.1},
		Reverb:     Reverb{Seed: 0x5eed, InitialDecay: 2},
		Analyser:   Analyser{FFTSize: 2048, Smoothing: 0.8},
		Meter:      Meter{FloorDB: -60},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Parse(data)
}

// Parse overlays YAML data on Default and validates the result. Keys not
// present keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}

	return data, nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 3000 || c.SampleRate > 768000:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalidConfig, c.SampleRate)
	case c.Channels < 1 || c.Channels > 32:
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	case !nonNegative(c.Smoothing.Bypass), !nonNegative(c.Smoothing.Gain), !nonNegative(c.Smoothing.DelayTime):
		return fmt.Errorf("%w: smoothing %+v", ErrInvalidConfig, c.Smoothing)
	case !positive(c.Reverb.InitialDecay) || c.Reverb.InitialDecay > 60:
		return fmt.Errorf("%w: reverb initial_decay %v", ErrInvalidConfig, c.Reverb.InitialDecay)
	case c.Analyser.FFTSize < 32 || c.Analyser.FFTSize > 32768 || c.Analyser.FFTSize&(c.Analyser.FFTSize-1) != 0:
		return fmt.Errorf("%w: analyser fft_size %d", ErrInvalidConfig, c.Analyser.FFTSize)
	case !(c.Analyser.Smoothing >= 0 && c.Analyser.Smoothing <= 1):
		return fmt.Errorf("%w: analyser smoothing %v", ErrInvalidConfig, c.Analyser.Smoothing)
	case !(c.Meter.FloorDB < 0) || math.IsInf(c.Meter.FloorDB, 0):
		return fmt.Errorf("%w: meter floor_db %v", ErrInvalidConfig, c.Meter.FloorDB)
	}

	return nil
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}
