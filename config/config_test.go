package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
sample_rate: 48000
smoothing:
  delay_time: 0.05
analyser:
  fft_size: 4096
prefs_path: /tmp/fx.json
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SampleRate != 48000 || cfg.Analyser.FFTSize != 4096 || cfg.PrefsPath != "/tmp/fx.json" {
		t.Fatalf("overridden fields not applied: %+v", cfg)
	}

	if cfg.Smoothing.DelayTime != 0.05 {
		t.Fatalf("delay_time = %v, want 0.05", cfg.Smoothing.DelayTime)
	}

	def := Default()
	if cfg.Smoothing.Bypass != def.Smoothing.Bypass || cfg.Channels != def.Channels || cfg.Analyser.Smoothing != def.Analyser.Smoothing {
		t.Fatalf("unspecified fields lost their defaults: %+v", cfg)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "low sample rate", yaml: "sample_rate: 100"},
		{name: "zero channels", yaml: "channels: 0"},
		{name: "negative smoothing", yaml: "smoothing:\n  gain: -0.1"},
		{name: "fft not power of two", yaml: "analyser:\n  fft_size: 1000"},
		{name: "fft too small", yaml: "analyser:\n  fft_size: 16"},
		{name: "analyser smoothing above one", yaml: "analyser:\n  smoothing: 1.5"},
		{name: "zero impulse", yaml: "reverb:\n  initial_decay: 0"},
		{name: "long impulse", yaml: "reverb:\n  initial_decay: 90"},
		{name: "positive floor", yaml: "meter:\n  floor_db: 3"},
	}

	for _, tt := range tests {
		if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: error = %v, want ErrInvalidConfig", tt.name, err)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("sample_rate: [1, 2"))
	if err == nil {
		t.Fatal("expected parse error")
	}

	if errors.Is(err, ErrInvalidConfig) {
		t.Fatal("syntax error reported as validation failure")
	}
}

func TestLoadAndMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	want := Default()
	want.SampleRate = 22050
	want.Reverb.Seed = 42
	want.Meter.FloorDB = -72

	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fx.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
}
