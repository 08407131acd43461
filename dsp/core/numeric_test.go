package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	t.Parallel()

	if !IsFinite(1) {
		t.Fatal("1 should be finite")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Fatal("NaN and Inf should not be finite")
	}
}

func TestDBToLinear(t *testing.T) {
	t.Parallel()

	if got := DBToLinear(-6); math.Abs(got-0.5011872336272722) > 1e-12 {
		t.Fatalf("DBToLinear(-6) = %v, want 0.50119", got)
	}
	if got := DBToLinear(0); got != 1 {
		t.Fatalf("DBToLinear(0) = %v, want 1", got)
	}
}

func TestOnePoleCoeff(t *testing.T) {
	t.Parallel()

	if got := OnePoleCoeff(0, 48000); got != 0 {
		t.Fatalf("zero time constant: got %v, want 0", got)
	}

	k := OnePoleCoeff(0.01, 48000)
	// After one time constant the remaining error is 1/e.
	remaining := math.Pow(k, 480)
	if math.Abs(remaining-math.Exp(-1)) > 1e-9 {
		t.Fatalf("remaining after tau = %v, want %v", remaining, math.Exp(-1))
	}
}

func TestFramesToSeconds(t *testing.T) {
	t.Parallel()

	if got := FramesToSeconds(22050, 44100); got != 0.5 {
		t.Fatalf("FramesToSeconds() = %v, want 0.5", got)
	}
	if got := FramesToSeconds(100, 0); got != 0 {
		t.Fatalf("zero rate: got %v, want 0", got)
	}
}

func TestPeak(t *testing.T) {
	t.Parallel()

	if got := Peak([]float64{0.1, -0.7, 0.5}); got != 0.7 {
		t.Fatalf("Peak() = %v, want 0.7", got)
	}
	if got := Peak(nil); got != 0 {
		t.Fatalf("Peak(nil) = %v, want 0", got)
	}
}
