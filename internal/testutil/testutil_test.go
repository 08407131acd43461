package testutil

import (
	"math"
	"testing"
)

func TestTone(t *testing.T) {
	t.Parallel()

	buf := Tone(t, 48000, 48, Sine{Freq: 1000, Amp: 1}, Sine{Freq: 1000, Amp: 0.5, Phase: math.Pi / 2})

	if buf.NumChannels() != 2 || buf.Len() != 48 {
		t.Fatalf("shape = %dx%d, want 2x48", buf.NumChannels(), buf.Len())
	}

	if math.Abs(buf.Channel(0)[0]) > 1e-15 {
		t.Fatalf("left[0] = %v, want 0", buf.Channel(0)[0])
	}

	if math.Abs(buf.Channel(1)[0]-0.5) > 1e-15 {
		t.Fatalf("right[0] = %v, want 0.5", buf.Channel(1)[0])
	}
}

func TestNoiseIsSeeded(t *testing.T) {
	t.Parallel()

	a := Noise(t, 42, 8000, 2, 64, 1)
	b := Noise(t, 42, 8000, 2, 64, 1)
	RequireBuffersNearlyEqual(t, a, b, 0)

	c := Noise(t, 43, 8000, 2, 64, 1)
	if d, _ := MaxAbsDiff(a.Channel(0), c.Channel(0)); d == 0 {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestImpulseAndConstant(t *testing.T) {
	t.Parallel()

	imp := Impulse(t, 8000, 2, 8, 3)
	for c, ch := range imp.Channels() {
		for i, v := range ch {
			want := 0.0
			if i == 3 {
				want = 1
			}

			if v != want {
				t.Fatalf("channel %d [%d] = %v, want %v", c, i, v, want)
			}
		}
	}

	out := Impulse(t, 8000, 1, 4, 10)
	RequireBuffersNearlyEqual(t, out, Constant(t, 8000, 1, 4, 0), 0)
}

func TestMaxAbsDiff(t *testing.T) {
	t.Parallel()

	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d != 1 {
		t.Fatalf("diff = %v, want 1", d)
	}

	if _, err := MaxAbsDiff([]float64{1}, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
