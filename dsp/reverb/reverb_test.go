package reverb

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

func TestGenerateShape(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 7))

	ir, err := Generate(rng, 8000, 0.5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ir.NumChannels() != Channels || ir.Len() != 4000 {
		t.Fatalf("shape = %dx%d, want 2x4000", ir.NumChannels(), ir.Len())
	}

	for c := range ir.NumChannels() {
		for i, v := range ir.Channel(c) {
			bound := math.Pow(1-float64(i)/4000, 2)
			if math.Abs(v) > bound {
				t.Fatalf("channel %d sample %d = %v exceeds envelope %v", c, i, v, bound)
			}
		}
	}

	if ir.Channel(0)[0] == ir.Channel(1)[0] {
		t.Fatal("channels should carry independent noise")
	}
}

func TestGenerateIsDeterministicPerStream(t *testing.T) {
	t.Parallel()

	a, err := Generate(rand.New(rand.NewPCG(1, 2)), 1000, 0.1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := Generate(rand.New(rand.NewPCG(1, 2)), 1000, 0.1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range a.Len() {
		if a.Channel(1)[i] != b.Channel(1)[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(0, 0))

	tests := []struct {
		name     string
		rate     float64
		duration float64
		decay    float64
	}{
		{name: "zero duration", rate: 44100, duration: 0, decay: 2},
		{name: "negative rate", rate: -1, duration: 1, decay: 2},
		{name: "negative decay", rate: 44100, duration: 1, decay: -1},
		{name: "nan decay", rate: 44100, duration: 1, decay: math.NaN()},
	}

	for _, tt := range tests {
		if _, err := Generate(rng, tt.rate, tt.duration, tt.decay); !errors.Is(err, ErrInvalidImpulse) {
			t.Fatalf("%s: error = %v, want ErrInvalidImpulse", tt.name, err)
		}
	}
}

func TestNormalizationScale(t *testing.T) {
	t.Parallel()

	ones := []float64{1, 1, 1, 1}

	ir, err := buffer.FromChannels(44100, ones, ones)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := math.Pow(10, -58.0/20)
	if got := NormalizationScale(ir); math.Abs(got-want) > 1e-12 {
		t.Fatalf("scale at 44.1 kHz = %v, want %v", got, want)
	}

	ir, err = buffer.FromChannels(88200, ones, ones)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := NormalizationScale(ir); math.Abs(got-want/2) > 1e-12 {
		t.Fatalf("scale at 88.2 kHz = %v, want %v", got, want/2)
	}

	silent, err := buffer.New(2, 4, 44100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := NormalizationScale(silent); math.Abs(got-want/minPower) > 1e-9 {
		t.Fatalf("scale for silence = %v, want floor %v", got, want/minPower)
	}
}

func TestCacheReusesAndRegenerates(t *testing.T) {
	t.Parallel()

	c := NewCache(42)

	first, err := c.Impulse(8000, 0.5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := c.Impulse(8000, 0.5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != again {
		t.Fatal("same parameters should reuse the cached impulse")
	}

	other, err := c.Impulse(8000, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if other == first {
		t.Fatal("different decay should regenerate the impulse")
	}

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	t.Parallel()

	c := NewCache(1)

	first, err := c.Impulse(1000, 0.1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range defaultCacheSize {
		if _, err := c.Impulse(1000, 0.1, float64(i+2)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if c.Len() != defaultCacheSize {
		t.Fatalf("Len() = %d, want %d", c.Len(), defaultCacheSize)
	}

	again, err := c.Impulse(1000, 0.1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if again == first {
		t.Fatal("evicted impulse should be regenerated")
	}
}
