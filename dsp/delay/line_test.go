package delay

import (
	"errors"
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		if _, err := New(size); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("New(%d) error = %v, want ErrInvalidSize", size, err)
		}
	}

	if _, err := NewForDuration(0, 44100); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("NewForDuration(0) error = %v, want ErrInvalidSize", err)
	}
}

func TestNewForDurationCoversMaxDelay(t *testing.T) {
	t.Parallel()

	d, err := NewForDuration(2, 44100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.MaxDelay() < 2*44100 {
		t.Fatalf("MaxDelay() = %v, want >= %v", d.MaxDelay(), 2*44100)
	}
}

func TestIntegerDelay(t *testing.T) {
	t.Parallel()

	d, err := New(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i <= 5; i++ {
		d.Write(float64(i))
	}

	tests := []struct {
		delay int
		want  float64
	}{
		{delay: 1, want: 5},
		{delay: 2, want: 4},
		{delay: 5, want: 1},
	}

	for _, tt := range tests {
		if got := d.Read(tt.delay); got != tt.want {
			t.Fatalf("Read(%d) = %v, want %v", tt.delay, got, tt.want)
		}
	}
}

func TestFractionalDelayOnRamp(t *testing.T) {
	t.Parallel()

	d, err := New(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range 20 {
		d.Write(float64(i))
	}

	// A linear ramp is reproduced exactly by cubic Hermite interpolation.
	got := d.ReadFractional(3.25)
	want := 19 - 3.25 + 1
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("ReadFractional(3.25) = %v, want %v", got, want)
	}

	if got := d.ReadFractional(0.2); got != 19 {
		t.Fatalf("ReadFractional below 1 = %v, want clamp to newest sample", got)
	}
}

func TestWrapAround(t *testing.T) {
	t.Parallel()

	d, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i <= 10; i++ {
		d.Write(float64(i))
	}

	if got := d.Read(1); got != 10 {
		t.Fatalf("Read(1) = %v, want 10", got)
	}

	if got := d.Read(4); got != 7 {
		t.Fatalf("Read(4) = %v, want 7", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	d, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Write(1)
	d.Reset()

	for i := 1; i <= 4; i++ {
		if got := d.Read(i); got != 0 {
			t.Fatalf("Read(%d) after Reset = %v, want 0", i, got)
		}
	}
}
