package biquad

import "testing"

func TestIdentityPassesInput(t *testing.T) {
	t.Parallel()

	s := NewSection(Identity())
	src := []float64{1, -0.5, 0.25, 0}
	dst := make([]float64, len(src))
	s.ProcessBlockTo(dst, src)

	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestProcessBlockMatchesSampleLoop(t *testing.T) {
	t.Parallel()

	c := Coefficients{B0: 0.2, B1: 0.3, B2: 0.1, A1: -0.4, A2: 0.05}
	a := NewSection(c)
	b := NewSection(c)

	src := []float64{1, 0, 0, 0.5, -1, 0.25, 0, 0}
	dst := make([]float64, len(src))
	a.ProcessBlockTo(dst, src)

	for i, x := range src {
		if y := b.ProcessSample(x); y != dst[i] {
			t.Fatalf("sample %d: block %v, sample loop %v", i, dst[i], y)
		}
	}

	if a.State() != b.State() {
		t.Fatalf("state mismatch: %v vs %v", a.State(), b.State())
	}
}

func TestProcessBlockInPlace(t *testing.T) {
	t.Parallel()

	s := NewSection(Coefficients{B0: 0.5, B1: 0.5})
	buf := []float64{1, 1, 1}
	s.ProcessBlockTo(buf, buf)

	want := []float64{0.5, 1, 1}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	s := NewSection(Coefficients{B0: 1, B1: 1, A1: -0.5})
	s.ProcessSample(1)
	s.Reset()

	if s.State() != [2]float64{} {
		t.Fatalf("State() after Reset = %v, want zero", s.State())
	}
}
