package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// RequireBuffersNearlyEqual fails t if the buffers differ in shape or any
// sample pair differs by more than eps.
func RequireBuffersNearlyEqual(t testing.TB, got, want *buffer.Buffer, eps float64) {
	t.Helper()

	if got.NumChannels() != want.NumChannels() || got.Len() != want.Len() {
		t.Fatalf("shape mismatch: got %dx%d, want %dx%d",
			got.NumChannels(), got.Len(), want.NumChannels(), want.Len())
	}

	for c := range got.NumChannels() {
		RequireSliceNearlyEqual(t, got.Channel(c), want.Channel(c), eps)
	}
}

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps.
func RequireSliceNearlyEqual(t testing.TB, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any sample is NaN or Inf.
func RequireFinite(t testing.TB, buf *buffer.Buffer) {
	t.Helper()

	for c, ch := range buf.Channels() {
		for i, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("channel %d index %d: non-finite value %v", c, i, v)
			}
		}
	}
}

// MaxAbsDiff returns the largest absolute sample difference.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0

	for i := range a {
		maxDiff = max(maxDiff, math.Abs(a[i]-b[i]))
	}

	return maxDiff, nil
}
