//go:build fastmath

package dynamics

import (
	"math"

	approx "github.com/meko-christian/algo-approx"
)

// mathLog2 approximates log2(x) for the per-sample gain curve.
func mathLog2(x float64) float64 {
	return approx.FastLog(x) / math.Ln2
}

// mathPower2 approximates 2^x for the per-sample gain curve.
func mathPower2(x float64) float64 {
	return approx.FastExp(x * math.Ln2)
}
