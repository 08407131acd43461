// Package conv provides streaming FFT convolution for long impulse
// responses.
package conv

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput       = errors.New("conv: empty input")
	ErrEmptyKernel      = errors.New("conv: empty kernel")
	ErrLengthMismatch   = errors.New("conv: buffer length mismatch")
	ErrInvalidBlockSize = errors.New("conv: invalid block size")
)

// Direct computes the full linear convolution of a and b, length
// len(a)+len(b)-1, in the time domain.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	dst := make([]float64, len(a)+len(b)-1)
	temp := make([]float64, len(b))

	for i, x := range a {
		vecmath.ScaleBlock(temp, b, x)
		vecmath.AddBlockInPlace(dst[i:i+len(b)], temp)
	}

	return dst, nil
}

func isPowerOf2(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
