package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Partitioned is a uniformly partitioned overlap-save convolver.
//
// The kernel is cut into blockSize partitions whose spectra are multiplied
// against a frequency-domain delay line of past input windows. Each call
// to ProcessBlock consumes and produces exactly blockSize samples with no
// added latency. Spectra are stored planar (real and imaginary slices) for
// the non-negative bins only; the upper half is restored by conjugate
// symmetry before the inverse FFT.
type Partitioned struct {
	blockSize int
	fftSize   int
	bins      int

	plan *algofft.Plan[complex128]

	// kernel spectra, one entry per partition
	hRe, hIm, hImNeg [][]float64

	// frequency-domain delay line of input spectra
	xRe, xIm [][]float64
	pos      int

	window  []float64
	timeBuf []complex128
	freqBuf []complex128

	accRe, accIm, tmp []float64
}

// NewPartitioned prepares a convolver for kernel. blockSize must be a
// power of two.
func NewPartitioned(kernel []float64, blockSize int) (*Partitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	if !isPowerOf2(blockSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	fftSize := 2 * blockSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	bins := blockSize + 1
	parts := (len(kernel) + blockSize - 1) / blockSize

	p := &Partitioned{
		blockSize: blockSize,
		fftSize:   fftSize,
		bins:      bins,
		plan:      plan,
		hRe:       make([][]float64, parts),
		hIm:       make([][]float64, parts),
		hImNeg:    make([][]float64, parts),
		xRe:       make([][]float64, parts),
		xIm:       make([][]float64, parts),
		window:    make([]float64, fftSize),
		timeBuf:   make([]complex128, fftSize),
		freqBuf:   make([]complex128, fftSize),
		accRe:     make([]float64, bins),
		accIm:     make([]float64, bins),
		tmp:       make([]float64, bins),
	}

	for k := range parts {
		clear(p.timeBuf)

		start := k * blockSize
		end := min(start+blockSize, len(kernel))

		for i, v := range kernel[start:end] {
			p.timeBuf[i] = complex(v, 0)
		}

		err = plan.Forward(p.freqBuf, p.timeBuf)
		if err != nil {
			return nil, fmt.Errorf("conv: kernel partition %d: %w", k, err)
		}

		p.hRe[k] = make([]float64, bins)
		p.hIm[k] = make([]float64, bins)
		p.hImNeg[k] = make([]float64, bins)

		for b := range bins {
			p.hRe[k][b] = real(p.freqBuf[b])
			p.hIm[k][b] = imag(p.freqBuf[b])
			p.hImNeg[k][b] = -imag(p.freqBuf[b])
		}

		p.xRe[k] = make([]float64, bins)
		p.xIm[k] = make([]float64, bins)
	}

	return p, nil
}

// BlockSize returns the number of samples consumed per ProcessBlock call.
func (p *Partitioned) BlockSize() int {
	return p.blockSize
}

// Partitions returns the number of kernel partitions.
func (p *Partitioned) Partitions() int {
	return len(p.hRe)
}

// ProcessBlock convolves one block. in and out must both hold exactly
// BlockSize samples; they may alias.
func (p *Partitioned) ProcessBlock(in, out []float64) error {
	if len(in) != p.blockSize || len(out) != p.blockSize {
		return fmt.Errorf("%w: got %d/%d, want %d", ErrLengthMismatch, len(in), len(out), p.blockSize)
	}

	b := p.blockSize

	copy(p.window[:b], p.window[b:])
	copy(p.window[b:], in)

	for i, v := range p.window {
		p.timeBuf[i] = complex(v, 0)
	}

	err := p.plan.Forward(p.freqBuf, p.timeBuf)
	if err != nil {
		return fmt.Errorf("conv: forward FFT: %w", err)
	}

	xr, xi := p.xRe[p.pos], p.xIm[p.pos]
	for k := range p.bins {
		xr[k] = real(p.freqBuf[k])
		xi[k] = imag(p.freqBuf[k])
	}

	clear(p.accRe)
	clear(p.accIm)

	parts := len(p.hRe)
	for k := range parts {
		slot := p.pos - k
		if slot < 0 {
			slot += parts
		}

		xr, xi := p.xRe[slot], p.xIm[slot]

		// (xr + j xi)(hr + j hi) = (xr hr - xi hi) + j(xr hi + xi hr)
		vecmath.MulBlock(p.tmp, xr, p.hRe[k])
		vecmath.AddBlockInPlace(p.accRe, p.tmp)
		vecmath.MulBlock(p.tmp, xi, p.hImNeg[k])
		vecmath.AddBlockInPlace(p.accRe, p.tmp)
		vecmath.MulBlock(p.tmp, xr, p.hIm[k])
		vecmath.AddBlockInPlace(p.accIm, p.tmp)
		vecmath.MulBlock(p.tmp, xi, p.hRe[k])
		vecmath.AddBlockInPlace(p.accIm, p.tmp)
	}

	for k := range p.bins {
		p.freqBuf[k] = complex(p.accRe[k], p.accIm[k])
	}

	for k := 1; k < b; k++ {
		p.freqBuf[p.fftSize-k] = complex(p.accRe[k], -p.accIm[k])
	}

	err = p.plan.Inverse(p.timeBuf, p.freqBuf)
	if err != nil {
		return fmt.Errorf("conv: inverse FFT: %w", err)
	}

	for i := range b {
		out[i] = real(p.timeBuf[b+i])
	}

	p.pos++
	if p.pos == parts {
		p.pos = 0
	}

	return nil
}

// Reset clears the input history.
func (p *Partitioned) Reset() {
	clear(p.window)

	for k := range p.xRe {
		clear(p.xRe[k])
		clear(p.xIm[k])
	}

	p.pos = 0
}
