// Package analysis provides the realtime analyser and level meter fed from
// the master output.
package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// DefaultFFTSize is the analysis window length.
	DefaultFFTSize = 2048
	// DefaultSmoothing is the spectral smoothing time constant.
	DefaultSmoothing = 0.8
	// DefaultMinDecibels and DefaultMaxDecibels span the byte spectrum.
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// Errors returned by analyser construction.
var (
	ErrInvalidFFTSize   = errors.New("analysis: fft size must be a power of two in [32, 32768]")
	ErrInvalidSmoothing = errors.New("analysis: smoothing must be in [0, 1]")
)

// Analyser keeps the most recent FFTSize samples of a mono signal and
// derives smoothed magnitude spectra and time-domain snapshots from them.
//
// Analyser is not safe for concurrent use.
type Analyser struct {
	size      int
	smoothing float64

	minDB, maxDB float64

	ring  []float64
	write int

	window []float64
	plan   *algofft.Plan[complex128]
	in     []complex128
	spec   []complex128
	re, im []float64
	mag    []float64
	smooth []float64
	frame  []float64
}

// NewAnalyser returns an analyser with the given window length and
// smoothing time constant.
func NewAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	if fftSize < minFFTSize || fftSize > maxFFTSize || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFFTSize, fftSize)
	}

	if smoothing < 0 || smoothing > 1 || math.IsNaN(smoothing) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSmoothing, smoothing)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: fft plan: %w", err)
	}

	bins := fftSize / 2

	return &Analyser{
		size:      fftSize,
		smoothing: smoothing,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
		ring:      make([]float64, fftSize),
		window:    blackman(fftSize),
		plan:      plan,
		in:        make([]complex128, fftSize),
		spec:      make([]complex128, fftSize),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		smooth:    make([]float64, bins),
		frame:     make([]float64, fftSize),
	}, nil
}

// blackman returns the periodic Blackman window (alpha 0.16).
func blackman(n int) []float64 {
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)

	w := make([]float64, n)
	for i := range w {
		phase := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(phase) + a2*math.Cos(2*phase)
	}

	return w
}

// FFTSize returns the window length.
func (a *Analyser) FFTSize() int { return a.size }

// FrequencyBinCount returns the number of spectrum bins, FFTSize/2.
func (a *Analyser) FrequencyBinCount() int { return a.size / 2 }

// Write appends samples to the analysis window.
func (a *Analyser) Write(samples []float64) {
	if len(samples) >= a.size {
		copy(a.ring, samples[len(samples)-a.size:])
		a.write = 0

		return
	}

	for _, x := range samples {
		a.ring[a.write] = x

		a.write++
		if a.write == a.size {
			a.write = 0
		}
	}
}

// WriteMixed appends the average of the given channels.
func (a *Analyser) WriteMixed(channels [][]float64, frames int) {
	if len(channels) == 0 {
		return
	}

	inv := 1 / float64(len(channels))

	for i := range frames {
		sum := 0.0
		for _, ch := range channels {
			sum += ch[i]
		}

		a.ring[a.write] = sum * inv

		a.write++
		if a.write == a.size {
			a.write = 0
		}
	}
}

// Reset clears the window and the smoothed spectrum.
func (a *Analyser) Reset() {
	clear(a.ring)
	clear(a.smooth)
	a.write = 0
}

// FloatTimeDomainData copies the window, oldest sample first, into dst.
// At most FFTSize samples are written.
func (a *Analyser) FloatTimeDomainData(dst []float64) {
	n := min(len(dst), a.size)
	// Keep the newest samples when dst is shorter than the window.
	start := (a.write + a.size - n) % a.size

	for i := range n {
		dst[i] = a.ring[(start+i)%a.size]
	}
}

// ByteTimeDomainData writes the window scaled to 0..255, 128 being zero.
func (a *Analyser) ByteTimeDomainData(dst []byte) {
	n := min(len(dst), a.size)
	a.FloatTimeDomainData(a.frame[:n])

	for i, x := range a.frame[:n] {
		dst[i] = toByte(128 * (1 + x))
	}
}

// FloatFrequencyData computes a new smoothed spectrum and writes it in dB
// into dst. At most FrequencyBinCount values are written.
func (a *Analyser) FloatFrequencyData(dst []float64) error {
	err := a.analyse()
	if err != nil {
		return err
	}

	n := min(len(dst), len(a.smooth))
	for i := range n {
		dst[i] = linearToDB(a.smooth[i])
	}

	return nil
}

// ByteFrequencyData computes a new smoothed spectrum and maps the dB range
// [-100, -30] onto 0..255.
func (a *Analyser) ByteFrequencyData(dst []byte) error {
	err := a.analyse()
	if err != nil {
		return err
	}

	scale := 255 / (a.maxDB - a.minDB)

	n := min(len(dst), len(a.smooth))
	for i := range n {
		db := linearToDB(a.smooth[i])
		dst[i] = toByte(scale * (db - a.minDB))
	}

	return nil
}

func (a *Analyser) analyse() error {
	a.FloatTimeDomainData(a.frame)

	vecmath.MulBlockInPlace(a.frame, a.window)

	for i, x := range a.frame {
		a.in[i] = complex(x, 0)
	}

	err := a.plan.Forward(a.spec, a.in)
	if err != nil {
		return fmt.Errorf("analysis: fft: %w", err)
	}

	for i := range a.re {
		a.re[i] = real(a.spec[i])
		a.im[i] = imag(a.spec[i])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.size)
	for i, m := range a.mag {
		v := a.smoothing*a.smooth[i] + (1-a.smoothing)*m*norm
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}

		a.smooth[i] = v
	}

	return nil
}

func linearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}

func toByte(v float64) byte {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
