package analysis

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
	"github.com/cwbudde/algo-fxchain/dsp/core"
	"github.com/cwbudde/algo-fxchain/dsp/filter/biquad"
	"github.com/cwbudde/algo-fxchain/dsp/filter/design"
)

const (
	// K-weighting stages from BS.1770.
	kShelfFreq = 1500.0
	kShelfGain = 4.0
	kHPFFreq   = 38.0

	momentaryWindow = 0.4
	shortTermWindow = 3.0
	gateStep        = 0.1

	absoluteGate = -70.0
	relativeGate = -10.0

	// SilenceLUFS is reported when nothing passes the gates.
	SilenceLUFS = -120.0
)

var errNoAudio = errors.New("analysis: nil buffer")

// LoudnessReport summarizes a rendered buffer.
type LoudnessReport struct {
	// Integrated is the gated programme loudness in LUFS.
	Integrated float64
	// MaxMomentary and MaxShortTerm are the loudest 400 ms and 3 s windows.
	MaxMomentary float64
	MaxShortTerm float64
	// PeakDB is the sample peak across channels in dBFS.
	PeakDB float64
}

// MeasureLoudness computes ITU-R BS.1770 loudness for buf. Every channel
// has unit weight. Buffers shorter than one momentary window report
// SilenceLUFS for the windowed values.
func MeasureLoudness(buf *buffer.Buffer) (LoudnessReport, error) {
	if buf == nil {
		return LoudnessReport{}, errNoAudio
	}

	rate := buf.SampleRate()
	frames := buf.Len()

	shelf := design.Design(design.HighShelf, kShelfFreq, kShelfGain, design.ShelfQ, rate)
	hpf := design.Highpass(kHPFFreq, design.ShelfQ, rate)

	// energy[i] is the channel-summed K-weighted energy of frames [0, i).
	energy := make([]float64, frames+1)
	weighted := make([]float64, frames)
	peak := 0.0

	for _, ch := range buf.Channels() {
		peak = math.Max(peak, core.Peak(ch))

		biquad.NewSection(shelf).ProcessBlockTo(weighted, ch)
		biquad.NewSection(hpf).ProcessBlockTo(weighted, weighted)

		acc := 0.0
		for i, x := range weighted {
			acc += x * x
			energy[i+1] += acc
		}
	}

	momentary := windowPowers(energy, rate, momentaryWindow)
	shortTerm := windowPowers(energy, rate, shortTermWindow)

	return LoudnessReport{
		Integrated:   gatedLoudness(momentary),
		MaxMomentary: maxLUFS(momentary),
		MaxShortTerm: maxLUFS(shortTerm),
		PeakDB:       levelDB(peak),
	}, nil
}

// windowPowers returns the mean-square power of windows of length seconds
// stepped every 100 ms.
func windowPowers(energy []float64, rate, length float64) []float64 {
	frames := len(energy) - 1
	size := int(math.Round(length * rate))
	step := max(int(math.Round(gateStep*rate)), 1)

	if size <= 0 || size > frames {
		return nil
	}

	out := make([]float64, 0, (frames-size)/step+1)
	for start := 0; start+size <= frames; start += step {
		out = append(out, (energy[start+size]-energy[start])/float64(size))
	}

	return out
}

func gatedLoudness(blocks []float64) float64 {
	sum, n := 0.0, 0

	for _, b := range blocks {
		if toLUFS(b) > absoluteGate {
			sum += b
			n++
		}
	}

	if n == 0 {
		return SilenceLUFS
	}

	threshold := toLUFS(sum/float64(n)) + relativeGate
	sum, n = 0, 0

	for _, b := range blocks {
		if l := toLUFS(b); l > absoluteGate && l > threshold {
			sum += b
			n++
		}
	}

	if n == 0 {
		return SilenceLUFS
	}

	return toLUFS(sum / float64(n))
}

func maxLUFS(blocks []float64) float64 {
	best := SilenceLUFS
	for _, b := range blocks {
		best = math.Max(best, toLUFS(b))
	}

	return best
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return SilenceLUFS
	}

	return math.Max(SilenceLUFS, -0.691+10*math.Log10(meanSquare))
}
