// Package dynamics implements the stereo-linked soft-knee compressor used
// by the compressor node.
package dynamics

import (
	"errors"
	"fmt"
	"math"
)

const (
	defaultThresholdDB = -24.0
	defaultRatio       = 12.0
	defaultKneeDB      = 30.0
	defaultAttack      = 0.003
	defaultRelease     = 0.25

	minRatio   = 1.0
	maxRatio   = 20.0
	minKneeDB  = 0.0
	maxKneeDB  = 40.0
	maxAttack  = 1.0
	minRelease = 0.001
	maxRelease = 1.0

	// makeupExponent shapes the automatic makeup gain applied on top of
	// the static curve: makeup = (1/g(0 dBFS))^makeupExponent.
	makeupExponent = 0.6

	// log2Of10Div20 converts decibels to the log2 domain: log2(10) / 20.
	log2Of10Div20 = 0.166096404744
)

// ErrInvalidParameter is returned by setters for out-of-range values.
var ErrInvalidParameter = errors.New("dynamics: invalid parameter")

// Metrics holds metering information.
type Metrics struct {
	InputPeak       float64 // Maximum detector level since last reset
	OutputPeak      float64 // Maximum output level since last reset
	GainReductionDB float64 // Current reduction, <= 0
}

// Compressor is a log2-domain soft-knee compressor with a peak envelope
// follower. All channels of a frame share one detector so the stereo
// image does not shift under compression.
//
// Compressor is not safe for concurrent use.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attack      float64
	release     float64

	sampleRate float64

	envelope float64

	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
	makeupGainLin    float64

	metrics Metrics
}

// New creates a compressor with a 30 dB knee, automatic makeup gain and
// the given sample rate.
func New(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidParameter, sampleRate)
	}

	c := &Compressor{
		thresholdDB: defaultThresholdDB,
		ratio:       defaultRatio,
		kneeDB:      defaultKneeDB,
		attack:      defaultAttack,
		release:     defaultRelease,
		sampleRate:  sampleRate,
	}

	c.updateCoefficients()

	return c, nil
}

// SetThreshold sets the threshold in dBFS, -100..0.
func (c *Compressor) SetThreshold(dB float64) error {
	if dB < -100 || dB > 0 || math.IsNaN(dB) {
		return fmt.Errorf("%w: threshold %v dB", ErrInvalidParameter, dB)
	}

	c.thresholdDB = dB
	c.updateCoefficients()

	return nil
}

// SetRatio sets the compression ratio, 1..20.
func (c *Compressor) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) {
		return fmt.Errorf("%w: ratio %v", ErrInvalidParameter, ratio)
	}

	c.ratio = ratio
	c.updateCoefficients()

	return nil
}

// SetKnee sets the soft-knee width in dB, 0..40. Zero is a hard knee.
func (c *Compressor) SetKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || math.IsNaN(kneeDB) {
		return fmt.Errorf("%w: knee %v dB", ErrInvalidParameter, kneeDB)
	}

	c.kneeDB = kneeDB
	c.updateCoefficients()

	return nil
}

// SetAttack sets the attack time in seconds, 0..1. Zero follows peaks
// instantly.
func (c *Compressor) SetAttack(seconds float64) error {
	if seconds < 0 || seconds > maxAttack || math.IsNaN(seconds) {
		return fmt.Errorf("%w: attack %v s", ErrInvalidParameter, seconds)
	}

	c.attack = seconds
	c.updateTimeConstants()

	return nil
}

// SetRelease sets the release time in seconds, 0.001..1.
func (c *Compressor) SetRelease(seconds float64) error {
	if seconds < minRelease || seconds > maxRelease || math.IsNaN(seconds) {
		return fmt.Errorf("%w: release %v s", ErrInvalidParameter, seconds)
	}

	c.release = seconds
	c.updateTimeConstants()

	return nil
}

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Knee returns the knee width in dB.
func (c *Compressor) Knee() float64 { return c.kneeDB }

// Attack returns the attack time in seconds.
func (c *Compressor) Attack() float64 { return c.attack }

// Release returns the release time in seconds.
func (c *Compressor) Release() float64 { return c.release }

// MakeupGain returns the automatic makeup gain as a linear factor.
func (c *Compressor) MakeupGain() float64 { return c.makeupGainLin }

// ProcessBlock compresses n frames of the given channels in place.
func (c *Compressor) ProcessBlock(channels [][]float64, n int) {
	for i := range n {
		level := 0.0
		for _, ch := range channels {
			if a := math.Abs(ch[i]); a > level {
				level = a
			}
		}

		gain := c.track(level) * c.makeupGainLin

		out := 0.0
		for _, ch := range channels {
			ch[i] *= gain
			if a := math.Abs(ch[i]); a > out {
				out = a
			}
		}

		if out > c.metrics.OutputPeak {
			c.metrics.OutputPeak = out
		}
	}
}

// ProcessSample compresses a single mono sample.
func (c *Compressor) ProcessSample(x float64) float64 {
	return x * c.track(math.Abs(x)) * c.makeupGainLin
}

// track advances the envelope with one detector level and returns the
// curve gain for it.
func (c *Compressor) track(level float64) float64 {
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}

	if level > c.metrics.InputPeak {
		c.metrics.InputPeak = level
	}

	gain := c.curveGain(c.envelope)
	c.metrics.GainReductionDB = 20 * math.Log10(gain)

	return gain
}

// OutputLevel returns the steady-state output level for an input
// magnitude, including makeup gain.
func (c *Compressor) OutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)

	return inputMagnitude * c.curveGain(inputMagnitude) * c.makeupGainLin
}

// Reset clears the envelope follower and metrics.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.metrics = Metrics{}
}

// Metrics returns current metering values.
func (c *Compressor) Metrics() Metrics {
	return c.metrics
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20
	c.kneeWidthLog2 = c.kneeDB * log2Of10Div20

	if c.kneeDB > 0 {
		c.invKneeWidthLog2 = 1.0 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	c.makeupGainLin = math.Pow(1/c.curveGain(1.0), makeupExponent)

	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	// Attack: 1 - exp(-ln2 / (attack * sample_rate)); zero attack jumps.
	if c.attack > 0 {
		c.attackCoeff = 1.0 - math.Exp(-math.Ln2/(c.attack*c.sampleRate))
	} else {
		c.attackCoeff = 1
	}

	// Release: exp(-ln2 / (release * sample_rate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.release * c.sampleRate))
}

// curveGain computes the static gain for a detector level using the
// log2-domain soft knee centred on the threshold.
func (c *Compressor) curveGain(level float64) float64 {
	if level <= 0 {
		return 1.0
	}

	overshoot := mathLog2(level) - c.thresholdLog2

	if c.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1.0
		}

		return mathPower2(-overshoot * (1.0 - 1.0/c.ratio))
	}

	halfWidth := c.kneeWidthLog2 * 0.5

	var effective float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effective = overshoot
	default:
		// Quadratic blend across the knee: (overshoot + w/2)^2 / (2w)
		scratch := overshoot + halfWidth
		effective = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return mathPower2(-effective * (1.0 - 1.0/c.ratio))
}
