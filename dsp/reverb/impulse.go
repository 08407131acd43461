// Package reverb synthesizes the noise impulse responses used by the
// convolution reverb and computes their playback normalization.
package reverb

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
	"github.com/cwbudde/algo-fxchain/dsp/core"
)

// Channels is the channel count of generated impulse responses.
const Channels = 2

const (
	// gainCalibrationDB brings a normalized impulse response to roughly
	// the perceived loudness of the unprocessed signal.
	gainCalibrationDB         = -58.0
	gainCalibrationSampleRate = 44100.0
	minPower                  = 0.000125
)

// ErrInvalidImpulse is returned for non-positive durations, rates or
// exponents.
var ErrInvalidImpulse = errors.New("reverb: invalid impulse parameters")

// Generate returns a stereo buffer of duration*sampleRate frames where
// sample i is uniform noise in [-1, 1) shaped by (1 - i/len)^decay.
// Channels are filled one after the other from rng.
func Generate(rng *rand.Rand, sampleRate, duration, decay float64) (*buffer.Buffer, error) {
	frames := int(sampleRate * duration)
	if frames <= 0 || !core.IsFinite(sampleRate*duration) || decay < 0 || !core.IsFinite(decay) {
		return nil, fmt.Errorf("%w: rate %v, duration %v, decay %v", ErrInvalidImpulse, sampleRate, duration, decay)
	}

	ir, err := buffer.New(Channels, frames, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	length := float64(frames)
	for c := range Channels {
		ch := ir.Channel(c)
		for i := range ch {
			ch[i] = (rng.Float64()*2 - 1) * math.Pow(1-float64(i)/length, decay)
		}
	}

	return ir, nil
}

// NormalizationScale returns the gain applied to an impulse response so
// that convolving with it keeps an RMS-calibrated output level: the
// inverse RMS of all samples, calibrated to -58 dB and scaled for the
// sample rate.
func NormalizationScale(ir *buffer.Buffer) float64 {
	if ir == nil || ir.Len() == 0 {
		return 1
	}

	power := 0.0
	for _, ch := range ir.Channels() {
		for _, v := range ch {
			power += v * v
		}
	}

	power = math.Sqrt(power / float64(ir.NumChannels()*ir.Len()))
	if !core.IsFinite(power) || power < minPower {
		power = minPower
	}

	scale := 1 / power
	scale *= core.DBToLinear(gainCalibrationDB)
	scale *= gainCalibrationSampleRate / ir.SampleRate()

	return scale
}
