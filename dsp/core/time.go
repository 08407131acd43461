package core

import "math"

// FramesToSeconds converts a frame count to seconds.
func FramesToSeconds(frames int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	return float64(frames) / sampleRate
}

// OnePoleCoeff returns the per-sample decay factor of a one-pole smoother
// that covers 1-1/e of a step within timeConstant seconds. A zero or
// negative time constant returns 0 (jump immediately).
func OnePoleCoeff(timeConstant, sampleRate float64) float64 {
	if timeConstant <= 0 || sampleRate <= 0 || !IsFinite(timeConstant) {
		return 0
	}

	return math.Exp(-1 / (timeConstant * sampleRate))
}
