// Package buffer provides the planar multi-channel sample buffer that
// decoded audio, offline renders and impulse responses are stored in.
// Channels are plain []float64 slices so DSP code can work on them
// directly.
package buffer
