package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// ErrDecodeFailure is returned for unsupported or corrupt input.
var ErrDecodeFailure = errors.New("codec: decode failure")

// Format identifies a container.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Sniff guesses the container from the leading bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Decode decodes WAV or MP3 bytes into a buffer with samples in [-1, 1].
func Decode(data []byte) (*buffer.Buffer, error) {
	switch Sniff(data) {
	case FormatWAV:
		return decodeWAV(data)
	case FormatMP3:
		return decodeMP3(data)
	default:
		return nil, fmt.Errorf("%w: unrecognized format", ErrDecodeFailure)
	}
}

// DecodeFile reads and decodes path.
func DecodeFile(path string) (*buffer.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	return Decode(data)
}

// WAV format tags.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

func decodeWAV(data []byte) (*buffer.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrDecodeFailure)
	}

	isFloat := dec.WavAudioFormat == wavFormatFloat

	switch {
	case dec.WavAudioFormat == wavFormatPCM:
	case isFloat && dec.BitDepth == 32:
	default:
		return nil, fmt.Errorf("%w: wav: unsupported format tag %d at %d bits",
			ErrDecodeFailure, dec.WavAudioFormat, dec.BitDepth)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %w", ErrDecodeFailure, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 || pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: wav: missing format", ErrDecodeFailure)
	}

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels

	buf, err := buffer.New(channels, frames, float64(pcm.Format.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %w", ErrDecodeFailure, err)
	}

	// 8-bit WAV is unsigned; wider depths are signed.
	offset, scale := 0.0, float64(int64(1)<<(bitDepth-1))
	if bitDepth == 8 {
		offset = 128
	}

	out := buf.Channels()
	for i := range frames {
		for c := range channels {
			v := pcm.Data[i*channels+c]
			if isFloat {
				// go-audio hands float samples over as their raw bits.
				out[c][i] = float64(math.Float32frombits(uint32(int32(v))))
				continue
			}

			out[c][i] = (float64(v) - offset) / scale
		}
	}

	return buf, nil
}

func decodeMP3(data []byte) (*buffer.Buffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrDecodeFailure, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrDecodeFailure, err)
	}

	// go-mp3 always yields interleaved stereo int16.
	const channels = 2

	frames := len(raw) / (2 * channels)
	if frames == 0 {
		return nil, fmt.Errorf("%w: mp3: no frames", ErrDecodeFailure)
	}

	buf, err := buffer.New(channels, frames, float64(dec.SampleRate()))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrDecodeFailure, err)
	}

	left, right := buf.Channel(0), buf.Channel(1)
	for i := range frames {
		l := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		r := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		left[i] = float64(l) / 32768
		right[i] = float64(r) / 32768
	}

	return buf, nil
}
