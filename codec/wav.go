// Package codec decodes input audio files into buffers and encodes
// rendered buffers as 16-bit PCM WAV.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

const (
	wavHeaderSize = 44
	bitsPerSample = 16
	formatPCM     = 1
)

var errEmptyBuffer = errors.New("codec: nil or empty buffer")

// Quantize maps a float sample to 16 bits: clamped to [-1, 1], negative
// values scaled by 32768, non-negative by 32767, rounded to nearest.
func Quantize(x float64) int16 {
	if math.IsNaN(x) {
		return 0
	}

	x = math.Max(-1, math.Min(1, x))
	if x < 0 {
		return int16(math.Round(x * 32768))
	}

	return int16(math.Round(x * 32767))
}

// EncodeWAV encodes buf as a canonical 44-byte-header PCM WAV with 16-bit
// little-endian samples interleaved by channel.
func EncodeWAV(buf *buffer.Buffer) ([]byte, error) {
	if buf == nil || buf.NumChannels() == 0 {
		return nil, errEmptyBuffer
	}

	channels := buf.NumChannels()
	frames := buf.Len()
	sampleRate := int(math.Round(buf.SampleRate()))

	dataSize := frames * channels * 2
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	if uint64(dataSize)+wavHeaderSize-8 > math.MaxUint32 {
		return nil, fmt.Errorf("codec: %d frames exceed the WAV size limit", frames)
	}

	out := make([]byte, wavHeaderSize+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], formatPCM)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))

	src := buf.Channels()
	pos := wavHeaderSize

	for i := range frames {
		for _, ch := range src {
			binary.LittleEndian.PutUint16(out[pos:], uint16(Quantize(ch[i])))
			pos += 2
		}
	}

	return out, nil
}

// WriteWAVFile writes buf to path as 16-bit PCM WAV, with the same
// quantization as EncodeWAV.
func WriteWAVFile(path string, buf *buffer.Buffer) (err error) {
	if buf == nil || buf.NumChannels() == 0 {
		return errEmptyBuffer
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("codec: %w", cerr)
		}
	}()

	channels := buf.NumChannels()
	sampleRate := int(math.Round(buf.SampleRate()))

	data := make([]int, buf.Len()*channels)
	for c, ch := range buf.Channels() {
		for i, x := range ch {
			data[i*channels+c] = int(Quantize(x))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, bitsPerSample, channels, formatPCM)

	err = enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitsPerSample,
	})
	if err != nil {
		return fmt.Errorf("codec: write %s: %w", path, err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("codec: write %s: %w", path, err)
	}

	return nil
}
