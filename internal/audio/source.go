package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const clipBitDepth = 16

// Source is a decoded mono recording.
type Source struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the recording in seconds.
func (s *Source) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Slice returns the samples covering [start, end) seconds.
func (s *Source) Slice(start, end float64) ([]float32, error) {
	lo := int(start * float64(s.SampleRate))
	hi := int(end * float64(s.SampleRate))
	if hi > len(s.Samples) {
		hi = len(s.Samples)
	}
	if lo < 0 || lo >= hi {
		return nil, fmt.Errorf("empty slice for %.2fs-%.2fs", start, end)
	}
	return s.Samples[lo:hi], nil
}

// Load decodes a PCM WAV file, mixing all channels down to mono.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConversionFailedError{Path: path, Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, &ConversionFailedError{Path: path, Err: errors.New("not a valid WAV file")}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &ConversionFailedError{Path: path, Err: fmt.Errorf("read PCM: %w", err)}
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, &ConversionFailedError{Path: path, Err: errors.New("missing sample rate")}
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth == 0 {
		bitDepth = clipBitDepth
	}

	return &Source{
		Samples:    downmix(buf.Data, channels, bitDepth),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// downmix averages interleaved integer PCM frames into [-1, 1] floats.
func downmix(data []int, channels, bitDepth int) []float32 {
	scale := float64(int(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = scale
	}

	frames := len(data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// WriteClip encodes mono samples as a 16-bit PCM WAV file at path.
func WriteClip(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}

	data := make([]int, len(samples))
	maxVal := float32(int(1)<<(clipBitDepth-1) - 1)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(v * maxVal)
	}

	enc := wav.NewEncoder(f, sampleRate, clipBitDepth, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: clipBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode clip: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize clip: %w", err)
	}
	return f.Close()
}
