// Package audio loads the mono waveforms that feature extraction runs on.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/wav"
)

// DefaultMaxWavValue is the full-scale divisor matching 16-bit PCM input.
const DefaultMaxWavValue = 32768.0

// ErrFormatMismatch is returned when a decoded WAV does not match the expected format.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// LoadOptions control decoding and scaling of input waveforms.
type LoadOptions struct {
	// SampleRate is the expected sample rate. Zero disables the check.
	SampleRate int
	// MaxWavValue divides raw sample values, so 32768 maps 16-bit full
	// scale to [-1, 1]. Zero keeps the decoder's native scaling.
	MaxWavValue float64
	// PeakNorm rescales samples by the absolute peak after division.
	PeakNorm bool
}

// Signal is a mono waveform with its sample rate.
type Signal struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}

	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Slice returns a copy of the signal between begin and end seconds,
// clamped to the signal bounds.
func (s *Signal) Slice(begin, end float64) *Signal {
	if s == nil {
		return nil
	}

	lo := int(math.Round(begin * float64(s.SampleRate)))
	hi := int(math.Round(end * float64(s.SampleRate)))

	if lo < 0 {
		lo = 0
	}
	if hi > len(s.Samples) {
		hi = len(s.Samples)
	}
	if hi < lo {
		hi = lo
	}

	return &Signal{
		Samples:    append([]float32(nil), s.Samples[lo:hi]...),
		SampleRate: s.SampleRate,
	}
}

// Load reads and decodes a mono WAV file.
func Load(path string, opts LoadOptions) (*Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	sig, err := Decode(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sig, nil
}

// Decode decodes WAV bytes and returns scaled float32 PCM samples.
// Input must be mono; the sample rate is validated when the options ask for it.
func Decode(data []byte, opts LoadOptions) (*Signal, error) {
	if len(data) == 0 {
		return nil, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	if dec.NumChans != 1 {
		return nil, fmt.Errorf("%w: channels %d, want mono", ErrFormatMismatch, dec.NumChans)
	}
	if opts.SampleRate > 0 && int(dec.SampleRate) != opts.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, dec.SampleRate, opts.SampleRate)
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrFormatMismatch, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	samples := buf.Data

	// The decoder yields [-1, 1]; undo its native full scale so the
	// configured divisor applies to raw sample values.
	if opts.MaxWavValue > 0 {
		fullScale := float64(int64(1) << (dec.BitDepth - 1))
		if scale := fullScale / opts.MaxWavValue; scale != 1 {
			for i := range samples {
				samples[i] = float32(float64(samples[i]) * scale)
			}
		}
	}

	if opts.PeakNorm {
		var peak float32

		for _, v := range samples {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}

		if peak > 0 {
			for i := range samples {
				samples[i] /= peak
			}
		}
	}

	return &Signal{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}
