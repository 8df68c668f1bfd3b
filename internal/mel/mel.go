// Package mel computes log-mel spectrograms from mono waveforms.
//
// The output matches the reference acoustic frontend: reflection-padded
// centered frames, a periodic Hann window, magnitude spectra projected
// through a Slaney-normalized filterbank, and a natural log clamped at 1e-5.
package mel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/dan-wells/FastPitch/internal/tensor"
)

// logFloor clamps filterbank energies before the log so silence maps to a
// finite value.
const logFloor = 1e-5

// Options configure a spectrogram extractor.
type Options struct {
	SampleRate   int
	FilterLength int // FFT size
	HopLength    int
	WinLength    int
	Channels     int // mel bands
	FMin         float64
	FMax         float64 // 0 means half the sample rate
}

// Extractor turns waveforms into log-mel spectrograms. It is safe for
// concurrent use once constructed.
type Extractor struct {
	opts    Options
	window  []float64   // zero-padded to FilterLength
	banks   [][]float64 // [Channels][FilterLength/2+1]
	fft     *fourier.FFT
	numBins int
}

// NewExtractor validates options and precomputes the window and filterbank.
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("mel: sample rate must be positive, got %d", opts.SampleRate)
	}
	if opts.FilterLength <= 0 {
		return nil, fmt.Errorf("mel: filter length must be positive, got %d", opts.FilterLength)
	}
	if opts.HopLength <= 0 {
		return nil, fmt.Errorf("mel: hop length must be positive, got %d", opts.HopLength)
	}
	if opts.WinLength <= 0 || opts.WinLength > opts.FilterLength {
		return nil, fmt.Errorf("mel: window length %d must be in (0, %d]", opts.WinLength, opts.FilterLength)
	}
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("mel: channel count must be positive, got %d", opts.Channels)
	}

	if opts.FMax <= 0 {
		opts.FMax = float64(opts.SampleRate) / 2
	}

	if opts.FMin < 0 || opts.FMin >= opts.FMax {
		return nil, fmt.Errorf("mel: invalid frequency range [%g, %g]", opts.FMin, opts.FMax)
	}
	if opts.FMax > float64(opts.SampleRate)/2 {
		return nil, fmt.Errorf("mel: fmax %g exceeds Nyquist %g", opts.FMax, float64(opts.SampleRate)/2)
	}

	return &Extractor{
		opts:    opts,
		window:  paddedHannWindow(opts.WinLength, opts.FilterLength),
		banks:   melFilterbank(opts.FilterLength, opts.Channels, opts.SampleRate, opts.FMin, opts.FMax),
		fft:     fourier.NewFFT(opts.FilterLength),
		numBins: opts.FilterLength/2 + 1,
	}, nil
}

// Channels returns the number of mel bands per frame.
func (e *Extractor) Channels() int {
	return e.opts.Channels
}

// Frames returns the number of spectrogram frames produced for a waveform
// of the given sample count.
func (e *Extractor) Frames(numSamples int) int {
	if numSamples < 0 {
		return 0
	}

	return numSamples/e.opts.HopLength + 1
}

// Spectrogram computes the log-mel spectrogram of samples as a
// [Channels, Frames] tensor.
func (e *Extractor) Spectrogram(samples []float32) (*tensor.Tensor, error) {
	pad := e.opts.FilterLength / 2
	if len(samples) <= pad {
		return nil, fmt.Errorf("mel: %d samples too short for reflection padding of %d", len(samples), pad)
	}

	padded := reflectPad(samples, pad)
	numFrames := e.Frames(len(samples))

	channels := e.opts.Channels
	out := make([]float32, channels*numFrames)

	frame := make([]float64, e.opts.FilterLength)
	magnitudes := make([]float64, e.numBins)

	for f := 0; f < numFrames; f++ {
		start := f * e.opts.HopLength
		for i := range frame {
			frame[i] = padded[start+i] * e.window[i]
		}

		coeffs := e.fft.Coefficients(nil, frame)
		for k := range magnitudes {
			magnitudes[k] = math.Hypot(real(coeffs[k]), imag(coeffs[k]))
		}

		for c := 0; c < channels; c++ {
			sum := 0.0
			for k, w := range e.banks[c] {
				sum += w * magnitudes[k]
			}

			if sum < logFloor {
				sum = logFloor
			}

			out[c*numFrames+f] = float32(math.Log(sum))
		}
	}

	return tensor.New(out, []int64{int64(channels), int64(numFrames)})
}

// reflectPad mirrors pad samples around each end without repeating the
// edge sample, widened to float64 for the FFT.
func reflectPad(samples []float32, pad int) []float64 {
	n := len(samples)
	out := make([]float64, n+2*pad)

	for i := 0; i < pad; i++ {
		out[i] = float64(samples[pad-i])
	}
	for i, v := range samples {
		out[pad+i] = float64(v)
	}
	for i := 0; i < pad; i++ {
		out[pad+n+i] = float64(samples[n-2-i])
	}

	return out
}
