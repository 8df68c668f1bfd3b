// Package pitch extracts fundamental-frequency contours from waveforms and
// aggregates them at frame, symbol, and sub-symbol resolution, with
// corpus-wide two-phase normalization.
package pitch

import "math"

// Tracker estimates a fundamental-frequency track from a mono waveform.
// The result carries one value per analysis frame spaced step seconds
// apart, with 0 marking unvoiced frames.
type Tracker interface {
	Track(samples []float32, sampleRate int, step float64) []float32
}

// AutocorrTracker finds per-frame pitch as the lag maximizing the
// normalized autocorrelation of a mean-removed analysis window. The window
// spans three periods of MinHz, so the frame count for a signal of duration
// d is floor((d - 3/MinHz)/step) + 1, with the frames centered in the
// signal.
type AutocorrTracker struct {
	MinHz float64
	MaxHz float64
	// VoicingThreshold is the minimum normalized correlation for a frame
	// to count as voiced.
	VoicingThreshold float64
}

// DefaultTracker returns a tracker with the bounds the pipeline was tuned
// against: 75-600 Hz and a 0.45 voicing threshold.
func DefaultTracker() *AutocorrTracker {
	return &AutocorrTracker{MinHz: 75, MaxHz: 600, VoicingThreshold: 0.45}
}

// Track implements Tracker.
func (t *AutocorrTracker) Track(samples []float32, sampleRate int, step float64) []float32 {
	if len(samples) == 0 || sampleRate <= 0 || step <= 0 {
		return nil
	}

	window := 3.0 / t.MinHz
	duration := float64(len(samples)) / float64(sampleRate)

	numFrames := int((duration-window)/step) + 1
	if numFrames < 1 {
		return nil
	}

	first := 0.5 * (duration - float64(numFrames-1)*step)
	winSamples := int(math.Round(window * float64(sampleRate)))
	minLag := int(float64(sampleRate) / t.MaxHz)
	maxLag := int(math.Ceil(float64(sampleRate) / t.MinHz))

	buf := make([]float64, winSamples)
	out := make([]float32, numFrames)

	for i := range out {
		center := first + float64(i)*step
		lo := int(math.Round(center*float64(sampleRate))) - winSamples/2

		hi := lo + winSamples
		if lo < 0 {
			lo = 0
		}
		if hi > len(samples) {
			hi = len(samples)
		}

		out[i] = t.frequency(fillMeanRemoved(buf, samples[lo:hi]), sampleRate, minLag, maxLag)
	}

	return out
}

// fillMeanRemoved copies window into buf with its mean subtracted, so a DC
// offset cannot masquerade as perfect correlation at every lag.
func fillMeanRemoved(buf []float64, window []float32) []float64 {
	buf = buf[:0]

	var mean float64
	for _, v := range window {
		mean += float64(v)
	}
	if len(window) > 0 {
		mean /= float64(len(window))
	}

	for _, v := range window {
		buf = append(buf, float64(v)-mean)
	}

	return buf
}

// frequency finds the best pitch candidate in one analysis window, or 0
// when the window is unvoiced.
func (t *AutocorrTracker) frequency(window []float64, sampleRate, minLag, maxLag int) float32 {
	n := len(window)
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag > maxLag {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0

	for lag := minLag; lag <= maxLag; lag++ {
		var corr, energy1, energy2 float64
		for i := lag; i < n; i++ {
			corr += window[i] * window[i-lag]
			energy1 += window[i] * window[i]
			energy2 += window[i-lag] * window[i-lag]
		}

		if energy1 < 1e-10 || energy2 < 1e-10 {
			continue
		}

		normCorr := corr / math.Sqrt(energy1*energy2)

		// Bias toward shorter lags to avoid octave errors.
		normCorr *= 1.0 - 0.001*float64(lag-minLag)

		if normCorr > bestCorr {
			bestCorr = normCorr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr < t.VoicingThreshold {
		return 0
	}

	return float32(float64(sampleRate) / float64(bestLag))
}
