package mel

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3.0
	melLogMinHz   = 1000.0
	melLogMinMel  = melLogMinHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melLogMinHz {
		return hz / melLinearStep
	}

	return melLogMinMel + math.Log(hz/melLogMinHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melLogMinMel {
		return mel * melLinearStep
	}

	return melLogMinHz * math.Exp(melLogStep*(mel-melLogMinMel))
}

// melFilterbank builds triangular filters over FFT bins with Slaney area
// normalization, so each filter integrates to roughly constant energy.
func melFilterbank(fftSize, channels, sampleRate int, fmin, fmax float64) [][]float64 {
	numBins := fftSize/2 + 1

	binHz := make([]float64, numBins)
	for k := range binHz {
		binHz[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// channels+2 mel points: band edges plus centers.
	melMin := hzToMel(fmin)
	melMax := hzToMel(fmax)
	edges := make([]float64, channels+2)
	for i := range edges {
		edges[i] = melToHz(melMin + float64(i)*(melMax-melMin)/float64(channels+1))
	}

	banks := make([][]float64, channels)

	for m := range banks {
		banks[m] = make([]float64, numBins)
		lo, center, hi := edges[m], edges[m+1], edges[m+2]
		enorm := 2.0 / (hi - lo)

		for k, freq := range binHz {
			lower := (freq - lo) / (center - lo)
			upper := (hi - freq) / (hi - center)

			w := math.Min(lower, upper)
			if w < 0 {
				w = 0
			}

			banks[m][k] = w * enorm
		}
	}

	return banks
}

// paddedHannWindow builds a periodic Hann window of winLength centered in a
// zero buffer of fftSize.
func paddedHannWindow(winLength, fftSize int) []float64 {
	out := make([]float64, fftSize)
	offset := (fftSize - winLength) / 2

	for i := 0; i < winLength; i++ {
		out[offset+i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(winLength))
	}

	return out
}
