// Package dataset handles the on-disk layout of a preparation run: the
// input filelist, the directory-per-category artifact store, pitch
// normalization stats, and the training metadata file.
package dataset

import "github.com/dan-wells/FastPitch/internal/tensor"

// Utterance is one training example with its derived targets. Arrays are
// owned by the processing step for that utterance; the pitch accumulator
// keeps its own copies.
type Utterance struct {
	ID        string
	AudioPath string
	Text      string

	// Symbols and Durations have equal length and sum(Durations) matches
	// the mel frame count once a duration strategy has run.
	Symbols   []string
	Durations []int

	Mel *tensor.Tensor

	PitchMel       []float32
	PitchSymbol    []float32
	PitchSubSymbol []float32

	// Alignment span in seconds. Zero unless durations came from a
	// TextGrid.
	Start float64
	End   float64
}

// FrameCount returns the number of acoustic frames in the mel, the
// authoritative length every other array reconciles against.
func (u *Utterance) FrameCount() int {
	if u.Mel == nil {
		return 0
	}

	return int(u.Mel.Dim(1))
}
