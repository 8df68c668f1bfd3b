// Package trim shrinks leading and trailing silence in aligned utterances.
// Trimming re-slices the mel tensor, the duration sequence and every pitch
// resolution together so the length invariants survive.
package trim

import (
	"fmt"
	"math"

	"github.com/dan-wells/FastPitch/internal/align"
	"github.com/dan-wells/FastPitch/internal/dataset"
)

// Policy configures silence trimming. KeepFrames is the residual silence
// length after trimming; 0 removes the silence symbol entirely.
type Policy struct {
	KeepFrames int
}

// KeepFrames converts a residual silence length in seconds to frames.
func KeepFrames(seconds float64, sampleRate, hopLength int) int {
	return int(math.Round(seconds * float64(sampleRate) / float64(hopLength)))
}

// Apply trims silence from an utterance and returns a new record, leaving
// the input untouched. Only Silence-labeled symbols in the first or last
// position are trimmed; the tier relabeling guarantees there is at most one
// of each, and interior pauses carry a different label. The returned record
// satisfies sum(Durations) == FrameCount or an error names the utterance.
func Apply(u *dataset.Utterance, policy Policy) (*dataset.Utterance, error) {
	if err := validate(u); err != nil {
		return nil, err
	}

	if policy.KeepFrames < 0 {
		return nil, fmt.Errorf("negative residual silence length %d", policy.KeepFrames)
	}

	keep := policy.KeepFrames
	n := len(u.Symbols)
	frames := u.FrameCount()

	durs := append([]int(nil), u.Durations...)
	drop := make([]bool, n)

	leadTrim := 0
	if u.Symbols[0] == align.Silence {
		leadTrim = max(0, durs[0]-keep)
		durs[0] -= leadTrim

		if keep == 0 {
			drop[0] = true
		}
	}

	trailTrim := 0
	if last := n - 1; last > 0 && u.Symbols[last] == align.Silence {
		trailTrim = max(0, durs[last]-keep)
		durs[last] -= trailTrim

		if keep == 0 {
			drop[last] = true
		}
	}

	out := &dataset.Utterance{
		ID:        u.ID,
		AudioPath: u.AudioPath,
		Text:      u.Text,
		Start:     u.Start,
		End:       u.End,
	}

	for i := 0; i < n; i++ {
		if drop[i] {
			continue
		}

		out.Symbols = append(out.Symbols, u.Symbols[i])
		out.Durations = append(out.Durations, durs[i])

		if u.PitchSymbol != nil {
			out.PitchSymbol = append(out.PitchSymbol, u.PitchSymbol[i])
		}
		if u.PitchSubSymbol != nil {
			out.PitchSubSymbol = append(out.PitchSubSymbol, u.PitchSubSymbol[3*i:3*(i+1)]...)
		}
	}

	if len(out.Symbols) == 0 {
		return nil, fmt.Errorf("%s: utterance is entirely silence", u.ID)
	}

	start := leadTrim
	end := frames - trailTrim

	mel, err := u.Mel.Narrow(1, int64(start), int64(end-start))
	if err != nil {
		return nil, fmt.Errorf("%s: slice mel: %w", u.ID, err)
	}

	out.Mel = mel

	if u.PitchMel != nil {
		out.PitchMel = append([]float32(nil), u.PitchMel[start:end]...)
	}

	if sum := sumInts(out.Durations); sum != out.FrameCount() {
		return nil, fmt.Errorf("%s: %w: trimmed durations cover %d frames, mel has %d",
			u.ID, align.ErrLengthMismatch, sum, out.FrameCount())
	}

	return out, nil
}

// validate checks the cross-array invariants Apply relies on. Pitch arrays
// are optional; when present they must match the resolution they summarize.
func validate(u *dataset.Utterance) error {
	if u == nil || len(u.Symbols) == 0 {
		return fmt.Errorf("no symbols to trim")
	}
	if u.Mel == nil {
		return fmt.Errorf("%s: no mel to trim against", u.ID)
	}
	if len(u.Durations) != len(u.Symbols) {
		return fmt.Errorf("%s: %d durations for %d symbols", u.ID, len(u.Durations), len(u.Symbols))
	}

	frames := u.FrameCount()
	if sum := sumInts(u.Durations); sum != frames {
		return fmt.Errorf("%s: %w: durations cover %d frames, mel has %d", u.ID, align.ErrLengthMismatch, sum, frames)
	}

	if u.PitchMel != nil && len(u.PitchMel) != frames {
		return fmt.Errorf("%s: frame pitch has %d entries, mel has %d frames", u.ID, len(u.PitchMel), frames)
	}
	if u.PitchSymbol != nil && len(u.PitchSymbol) != len(u.Symbols) {
		return fmt.Errorf("%s: symbol pitch has %d entries for %d symbols", u.ID, len(u.PitchSymbol), len(u.Symbols))
	}
	if u.PitchSubSymbol != nil && len(u.PitchSubSymbol) != 3*len(u.Symbols) {
		return fmt.Errorf("%s: sub-symbol pitch has %d entries for %d symbols", u.ID, len(u.PitchSubSymbol), len(u.Symbols))
	}

	return nil
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}

	return total
}
