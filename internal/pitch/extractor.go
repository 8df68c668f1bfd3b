package pitch

import (
	"errors"
	"fmt"

	"github.com/dan-wells/FastPitch/internal/audio"
	"github.com/dan-wells/FastPitch/internal/seq"
)

// SubSymbolFactor is the number of pitch windows each symbol subdivides
// into for sub-symbol aggregation.
const SubSymbolFactor = 3

// stepSlack widens the tracker step so the raw track does not undershoot
// the mel length from window edge effects: the step is segment duration
// divided by melLen + stepSlack.
const stepSlack = 3

// maxLengthDrift is the largest tolerated difference between a vector's
// natural length and its target length when fitting.
const maxLengthDrift = 3

// Vectors holds one utterance's pitch at the three output resolutions.
// Unvoiced entries are exactly 0.
type Vectors struct {
	Mel       []float32 // one value per mel frame
	Symbol    []float32 // one value per symbol
	SubSymbol []float32 // SubSymbolFactor values per symbol
}

// Window restricts pitch tracking to a waveform sub-segment, in seconds.
// Alignment-derived durations cover only the aligned span, so the tracker
// must see exactly that audio.
type Window struct {
	Start float64
	End   float64
}

// Extractor turns a waveform plus its duration sequence into pitch vectors.
type Extractor struct {
	tracker Tracker
}

// NewExtractor creates an extractor. A nil tracker selects DefaultTracker.
func NewExtractor(tracker Tracker) *Extractor {
	if tracker == nil {
		tracker = DefaultTracker()
	}

	return &Extractor{tracker: tracker}
}

// Extract computes the three pitch vectors for one utterance. durs is the
// utterance's per-symbol duration sequence; its sum defines the target mel
// length. A non-nil win restricts tracking to that waveform segment.
func (x *Extractor) Extract(sig *audio.Signal, durs []int, win *Window) (Vectors, error) {
	if sig == nil || len(sig.Samples) == 0 {
		return Vectors{}, errors.New("empty waveform")
	}
	if len(durs) == 0 {
		return Vectors{}, errors.New("empty duration sequence")
	}

	target := 0
	for _, d := range durs {
		if d < 0 {
			return Vectors{}, fmt.Errorf("negative duration %d", d)
		}

		target += d
	}
	if target == 0 {
		return Vectors{}, errors.New("durations sum to zero frames")
	}

	segment := sig
	if win != nil {
		segment = sig.Slice(win.Start, win.End)
	}

	step := segment.Duration() / float64(target+stepSlack)
	if step <= 0 {
		return Vectors{}, fmt.Errorf("segment too short for %d frames", target)
	}

	track := x.tracker.Track(segment.Samples, segment.SampleRate, step)

	if drift := len(track) - target; drift > 1 || drift < -1 {
		return Vectors{}, fmt.Errorf("%w: tracked %d frames for %d mel frames", ErrTrackDeviation, len(track), target)
	}

	subDurs, err := subSymbolDurations(durs)
	if err != nil {
		return Vectors{}, err
	}

	melVec, err := fitLength(track, target)
	if err != nil {
		return Vectors{}, err
	}

	symbolVec, err := fitLength(aggregateSegments(track, durs), len(durs))
	if err != nil {
		return Vectors{}, err
	}

	subSymbolVec, err := fitLength(aggregateSegments(track, subDurs), SubSymbolFactor*len(durs))
	if err != nil {
		return Vectors{}, err
	}

	return Vectors{Mel: melVec, Symbol: symbolVec, SubSymbol: subSymbolVec}, nil
}

// aggregateSegments averages the voiced values of track inside each
// cumulative-duration window. A window with no voiced frames yields 0, not
// a mean of zeros.
func aggregateSegments(track []float32, durs []int) []float32 {
	out := make([]float32, len(durs))
	start := 0

	for i, d := range durs {
		end := start + d

		lo, hi := start, end
		if lo > len(track) {
			lo = len(track)
		}
		if hi > len(track) {
			hi = len(track)
		}

		var sum float64
		voiced := 0

		for _, v := range track[lo:hi] {
			if v != 0 {
				sum += float64(v)
				voiced++
			}
		}

		if voiced > 0 {
			out[i] = float32(sum / float64(voiced))
		}

		start = end
	}

	return out
}

// subSymbolDurations splits every duration into SubSymbolFactor near-equal
// parts, concatenated in order.
func subSymbolDurations(durs []int) ([]int, error) {
	out := make([]int, 0, SubSymbolFactor*len(durs))

	for _, d := range durs {
		parts, err := seq.Chunks(d, SubSymbolFactor)
		if err != nil {
			return nil, err
		}

		out = append(out, parts...)
	}

	return out, nil
}

// fitLength truncates or zero-pads vec to exactly length frames,
// tolerating at most maxLengthDrift frames of natural deviation.
func fitLength(vec []float32, length int) ([]float32, error) {
	if drift := len(vec) - length; drift > maxLengthDrift || drift < -maxLengthDrift {
		return nil, fmt.Errorf("vector length %d deviates from target %d by more than %d", len(vec), length, maxLengthDrift)
	}

	out := make([]float32, length)
	copy(out, vec)

	return out, nil
}
