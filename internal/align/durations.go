package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/dan-wells/FastPitch/internal/seq"
	"github.com/dan-wells/FastPitch/internal/tensor"
)

// Labels assigned to silence intervals: leading and trailing silences become
// Silence, short pauses between words become ShortPause.
const (
	Silence    = "sil"
	ShortPause = "sp"
)

// silenceLabels are the labels forced aligners emit for non-speech
// intervals. Recent MFA versions write silence as an empty string.
var silenceLabels = map[string]bool{"sil": true, "sp": true, "spn": true, "": true}

// Alignment is the parsed phone tier of one utterance: relabeled phones,
// per-phone durations in frames, and the tier's time span in seconds.
type Alignment struct {
	Phones    []string
	Durations []int
	Start     float64
	End       float64
}

// ParseTier converts an interval tier into phones and frame durations.
//
// Interval durations use the ceiling difference ceil(end*sr/hop) -
// ceil(start*sr/hop) rather than rounding each endpoint independently, so
// adjacent intervals sharing a boundary never double-count or lose a frame.
func ParseTier(tier *Tier, sampleRate, hopLength int) (Alignment, error) {
	if sampleRate <= 0 || hopLength <= 0 {
		return Alignment{}, fmt.Errorf("invalid frame parameters: sample rate %d, hop %d", sampleRate, hopLength)
	}
	if len(tier.Intervals) == 0 {
		return Alignment{}, fmt.Errorf("tier %q has no intervals", tier.Name)
	}

	frameAt := func(sec float64) int {
		return int(math.Ceil(sec * float64(sampleRate) / float64(hopLength)))
	}

	out := Alignment{
		Phones:    make([]string, 0, len(tier.Intervals)),
		Durations: make([]int, 0, len(tier.Intervals)),
		Start:     tier.Intervals[0].Start,
		End:       tier.Intervals[len(tier.Intervals)-1].End,
	}

	for i, iv := range tier.Intervals {
		label := iv.Label
		if silenceLabels[label] {
			if i == 0 || i == len(tier.Intervals)-1 {
				label = Silence
			} else {
				label = ShortPause
			}
		}

		out.Phones = append(out.Phones, label)
		out.Durations = append(out.Durations, frameAt(iv.End)-frameAt(iv.Start))
	}

	return out, nil
}

// TextGridDurations reads an utterance's alignment file, parses the named
// tier, and verifies the durations against the mel length. Any discrepancy
// is fatal: the aligner saw different audio than the mel extractor did.
func TextGridDurations(path, tierName string, sampleRate, hopLength, melLen int) (Alignment, error) {
	tg, err := ReadTextGrid(path)
	if err != nil {
		return Alignment{}, err
	}

	tier, err := tg.Tier(tierName)
	if err != nil {
		return Alignment{}, fmt.Errorf("%s: %w", path, err)
	}

	out, err := ParseTier(tier, sampleRate, hopLength)
	if err != nil {
		return Alignment{}, fmt.Errorf("%s: %w", path, err)
	}

	if sum := sumInts(out.Durations); sum != melLen {
		return Alignment{}, fmt.Errorf("%w: alignment has %d frames, mel has %d", ErrLengthMismatch, sum, melLen)
	}

	return out, nil
}

// AttentionDurations derives per-symbol durations from a teacher-forced
// attention matrix: per frame, the attended symbol is the argmax along the
// symbol axis, and each symbol's duration is its attended-frame count.
// Rows beyond melLen and columns beyond textLen are padding and ignored.
// The histogram sums to melLen by construction, so no reconciliation is
// needed.
func AttentionDurations(att *tensor.Tensor, melLen, textLen int) ([]int, error) {
	if att == nil || att.Rank() != 2 {
		return nil, errors.New("attention matrix must be rank 2")
	}
	if melLen <= 0 || int64(melLen) > att.Dim(0) {
		return nil, fmt.Errorf("mel length %d out of range for attention with %d frames", melLen, att.Dim(0))
	}
	if textLen <= 0 || int64(textLen) > att.Dim(1) {
		return nil, fmt.Errorf("text length %d out of range for attention with %d symbols", textLen, att.Dim(1))
	}

	durs := make([]int, textLen)

	for m := 0; m < melLen; m++ {
		row, err := att.Row(int64(m))
		if err != nil {
			return nil, err
		}

		best := 0
		for c := 1; c < textLen; c++ {
			if row[c] > row[best] {
				best = c
			}
		}

		durs[best]++
	}

	return durs, nil
}

// UnitRuns holds run-length-encoded unit durations reconciled against the
// mel length. Adjustment is the signed frame count that was added to the
// final run to make the sums agree.
type UnitRuns struct {
	Units      []string
	Durations  []int
	Adjustment int
}

// Anomalous reports whether reconciliation moved the final run by more than
// one frame. Quantized unit extractors truncate audio that does not fill
// their last chunk, so a single missing frame is routine; anything larger
// warrants a diagnostic.
func (r UnitRuns) Anomalous() bool {
	return r.Adjustment != 0 && r.Adjustment != 1 && r.Adjustment != -1
}

// UnitRunDurations run-length-encodes a unit symbol sequence and takes the
// run lengths as durations. A sum that disagrees with melLen is reconciled
// by adjusting only the final run's duration; a reconciliation that would
// leave a negative duration is fatal.
func UnitRunDurations(symbols []string, melLen int) (UnitRuns, error) {
	if len(symbols) == 0 {
		return UnitRuns{}, errors.New("empty unit sequence")
	}

	runs := seq.RunLengthEncode(symbols)

	out := UnitRuns{
		Units:     make([]string, len(runs)),
		Durations: make([]int, len(runs)),
	}
	for i, r := range runs {
		out.Units[i] = r.Value
		out.Durations[i] = r.Length
	}

	total := sumInts(out.Durations)
	out.Adjustment = melLen - total

	last := len(out.Durations) - 1
	out.Durations[last] += out.Adjustment

	if out.Durations[last] < 0 {
		return UnitRuns{}, fmt.Errorf("%w: unit runs cover %d frames, mel has %d", ErrLengthMismatch, total, melLen)
	}

	return out, nil
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}

	return total
}
