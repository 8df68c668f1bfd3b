package trim

import (
	"errors"
	"strings"
	"testing"

	"github.com/dan-wells/FastPitch/internal/align"
	"github.com/dan-wells/FastPitch/internal/dataset"
	"github.com/dan-wells/FastPitch/internal/tensor"
)

// melWithFrames builds a [2, frames] mel whose entries encode channel and
// frame index, so slices can be checked by value.
func melWithFrames(t *testing.T, frames int) *tensor.Tensor {
	t.Helper()

	data := make([]float32, 2*frames)
	for c := 0; c < 2; c++ {
		for f := 0; f < frames; f++ {
			data[c*frames+f] = float32(c*1000 + f)
		}
	}

	mel, err := tensor.New(data, []int64{2, int64(frames)})
	if err != nil {
		t.Fatalf("build mel: %v", err)
	}

	return mel
}

func seqFloats(n, offset int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(offset + i)
	}

	return out
}

func TestApplyDropsLeadingSilence(t *testing.T) {
	u := &dataset.Utterance{
		ID:             "utt1",
		Symbols:        []string{align.Silence, "a", "b"},
		Durations:      []int{10, 4, 6},
		Mel:            melWithFrames(t, 20),
		PitchMel:       seqFloats(20, 0),
		PitchSymbol:    []float32{0, 210, 220},
		PitchSubSymbol: seqFloats(9, 100),
	}

	out, err := Apply(u, Policy{KeepFrames: 0})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if got := strings.Join(out.Symbols, " "); got != "a b" {
		t.Errorf("symbols = %q, want \"a b\"", got)
	}
	if len(out.Durations) != 2 || out.Durations[0] != 4 || out.Durations[1] != 6 {
		t.Errorf("durations = %v, want [4 6]", out.Durations)
	}

	if got := out.FrameCount(); got != 10 {
		t.Errorf("frame count = %d, want 10", got)
	}

	// Frame 10 of the input is the first surviving frame.
	first, err := out.Mel.At(0, 0)
	if err != nil {
		t.Fatalf("read mel: %v", err)
	}
	if first != 10 {
		t.Errorf("mel[0,0] = %g, want 10", first)
	}

	if len(out.PitchMel) != 10 || out.PitchMel[0] != 10 {
		t.Errorf("frame pitch = %v, want frames 10..19", out.PitchMel)
	}
	if len(out.PitchSymbol) != 2 || out.PitchSymbol[0] != 210 {
		t.Errorf("symbol pitch = %v, want [210 220]", out.PitchSymbol)
	}
	if len(out.PitchSubSymbol) != 6 || out.PitchSubSymbol[0] != 103 {
		t.Errorf("sub-symbol pitch = %v, want entries 103..108", out.PitchSubSymbol)
	}
}

func TestApplyKeepsResidualSilence(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{align.Silence, "a"},
		Durations: []int{10, 5},
		Mel:       melWithFrames(t, 15),
	}

	out, err := Apply(u, Policy{KeepFrames: 2})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(out.Symbols) != 2 || out.Symbols[0] != align.Silence {
		t.Errorf("symbols = %v, want silence kept", out.Symbols)
	}
	if out.Durations[0] != 2 {
		t.Errorf("silence duration = %d, want residual 2", out.Durations[0])
	}
	if got := out.FrameCount(); got != 7 {
		t.Errorf("frame count = %d, want 7", got)
	}

	first, err := out.Mel.At(0, 0)
	if err != nil {
		t.Fatalf("read mel: %v", err)
	}
	if first != 8 {
		t.Errorf("mel[0,0] = %g, want frame 8", first)
	}
}

func TestApplyTrimsBothEnds(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{align.Silence, "a", align.Silence},
		Durations: []int{5, 10, 7},
		Mel:       melWithFrames(t, 22),
		PitchMel:  seqFloats(22, 0),
	}

	out, err := Apply(u, Policy{KeepFrames: 0})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(out.Symbols) != 1 || out.Symbols[0] != "a" {
		t.Errorf("symbols = %v, want [a]", out.Symbols)
	}
	if got := out.FrameCount(); got != 10 {
		t.Errorf("frame count = %d, want 10", got)
	}
	if out.PitchMel[0] != 5 || out.PitchMel[9] != 14 {
		t.Errorf("frame pitch spans %g..%g, want 5..14", out.PitchMel[0], out.PitchMel[9])
	}
}

func TestApplyTrailingOnly(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{"a", "b", align.Silence},
		Durations: []int{3, 4, 8},
		Mel:       melWithFrames(t, 15),
	}

	out, err := Apply(u, Policy{KeepFrames: 0})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if got := strings.Join(out.Symbols, " "); got != "a b" {
		t.Errorf("symbols = %q, want \"a b\"", got)
	}
	if got := out.FrameCount(); got != 7 {
		t.Errorf("frame count = %d, want 7", got)
	}

	first, err := out.Mel.At(0, 0)
	if err != nil {
		t.Fatalf("read mel: %v", err)
	}
	if first != 0 {
		t.Errorf("mel[0,0] = %g, want leading frames untouched", first)
	}
}

func TestApplyInteriorPauseUntouched(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{align.Silence, "a", align.ShortPause, "b", align.Silence},
		Durations: []int{4, 5, 6, 7, 8},
		Mel:       melWithFrames(t, 30),
	}

	out, err := Apply(u, Policy{KeepFrames: 0})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if got := strings.Join(out.Symbols, " "); got != "a sp b" {
		t.Errorf("symbols = %q, want \"a sp b\"", got)
	}
	if out.Durations[1] != 6 {
		t.Errorf("pause duration = %d, want untouched 6", out.Durations[1])
	}
	if got := out.FrameCount(); got != 18 {
		t.Errorf("frame count = %d, want 18", got)
	}
}

func TestApplyNoSilence(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{"a", "b"},
		Durations: []int{3, 4},
		Mel:       melWithFrames(t, 7),
	}

	out, err := Apply(u, Policy{KeepFrames: 0})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if got := out.FrameCount(); got != 7 {
		t.Errorf("frame count = %d, want unchanged 7", got)
	}
	if len(out.Symbols) != 2 {
		t.Errorf("symbols = %v, want unchanged", out.Symbols)
	}
}

func TestApplyShortSilenceUnderResidual(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{align.Silence, "a"},
		Durations: []int{2, 5},
		Mel:       melWithFrames(t, 7),
	}

	out, err := Apply(u, Policy{KeepFrames: 5})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if out.Durations[0] != 2 {
		t.Errorf("silence duration = %d, want unchanged 2", out.Durations[0])
	}
	if got := out.FrameCount(); got != 7 {
		t.Errorf("frame count = %d, want unchanged 7", got)
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	u := &dataset.Utterance{
		ID:          "utt1",
		Symbols:     []string{align.Silence, "a"},
		Durations:   []int{10, 5},
		Mel:         melWithFrames(t, 15),
		PitchMel:    seqFloats(15, 0),
		PitchSymbol: []float32{0, 210},
	}

	if _, err := Apply(u, Policy{KeepFrames: 0}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(u.Symbols) != 2 || u.Durations[0] != 10 {
		t.Errorf("input mutated: symbols %v durations %v", u.Symbols, u.Durations)
	}
	if u.FrameCount() != 15 || len(u.PitchMel) != 15 {
		t.Errorf("input arrays resized: %d frames, %d pitch entries", u.FrameCount(), len(u.PitchMel))
	}
}

func TestApplyAllSilence(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "utt1",
		Symbols:   []string{align.Silence},
		Durations: []int{12},
		Mel:       melWithFrames(t, 12),
	}

	if _, err := Apply(u, Policy{KeepFrames: 0}); err == nil {
		t.Fatal("expected error for utterance that is entirely silence")
	}
}

func TestApplyRejectsInconsistentInput(t *testing.T) {
	tests := []struct {
		name string
		utt  *dataset.Utterance
	}{
		{
			"duration sum disagrees with mel",
			&dataset.Utterance{
				ID:        "utt1",
				Symbols:   []string{"a"},
				Durations: []int{5},
				Mel:       nil,
			},
		},
		{
			"symbol pitch length",
			&dataset.Utterance{
				ID:          "utt1",
				Symbols:     []string{"a", "b"},
				Durations:   []int{3, 4},
				PitchSymbol: []float32{1},
			},
		},
		{
			"sub-symbol pitch length",
			&dataset.Utterance{
				ID:             "utt1",
				Symbols:        []string{"a"},
				Durations:      []int{7},
				PitchSubSymbol: []float32{1, 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.utt.Mel == nil {
				tt.utt.Mel = melWithFrames(t, 7)
			}

			if _, err := Apply(tt.utt, Policy{KeepFrames: 0}); err == nil {
				t.Fatal("Apply succeeded on inconsistent input")
			}
		})
	}
}

func TestApplyMismatchNamesUtterance(t *testing.T) {
	u := &dataset.Utterance{
		ID:        "speaker_042",
		Symbols:   []string{"a"},
		Durations: []int{5},
		Mel:       melWithFrames(t, 9),
	}

	_, err := Apply(u, Policy{KeepFrames: 0})
	if !errors.Is(err, align.ErrLengthMismatch) {
		t.Fatalf("error = %v, want ErrLengthMismatch", err)
	}
	if !strings.Contains(err.Error(), "speaker_042") {
		t.Errorf("error %q does not name the utterance", err)
	}
}

func TestKeepFrames(t *testing.T) {
	tests := []struct {
		seconds float64
		want    int
	}{
		{0, 0},
		{0.01, 1},
		{0.1, 9},
		{0.5, 43},
	}

	for _, tt := range tests {
		if got := KeepFrames(tt.seconds, 22050, 256); got != tt.want {
			t.Errorf("KeepFrames(%g) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}
