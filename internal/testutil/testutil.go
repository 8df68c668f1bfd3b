// Package testutil provides synthetic fixtures and skip helpers shared by
// tests across the extraction pipeline.
//
// The fixture builders write small deterministic inputs (sine waveforms,
// forced-alignment TextGrids, one-hot attention matrices) so feature
// extraction tests run hermetically without a corpus checkout.
package testutil

import (
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/dan-wells/FastPitch/internal/align"
	"github.com/dan-wells/FastPitch/internal/audio"
	"github.com/dan-wells/FastPitch/internal/tensor"
)

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// FASTPITCH_ORT_LIB env var, then common system library paths.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "FASTPITCH_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			_, err := os.Stat(p)
			if err == nil {
				return // found
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return // found
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or FASTPITCH_ORT_LIB")
}

// Sine generates durSec seconds of a freqHz sine wave at half amplitude.
func Sine(freqHz, durSec float64, sampleRate int) []float32 {
	n := int(math.Round(durSec * float64(sampleRate)))

	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
	}

	return samples
}

// WriteSineWAV writes a mono 16-bit sine fixture to path.
func WriteSineWAV(tb testing.TB, path string, freqHz, durSec float64, sampleRate int) {
	tb.Helper()

	err := audio.WriteWAV(path, Sine(freqHz, durSec, sampleRate), sampleRate)
	if err != nil {
		tb.Fatalf("write sine fixture %s: %v", path, err)
	}
}

// WriteTextGrid writes a single-tier long-form TextGrid covering the given
// intervals. The file parses back with align.ReadTextGrid.
func WriteTextGrid(tb testing.TB, path, tierName string, intervals []align.Interval) {
	tb.Helper()

	if len(intervals) == 0 {
		tb.Fatal("WriteTextGrid: no intervals")
	}

	xmin := intervals[0].Start
	xmax := intervals[len(intervals)-1].End

	var b strings.Builder

	b.WriteString("File type = \"ooTextFile\"\n")
	b.WriteString("Object class = \"TextGrid\"\n\n")
	fmt.Fprintf(&b, "xmin = %g\n", xmin)
	fmt.Fprintf(&b, "xmax = %g\n", xmax)
	b.WriteString("tiers? <exists>\n")
	b.WriteString("size = 1\n")
	b.WriteString("item []:\n")
	b.WriteString("    item [1]:\n")
	b.WriteString("        class = \"IntervalTier\"\n")
	fmt.Fprintf(&b, "        name = \"%s\"\n", praatEscape(tierName))
	fmt.Fprintf(&b, "        xmin = %g\n", xmin)
	fmt.Fprintf(&b, "        xmax = %g\n", xmax)
	fmt.Fprintf(&b, "        intervals: size = %d\n", len(intervals))

	for i, iv := range intervals {
		fmt.Fprintf(&b, "        intervals [%d]:\n", i+1)
		fmt.Fprintf(&b, "            xmin = %g\n", iv.Start)
		fmt.Fprintf(&b, "            xmax = %g\n", iv.End)
		fmt.Fprintf(&b, "            text = \"%s\"\n", praatEscape(iv.Label))
	}

	err := os.WriteFile(path, []byte(b.String()), 0o644)
	if err != nil {
		tb.Fatalf("write TextGrid fixture %s: %v", path, err)
	}
}

// praatEscape doubles inner quotes, the Praat string escape.
func praatEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// OneHotAttention builds an attention matrix whose argmax path reproduces
// the given durations exactly: symbol i receives durations[i] consecutive
// frames of weight one.
func OneHotAttention(tb testing.TB, durations []int) *tensor.Tensor {
	tb.Helper()

	frames := 0
	for _, d := range durations {
		if d < 0 {
			tb.Fatalf("OneHotAttention: negative duration %d", d)
		}

		frames += d
	}

	if frames == 0 {
		tb.Fatal("OneHotAttention: durations sum to zero")
	}

	symbols := len(durations)
	data := make([]float32, frames*symbols)

	row := 0
	for s, d := range durations {
		for range d {
			data[row*symbols+s] = 1
			row++
		}
	}

	att, err := tensor.New(data, []int64{int64(frames), int64(symbols)})
	if err != nil {
		tb.Fatalf("OneHotAttention: %v", err)
	}

	return att
}
