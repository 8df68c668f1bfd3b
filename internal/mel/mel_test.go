package mel

import (
	"math"
	"testing"
)

func testOptions() Options {
	return Options{
		SampleRate:   22050,
		FilterLength: 1024,
		HopLength:    256,
		WinLength:    1024,
		Channels:     80,
		FMin:         0,
		FMax:         8000,
	}
}

func sine(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestFrames(t *testing.T) {
	e, err := NewExtractor(testOptions())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	tests := []struct {
		samples int
		want    int
	}{
		{22050, 87},
		{256, 2},
		{255, 1},
		{0, 1},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := e.Frames(tt.samples); got != tt.want {
			t.Errorf("Frames(%d) = %d, want %d", tt.samples, got, tt.want)
		}
	}
}

func TestSpectrogramShape(t *testing.T) {
	e, err := NewExtractor(testOptions())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	samples := sine(440, 22050, 22050)
	spec, err := e.Spectrogram(samples)
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}

	shape := spec.Shape()
	if len(shape) != 2 || shape[0] != 80 || shape[1] != 87 {
		t.Fatalf("shape = %v, want [80 87]", shape)
	}
	if got := spec.ElemCount(); got != 80*87 {
		t.Fatalf("elem count = %d, want %d", got, 80*87)
	}
}

func TestSpectrogramSilenceHitsLogFloor(t *testing.T) {
	e, err := NewExtractor(testOptions())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	spec, err := e.Spectrogram(make([]float32, 2048))
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}

	want := float32(math.Log(logFloor))
	for i, v := range spec.RawData() {
		if math.Abs(float64(v-want)) > 1e-4 {
			t.Fatalf("silence value[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestSpectrogramPeakTracksFrequency(t *testing.T) {
	e, err := NewExtractor(testOptions())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	peakChannel := func(freq float64) (int, float32) {
		spec, err := e.Spectrogram(sine(freq, 22050, 22050))
		if err != nil {
			t.Fatalf("Spectrogram(%g): %v", freq, err)
		}

		frames := int(spec.Dim(1))
		best, bestEnergy := 0, float32(math.Inf(-1))
		for c := 0; c < int(spec.Dim(0)); c++ {
			var sum float32
			for f := 0; f < frames; f++ {
				v, _ := spec.At(int64(c), int64(f))
				sum += v
			}
			if sum > bestEnergy {
				best, bestEnergy = c, sum
			}
		}
		return best, bestEnergy / float32(frames)
	}

	lowPeak, lowEnergy := peakChannel(440)
	highPeak, _ := peakChannel(4000)

	if lowPeak >= highPeak {
		t.Errorf("peak channels: 440 Hz = %d, 4000 Hz = %d, want low < high", lowPeak, highPeak)
	}
	if lowPeak < 7 || lowPeak > 15 {
		t.Errorf("440 Hz peak channel = %d, want near 11", lowPeak)
	}
	if highPeak < 55 || highPeak > 68 {
		t.Errorf("4000 Hz peak channel = %d, want near 62", highPeak)
	}

	floor := float32(math.Log(logFloor))
	if lowEnergy < floor+2 {
		t.Errorf("440 Hz peak energy %f not clearly above silence floor %f", lowEnergy, floor)
	}
}

func TestSpectrogramTooShort(t *testing.T) {
	e, err := NewExtractor(testOptions())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	if _, err := e.Spectrogram(make([]float32, 100)); err == nil {
		t.Fatal("expected error for input shorter than reflection pad")
	}
}

func TestNewExtractorValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero sample rate", func(o *Options) { o.SampleRate = 0 }},
		{"zero hop", func(o *Options) { o.HopLength = 0 }},
		{"window exceeds filter", func(o *Options) { o.WinLength = o.FilterLength + 1 }},
		{"zero channels", func(o *Options) { o.Channels = 0 }},
		{"fmax above nyquist", func(o *Options) { o.FMax = 20000 }},
		{"fmin above fmax", func(o *Options) { o.FMin = 9000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			if _, err := NewExtractor(opts); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFMaxDefaultsToNyquist(t *testing.T) {
	opts := testOptions()
	opts.FMax = 0
	e, err := NewExtractor(opts)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	if got := e.opts.FMax; got != 22050.0/2 {
		t.Errorf("fmax = %g, want %g", got, 22050.0/2)
	}
}
