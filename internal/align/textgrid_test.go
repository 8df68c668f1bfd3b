package align

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTextGrid = `File type = "ooTextFile"
Object class = "TextGrid"

xmin = 0
xmax = 0.8
tiers? <exists>
size = 3
item []:
	item [1]:
		class = "IntervalTier"
		name = "words"
		xmin = 0
		xmax = 0.8
		intervals: size = 2
		intervals [1]:
			xmin = 0
			xmax = 0.4
			text = "hello"
		intervals [2]:
			xmin = 0.4
			xmax = 0.8
			text = "said ""hi"""
	item [2]:
		class = "TextTier"
		name = "events"
		xmin = 0
		xmax = 0.8
		points: size = 1
		points [1]:
			number = 0.25
			mark = "click"
	item [3]:
		class = "IntervalTier"
		name = "phones"
		xmin = 0
		xmax = 0.8
		intervals: size = 3
		intervals [1]:
			xmin = 0
			xmax = 0.25
			text = ""
		intervals [2]:
			xmin = 0.25
			xmax = 0.6
			text = "AH0"
		intervals [3]:
			xmin = 0.6
			xmax = 0.8
			text = "sp"
`

func TestParseTextGrid(t *testing.T) {
	tg, err := ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid returned error: %v", err)
	}

	if len(tg.Tiers) != 2 {
		t.Fatalf("parsed %d tiers, want 2 (point tier skipped)", len(tg.Tiers))
	}

	words := tg.Tiers[0]
	if words.Name != "words" {
		t.Errorf("tier[0].Name = %q, want %q", words.Name, "words")
	}
	if len(words.Intervals) != 2 {
		t.Fatalf("words tier has %d intervals, want 2", len(words.Intervals))
	}
	if words.Intervals[0].Label != "hello" {
		t.Errorf("interval label = %q, want %q", words.Intervals[0].Label, "hello")
	}
	if got := words.Intervals[1].Label; got != `said "hi"` {
		t.Errorf("escaped quote label = %q, want %q", got, `said "hi"`)
	}

	phones := tg.Tiers[1]
	if phones.Name != "phones" {
		t.Errorf("tier[1].Name = %q, want %q", phones.Name, "phones")
	}
	if len(phones.Intervals) != 3 {
		t.Fatalf("phones tier has %d intervals, want 3", len(phones.Intervals))
	}
	if phones.Intervals[0].Label != "" {
		t.Errorf("empty label parsed as %q, want empty string", phones.Intervals[0].Label)
	}
	if phones.Intervals[1].Start != 0.25 || phones.Intervals[1].End != 0.6 {
		t.Errorf("interval bounds = [%g, %g], want [0.25, 0.6]",
			phones.Intervals[1].Start, phones.Intervals[1].End)
	}
}

func TestParseTextGridRejectsOtherFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"chronological file", `File type = "ooTextFile"` + "\n" + `Object class = "Chronological TextGrid"` + "\n"},
		{"missing header", "xmin = 0\nxmax = 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTextGrid(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestTierLookup(t *testing.T) {
	tg, err := ParseTextGrid(strings.NewReader(sampleTextGrid))
	if err != nil {
		t.Fatalf("ParseTextGrid returned error: %v", err)
	}

	if _, err := tg.Tier("phones"); err != nil {
		t.Errorf("Tier(phones) returned error: %v", err)
	}

	_, err = tg.Tier("syllables")
	if err == nil {
		t.Fatal("Tier(syllables) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "words") {
		t.Errorf("lookup error %q does not list available tiers", err)
	}
}

func TestReadTextGridMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TextGrid", "nope.TextGrid")

	_, err := ReadTextGrid(path)
	if !errors.Is(err, ErrMissingAlignment) {
		t.Fatalf("error = %v, want ErrMissingAlignment", err)
	}
	if !strings.Contains(err.Error(), "TextGrid/speaker_uttID.TextGrid") {
		t.Errorf("error %q does not explain the path convention", err)
	}
}

func TestReadTextGridRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utt.TextGrid")
	if err := os.WriteFile(path, []byte(sampleTextGrid), 0o644); err != nil {
		t.Fatal(err)
	}

	tg, err := ReadTextGrid(path)
	if err != nil {
		t.Fatalf("ReadTextGrid returned error: %v", err)
	}
	if len(tg.Tiers) != 2 {
		t.Errorf("parsed %d tiers, want 2", len(tg.Tiers))
	}
}
