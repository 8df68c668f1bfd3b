package text

import (
	"errors"
	"testing"
)

func TestParseInputType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    InputType
		wantErr bool
	}{
		{"char lowercase", "char", InputChar, false},
		{"phone lowercase", "phone", InputPhone, false},
		{"unit lowercase", "unit", InputUnit, false},
		{"char uppercase", "CHAR", InputChar, false},
		{"phone with spaces", "  phone  ", InputPhone, false},
		{"empty", "", "", true},
		{"unknown", "grapheme", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInputType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInputType(%q) succeeded, want error", tt.input)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("ParseInputType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSymbols(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		typ        InputType
		want       []string
	}{
		{
			name:       "char keeps every rune including spaces",
			transcript: "ab c",
			typ:        InputChar,
			want:       []string{"a", "b", " ", "c"},
		},
		{
			name:       "char trims surrounding whitespace",
			transcript: "  hi  ",
			typ:        InputChar,
			want:       []string{"h", "i"},
		},
		{
			name:       "char handles multibyte runes",
			transcript: "héj",
			typ:        InputChar,
			want:       []string{"h", "é", "j"},
		},
		{
			name:       "phone splits on whitespace",
			transcript: "sil HH AH0 L OW1 sil",
			typ:        InputPhone,
			want:       []string{"sil", "HH", "AH0", "L", "OW1", "sil"},
		},
		{
			name:       "phone collapses repeated separators",
			transcript: "AA  B\tC",
			typ:        InputPhone,
			want:       []string{"AA", "B", "C"},
		},
		{
			name:       "unit splits numeric labels",
			transcript: "12 12 48 3",
			typ:        InputUnit,
			want:       []string{"12", "12", "48", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Symbols(tt.transcript, tt.typ)
			if err != nil {
				t.Fatalf("Symbols(%q, %q) returned error: %v", tt.transcript, tt.typ, err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("Symbols(%q, %q) = %v, want %v", tt.transcript, tt.typ, got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("symbol[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSymbolsEmptyTranscript(t *testing.T) {
	for _, typ := range []InputType{InputChar, InputPhone, InputUnit} {
		if _, err := Symbols("   ", typ); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Symbols(blank, %q) error = %v, want ErrEmptyText", typ, err)
		}
	}
}
