// Package text turns filelist transcripts into the symbol sequences the
// alignment and pitch pipelines operate on: characters, phone labels, or
// discrete acoustic unit IDs.
package text

import (
	"fmt"
	"strings"
)

// InputType selects how a transcript maps to input symbols.
type InputType string

const (
	// InputChar treats every rune of the transcript as one symbol.
	InputChar InputType = "char"
	// InputPhone splits the transcript into whitespace-separated phone labels.
	InputPhone InputType = "phone"
	// InputUnit splits the transcript into whitespace-separated discrete
	// unit IDs, as produced by quantized acoustic unit extractors.
	InputUnit InputType = "unit"
)

// ParseInputType validates a raw input type string.
func ParseInputType(raw string) (InputType, error) {
	switch InputType(strings.ToLower(strings.TrimSpace(raw))) {
	case InputChar:
		return InputChar, nil
	case InputPhone:
		return InputPhone, nil
	case InputUnit:
		return InputUnit, nil
	default:
		return "", fmt.Errorf("unknown input type %q (want char|phone|unit)", raw)
	}
}

// Symbols converts a transcript into its ordered symbol sequence according
// to the input type. The transcript is normalized first; an empty transcript
// is an error since every downstream array is sized by the symbol count.
func Symbols(transcript string, typ InputType) ([]string, error) {
	normalized, err := Normalize(transcript)
	if err != nil {
		return nil, err
	}

	switch typ {
	case InputChar:
		runes := []rune(normalized)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}

		return out, nil
	case InputPhone, InputUnit:
		return strings.Fields(normalized), nil
	default:
		return nil, fmt.Errorf("unknown input type %q", typ)
	}
}
