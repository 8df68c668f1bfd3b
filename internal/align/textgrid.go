// Package align derives per-symbol frame durations for utterances, either
// from forced-alignment TextGrids, from teacher-forced attention matrices,
// or from run-length-encoded unit sequences.
package align

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Interval is one labeled time span of an interval tier.
type Interval struct {
	Start float64 // seconds
	End   float64 // seconds
	Label string
}

// Tier is an ordered sequence of intervals from a TextGrid.
type Tier struct {
	Name      string
	Intervals []Interval
}

// TextGrid holds the interval tiers of one Praat annotation file.
// Point tiers are skipped during parsing.
type TextGrid struct {
	Tiers []Tier
}

// Tier returns the named interval tier.
func (tg *TextGrid) Tier(name string) (*Tier, error) {
	for i := range tg.Tiers {
		if tg.Tiers[i].Name == name {
			return &tg.Tiers[i], nil
		}
	}

	have := make([]string, len(tg.Tiers))
	for i, t := range tg.Tiers {
		have[i] = t.Name
	}

	return nil, fmt.Errorf("no interval tier %q (have %s)", name, strings.Join(have, ", "))
}

// ReadTextGrid reads and parses a TextGrid file. A missing file is reported
// as ErrMissingAlignment together with the path convention the pipeline
// assumes.
func ReadTextGrid(path string) (*TextGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(
				"%w: %s (wavs and TextGrids must share filename stems, e.g. wavs/speaker_uttID.wav pairs with TextGrid/speaker_uttID.TextGrid)",
				ErrMissingAlignment, path)
		}

		return nil, fmt.Errorf("open TextGrid: %w", err)
	}
	defer f.Close()

	tg, err := ParseTextGrid(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return tg, nil
}

// ParseTextGrid parses the long ("ooTextFile") TextGrid form that Praat and
// the Montreal Forced Aligner write. Empty interval labels are preserved;
// recent MFA versions use them for silence.
func ParseTextGrid(r io.Reader) (*TextGrid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	tg := &TextGrid{}

	var (
		sawFileType bool
		sawClass    bool
		tier        *Tier
		inInterval  bool
		current     Interval
	)

	flushInterval := func() {
		if tier != nil && inInterval {
			tier.Intervals = append(tier.Intervals, current)
		}

		inInterval = false
		current = Interval{}
	}

	flushTier := func() {
		flushInterval()

		if tier != nil {
			tg.Tiers = append(tg.Tiers, *tier)
		}

		tier = nil
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		key, value, hasValue := splitKeyValue(line)

		switch {
		case hasValue && key == "File type":
			if v, err := unquote(value); err != nil || v != "ooTextFile" {
				return nil, fmt.Errorf("unsupported file type %s (only the long ooTextFile form is supported)", value)
			}

			sawFileType = true
		case hasValue && key == "Object class":
			if v, err := unquote(value); err != nil || v != "TextGrid" {
				return nil, fmt.Errorf("not a TextGrid: object class %s", value)
			}

			sawClass = true
		case isItemHeader(line):
			flushTier()
		case hasValue && key == "class":
			v, err := unquote(value)
			if err != nil {
				return nil, fmt.Errorf("tier class: %w", err)
			}

			if v == "IntervalTier" {
				tier = &Tier{}
			} else {
				// Point tiers carry no durations; skip their contents.
				tier = nil
			}
		case hasValue && key == "name":
			if tier != nil {
				v, err := unquote(value)
				if err != nil {
					return nil, fmt.Errorf("tier name: %w", err)
				}

				tier.Name = v
			}
		case isIntervalHeader(line):
			if tier != nil {
				flushInterval()
				inInterval = true
			}
		case hasValue && key == "xmin":
			if inInterval {
				v, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("interval xmin %q: %w", value, err)
				}

				current.Start = v
			}
		case hasValue && key == "xmax":
			if inInterval {
				v, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("interval xmax %q: %w", value, err)
				}

				current.End = v
			}
		case hasValue && key == "text":
			if inInterval {
				v, err := unquote(value)
				if err != nil {
					return nil, fmt.Errorf("interval text: %w", err)
				}

				current.Label = v
			}
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read TextGrid: %w", err)
	}

	flushTier()

	if !sawFileType || !sawClass {
		return nil, errors.New("missing ooTextFile/TextGrid header")
	}

	return tg, nil
}

// splitKeyValue splits a `key = value` line.
func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}

	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// isItemHeader matches `item [1]:` tier headers but not the bare `item []:`
// list header.
func isItemHeader(line string) bool {
	return hasIndexedBrackets(line, "item")
}

// isIntervalHeader matches `intervals [3]:` headers but not the
// `intervals: size = n` count line.
func isIntervalHeader(line string) bool {
	return hasIndexedBrackets(line, "intervals")
}

func hasIndexedBrackets(line, prefix string) bool {
	if !strings.HasPrefix(line, prefix) {
		return false
	}

	open := strings.Index(line, "[")
	closing := strings.Index(line, "]")

	return open >= 0 && closing > open+1
}

// unquote strips the surrounding quotes of a Praat string and unescapes
// doubled inner quotes.
func unquote(s string) (string, error) {
	if len(s) < 2 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return "", fmt.Errorf("malformed quoted string %s", s)
	}

	return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`), nil
}
