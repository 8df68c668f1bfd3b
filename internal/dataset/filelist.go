package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one filelist line: an audio path and its transcript. The id is
// the audio filename stem and keys every persisted artifact.
type Entry struct {
	ID        string
	AudioPath string
	Text      string
}

// ReadFilelist reads a pipe-separated filelist, one utterance per line.
func ReadFilelist(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filelist: %w", err)
	}
	defer f.Close()

	entries, err := ParseFilelist(f)
	if err != nil {
		return nil, fmt.Errorf("filelist %s: %w", path, err)
	}

	return entries, nil
}

// ParseFilelist parses filelist lines of the form
//
//	wavs/<id>.wav|transcript text
//
// Additional fields (speaker ids in multi-speaker lists) are ignored.
// Blank lines are skipped. Ids must be unique since artifacts are keyed
// by id.
func ParseFilelist(r io.Reader) ([]Entry, error) {
	var entries []Entry

	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want audio|text, got %q", lineNo, line)
		}

		audioPath := strings.TrimSpace(fields[0])
		if audioPath == "" {
			return nil, fmt.Errorf("line %d: empty audio path", lineNo)
		}

		id := Stem(audioPath)
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("line %d: id %q already used on line %d", lineNo, id, prev)
		}

		seen[id] = lineNo

		entries = append(entries, Entry{
			ID:        id,
			AudioPath: audioPath,
			Text:      fields[1],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read filelist: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no utterances found")
	}

	return entries, nil
}

// Stem returns the base filename without its extension.
func Stem(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
