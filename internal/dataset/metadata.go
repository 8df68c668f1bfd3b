package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// WriteMetadata writes the training metadata file: one line per utterance,
// in the given order, referencing artifacts relative to the dataset root.
// Symbol lists reflect any trimming that ran before the write.
//
//	mels/<id>.pt|durations/<id>.pt|pitch_char/<id>.pt|<space-joined symbols>
func WriteMetadata(path string, utterances []*Utterance) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}

	w := bufio.NewWriter(f)

	for _, u := range utterances {
		// Forward slashes regardless of platform: training configs
		// consume these paths verbatim.
		_, err := fmt.Fprintf(w, "%s/%s%s|%s/%s%s|%s/%s%s|%s\n",
			CategoryMel, u.ID, ArtifactExt,
			CategoryDurations, u.ID, ArtifactExt,
			CategoryPitchChar, u.ID, ArtifactExt,
			strings.Join(u.Symbols, " "))
		if err != nil {
			f.Close()

			return fmt.Errorf("write metadata line for %s: %w", u.ID, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()

		return fmt.Errorf("flush metadata file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close metadata file: %w", err)
	}

	return nil
}
