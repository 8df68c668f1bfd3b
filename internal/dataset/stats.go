package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dan-wells/FastPitch/internal/pitch"
)

// StatsFilename names the normalization stats file for a feature computed
// from a given filelist, e.g. "pitch_char_stats__train.json". Keeping the
// filelist stem in the name lets train and validation lists coexist under
// one dataset root.
func StatsFilename(feature, filelistPath string) string {
	return fmt.Sprintf("%s_stats__%s.json", feature, Stem(filelistPath))
}

// WriteStats persists normalization stats under the dataset root.
func (s *Store) WriteStats(feature, filelistPath string, stats pitch.Stats) error {
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s stats: %w", feature, err)
	}

	path := filepath.Join(s.root, StatsFilename(feature, filelistPath))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s stats: %w", feature, err)
	}

	return nil
}

// ReadStats loads previously persisted normalization stats.
func (s *Store) ReadStats(feature, filelistPath string) (pitch.Stats, error) {
	path := filepath.Join(s.root, StatsFilename(feature, filelistPath))

	b, err := os.ReadFile(path)
	if err != nil {
		return pitch.Stats{}, fmt.Errorf("read %s stats: %w", feature, err)
	}

	var stats pitch.Stats
	if err := json.Unmarshal(b, &stats); err != nil {
		return pitch.Stats{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return stats, nil
}
