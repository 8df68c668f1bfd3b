package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dan-wells/FastPitch/internal/tensor"
	"github.com/dan-wells/FastPitch/internal/tensorfile"
)

// Artifact categories. Each category is a directory under the dataset root
// holding one container file per utterance.
const (
	CategoryMel          = "mels"
	CategoryMelTeacher   = "mels_teacher"
	CategoryAttention    = "attentions"
	CategoryDurations    = "durations"
	CategoryPitchMel     = "pitch_mel"
	CategoryPitchChar    = "pitch_char"
	CategoryPitchTrichar = "pitch_trichar"
)

// ArtifactExt is the extension of per-utterance artifact files. The
// container payload is the tensorfile format regardless of extension; .pt
// keeps paths compatible with training filelists that reference it.
const ArtifactExt = ".pt"

// Store lays out per-utterance artifacts under a dataset root,
// directory-per-category, keyed by utterance id.
type Store struct {
	root string
}

// NewStore returns a store rooted at dir. No directories are created until
// EnsureCategories or a save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the dataset root directory.
func (s *Store) Root() string {
	return s.root
}

// EnsureCategories creates the named category directories.
func (s *Store) EnsureCategories(categories ...string) error {
	for _, c := range categories {
		if err := os.MkdirAll(filepath.Join(s.root, c), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", c, err)
		}
	}

	return nil
}

// HasCategory reports whether the category directory exists.
func (s *Store) HasCategory(category string) bool {
	info, err := os.Stat(filepath.Join(s.root, category))

	return err == nil && info.IsDir()
}

// TensorPath returns the artifact path for an utterance in a category.
func (s *Store) TensorPath(category, id string) string {
	return filepath.Join(s.root, category, id+ArtifactExt)
}

// TextGridPath returns the conventional alignment file location for an
// utterance: TextGrid/<id>.TextGrid under the dataset root.
func (s *Store) TextGridPath(id string) string {
	return filepath.Join(s.root, "TextGrid", id+".TextGrid")
}

// SaveTensor persists a float32 tensor for an utterance.
func (s *Store) SaveTensor(category, id string, t *tensor.Tensor) error {
	entry := tensorfile.Float32Tensor(category, t.Data(), t.Shape())

	return s.write(category, id, entry)
}

// SaveVector persists a rank-1 float32 vector for an utterance.
func (s *Store) SaveVector(category, id string, data []float32) error {
	return s.write(category, id, tensorfile.Float32Vector(category, data))
}

// SaveInts persists a rank-1 int vector for an utterance.
func (s *Store) SaveInts(category, id string, values []int) error {
	return s.write(category, id, tensorfile.Int32Vector(category, values))
}

func (s *Store) write(category, id string, entry tensorfile.Tensor) error {
	path := s.TensorPath(category, id)
	if err := tensorfile.WriteFile(path, []tensorfile.Tensor{entry}); err != nil {
		return fmt.Errorf("save %s for %s: %w", category, id, err)
	}

	return nil
}

// LoadTensor reads an utterance's artifact back from a category.
func (s *Store) LoadTensor(category, id string) (tensorfile.Tensor, error) {
	t, err := tensorfile.ReadOne(s.TensorPath(category, id))
	if err != nil {
		return tensorfile.Tensor{}, fmt.Errorf("load %s for %s: %w", category, id, err)
	}

	return t, nil
}
