package pitch

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Stats holds corpus-wide normalization statistics for one resolution.
type Stats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Accumulator pools one resolution's pitch vectors across the whole corpus
// for two-phase z-score normalization: Add stores vectors during
// per-utterance processing, and a single Normalize call transforms them all
// once every utterance is in. The statistics pool only voiced (nonzero)
// values, so they cannot be computed incrementally while vectors arrive.
//
// Add is safe for concurrent use. Normalize closes the accumulator; both
// further Adds and a second Normalize fail with ErrClosed.
type Accumulator struct {
	mu     sync.Mutex
	vecs   map[string][]float32
	closed bool
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{vecs: make(map[string][]float32)}
}

// Add stores a copy of vec under the utterance id.
func (a *Accumulator) Add(id string, vec []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("add %q: %w", id, ErrClosed)
	}
	if _, exists := a.vecs[id]; exists {
		return fmt.Errorf("duplicate utterance id %q", id)
	}

	a.vecs[id] = append([]float32(nil), vec...)

	return nil
}

// Len returns the number of stored utterances.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.vecs)
}

// Normalize pools every voiced value across the corpus, z-scores all stored
// vectors with the pooled mean and population standard deviation, and
// leaves unvoiced entries at exactly 0. It closes the accumulator.
func (a *Accumulator) Normalize() (Stats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Stats{}, ErrClosed
	}

	a.closed = true

	var pool []float64

	for _, vec := range a.vecs {
		for _, v := range vec {
			if v != 0 {
				pool = append(pool, float64(v))
			}
		}
	}

	if len(pool) == 0 {
		return Stats{}, errors.New("no voiced frames in corpus")
	}

	mean := stat.Mean(pool, nil)

	std := stat.PopStdDev(pool, nil)
	if std == 0 {
		return Stats{}, errors.New("voiced pitch has zero variance across corpus")
	}

	for _, vec := range a.vecs {
		for i, v := range vec {
			if v != 0 {
				vec[i] = float32((float64(v) - mean) / std)
			}
		}
	}

	return Stats{Mean: mean, Std: std}, nil
}

// Each calls fn for every stored vector in utterance-id order. The slice
// passed to fn is the stored vector; callers must not modify it.
func (a *Accumulator) Each(fn func(id string, vec []float32) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.vecs))
	for id := range a.vecs {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		if err := fn(id, a.vecs[id]); err != nil {
			return err
		}
	}

	return nil
}
