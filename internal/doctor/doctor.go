// Package doctor re-checks a prepared dataset against the length invariants
// the extraction pipeline guarantees.
package doctor

import (
	"fmt"
	"io"

	"github.com/dan-wells/FastPitch/internal/dataset"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config holds the dataset handles for a verification run.
type Config struct {
	// Store reads persisted artifacts from the dataset root.
	Store *dataset.Store
	// Entries lists the utterances to verify, usually the training filelist.
	Entries []dataset.Entry
	// Filelist is the filelist path the stats filenames were derived from.
	// Empty skips the stats parse checks.
	Filelist string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all checks and writes human-readable output to w: one line
// per failing utterance, then a summary line, then one line per stats file.
// Only artifact categories present on disk participate.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	has := make(map[string]bool)
	for _, c := range []string{
		dataset.CategoryMel,
		dataset.CategoryDurations,
		dataset.CategoryPitchMel,
		dataset.CategoryPitchChar,
		dataset.CategoryPitchTrichar,
	} {
		has[c] = cfg.Store.HasCategory(c)
	}

	// ---- per-utterance artifacts ------------------------------------------
	if !has[dataset.CategoryMel] {
		res.fail(fmt.Sprintf("%s: category missing under %s", dataset.CategoryMel, cfg.Store.Root()))
		fmt.Fprintf(w, "%s %s: category missing under %s\n", FailMark, dataset.CategoryMel, cfg.Store.Root())

		return res
	}

	bad := 0

	for _, e := range cfg.Entries {
		errs := verifyUtterance(cfg.Store, has, e.ID)
		for _, err := range errs {
			res.fail(fmt.Sprintf("%s: %v", e.ID, err))
			fmt.Fprintf(w, "%s %s: %v\n", FailMark, e.ID, err)
		}

		if len(errs) > 0 {
			bad++
		}
	}

	if bad == 0 {
		fmt.Fprintf(w, "%s %d utterances consistent\n", PassMark, len(cfg.Entries))
	} else {
		fmt.Fprintf(w, "%s %d of %d utterances inconsistent\n", FailMark, bad, len(cfg.Entries))
	}

	// ---- normalization stats ----------------------------------------------
	if cfg.Filelist != "" {
		for _, cat := range []string{
			dataset.CategoryPitchMel,
			dataset.CategoryPitchChar,
			dataset.CategoryPitchTrichar,
		} {
			if !has[cat] {
				continue
			}

			stats, err := cfg.Store.ReadStats(cat, cfg.Filelist)

			switch {
			case err != nil:
				res.fail(fmt.Sprintf("%s stats: %v", cat, err))
				fmt.Fprintf(w, "%s %s stats: %v\n", FailMark, cat, err)
			case stats.Std <= 0:
				res.fail(fmt.Sprintf("%s stats: std %g not positive", cat, stats.Std))
				fmt.Fprintf(w, "%s %s stats: std %g not positive\n", FailMark, cat, stats.Std)
			default:
				fmt.Fprintf(w, "%s %s stats: mean %.3f, std %.3f\n", PassMark, cat, stats.Mean, stats.Std)
			}
		}
	}

	return res
}

// verifyUtterance re-checks one utterance. The mel frame count anchors every
// comparison, so an unreadable mel short-circuits the remaining checks.
func verifyUtterance(store *dataset.Store, has map[string]bool, id string) []error {
	mel, err := store.LoadTensor(dataset.CategoryMel, id)
	if err != nil {
		return []error{err}
	}

	if len(mel.Shape) != 2 {
		return []error{fmt.Errorf("mel has rank %d, want 2", len(mel.Shape))}
	}

	frames := int(mel.Shape[1])

	var errs []error

	var durs []int

	if has[dataset.CategoryDurations] {
		t, err := store.LoadTensor(dataset.CategoryDurations, id)
		if err != nil {
			errs = append(errs, err)
		} else {
			durs = t.Ints()
			if sum := sumInts(durs); sum != frames {
				errs = append(errs, fmt.Errorf("durations cover %d frames, mel has %d", sum, frames))
			}
		}
	}

	if has[dataset.CategoryPitchChar] && durs != nil {
		t, err := store.LoadTensor(dataset.CategoryPitchChar, id)
		if err != nil {
			errs = append(errs, err)
		} else if len(t.F32) != len(durs) {
			errs = append(errs, fmt.Errorf("%s has %d values, want %d", dataset.CategoryPitchChar, len(t.F32), len(durs)))
		}
	}

	if has[dataset.CategoryPitchTrichar] && durs != nil {
		t, err := store.LoadTensor(dataset.CategoryPitchTrichar, id)
		if err != nil {
			errs = append(errs, err)
		} else if len(t.F32) != 3*len(durs) {
			errs = append(errs, fmt.Errorf("%s has %d values, want %d", dataset.CategoryPitchTrichar, len(t.F32), 3*len(durs)))
		}
	}

	if has[dataset.CategoryPitchMel] {
		t, err := store.LoadTensor(dataset.CategoryPitchMel, id)
		if err != nil {
			errs = append(errs, err)
		} else if len(t.F32) != frames {
			errs = append(errs, fmt.Errorf("%s has %d values, mel has %d frames", dataset.CategoryPitchMel, len(t.F32), frames))
		}
	}

	return errs
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}

	return total
}
