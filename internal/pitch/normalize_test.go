package pitch

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeKnownStats(t *testing.T) {
	acc := NewAccumulator()

	mustAdd(t, acc, "a", []float32{1, 2, 0})
	mustAdd(t, acc, "b", []float32{3, 0, 4})

	stats, err := acc.Normalize()
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	// Pooled voiced values are [1 2 3 4]: mean 2.5, population std sqrt(1.25).
	if math.Abs(stats.Mean-2.5) > 1e-9 {
		t.Errorf("Mean = %g, want 2.5", stats.Mean)
	}
	if math.Abs(stats.Std-math.Sqrt(1.25)) > 1e-9 {
		t.Errorf("Std = %g, want %g", stats.Std, math.Sqrt(1.25))
	}

	var a []float32

	err = acc.Each(func(id string, vec []float32) error {
		if id == "a" {
			a = vec
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}

	want := float32((1.0 - 2.5) / math.Sqrt(1.25))
	if math.Abs(float64(a[0]-want)) > 1e-6 {
		t.Errorf("a[0] = %g, want %g", a[0], want)
	}
}

func TestNormalizePreservesUnvoicedZeros(t *testing.T) {
	acc := NewAccumulator()

	mustAdd(t, acc, "a", []float32{180, 0, 190, 0, 210})
	mustAdd(t, acc, "b", []float32{0, 0, 170, 220})

	if _, err := acc.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	zeroIdx := map[string][]int{"a": {1, 3}, "b": {0, 1}}

	err := acc.Each(func(id string, vec []float32) error {
		for _, i := range zeroIdx[id] {
			if vec[i] != 0 {
				t.Errorf("%s[%d] = %g, want unvoiced marker 0 to survive", id, i, vec[i])
			}
		}

		for i, v := range vec {
			if v == 0 && !containsInt(zeroIdx[id], i) {
				t.Errorf("%s[%d] became 0 but was voiced", id, i)
			}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
}

func TestNormalizePooledMoments(t *testing.T) {
	acc := NewAccumulator()

	mustAdd(t, acc, "u1", []float32{190, 210, 0, 185})
	mustAdd(t, acc, "u2", []float32{0, 240, 230})
	mustAdd(t, acc, "u3", []float32{175, 0, 205, 221, 0})

	if _, err := acc.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	var pool []float64

	err := acc.Each(func(_ string, vec []float32) error {
		for _, v := range vec {
			if v != 0 {
				pool = append(pool, float64(v))
			}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}

	var sum float64
	for _, v := range pool {
		sum += v
	}

	mean := sum / float64(len(pool))

	var variance float64
	for _, v := range pool {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(pool))

	if math.Abs(mean) > 1e-5 {
		t.Errorf("post-normalization pooled mean = %g, want ≈0", mean)
	}
	if math.Abs(math.Sqrt(variance)-1) > 1e-5 {
		t.Errorf("post-normalization pooled std = %g, want ≈1", math.Sqrt(variance))
	}
}

func TestNormalizeTwiceFails(t *testing.T) {
	acc := NewAccumulator()
	mustAdd(t, acc, "a", []float32{100, 200})

	if _, err := acc.Normalize(); err != nil {
		t.Fatalf("first Normalize returned error: %v", err)
	}

	if _, err := acc.Normalize(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Normalize error = %v, want ErrClosed", err)
	}
}

func TestAddAfterNormalizeFails(t *testing.T) {
	acc := NewAccumulator()
	mustAdd(t, acc, "a", []float32{100, 200})

	if _, err := acc.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if err := acc.Add("b", []float32{150}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Add after Normalize error = %v, want ErrClosed", err)
	}
}

func TestAddDuplicateID(t *testing.T) {
	acc := NewAccumulator()
	mustAdd(t, acc, "a", []float32{100})

	if err := acc.Add("a", []float32{200}); err == nil {
		t.Fatal("duplicate Add succeeded, want error")
	}
}

func TestAddStoresCopy(t *testing.T) {
	acc := NewAccumulator()

	src := []float32{100, 200}
	mustAdd(t, acc, "a", src)

	src[0] = 999

	err := acc.Each(func(_ string, vec []float32) error {
		if vec[0] != 100 {
			t.Errorf("stored[0] = %g, want 100 (accumulator must not alias caller arrays)", vec[0])
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
}

func TestNormalizeDegenerateCorpora(t *testing.T) {
	t.Run("all unvoiced", func(t *testing.T) {
		acc := NewAccumulator()
		mustAdd(t, acc, "a", []float32{0, 0, 0})

		if _, err := acc.Normalize(); err == nil {
			t.Fatal("expected error for corpus with no voiced frames")
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		acc := NewAccumulator()
		mustAdd(t, acc, "a", []float32{150, 150})
		mustAdd(t, acc, "b", []float32{150, 0})

		if _, err := acc.Normalize(); err == nil {
			t.Fatal("expected error for zero-variance corpus")
		}
	})
}

func TestEachVisitsInIDOrder(t *testing.T) {
	acc := NewAccumulator()

	for _, id := range []string{"utt3", "utt1", "utt2"} {
		mustAdd(t, acc, id, []float32{100})
	}

	var seen []string

	err := acc.Each(func(id string, _ []float32) error {
		seen = append(seen, id)

		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}

	want := []string{"utt1", "utt2", "utt3"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("visit order %v, want %v", seen, want)
		}
	}
}

func mustAdd(t *testing.T, acc *Accumulator, id string, vec []float32) {
	t.Helper()

	if err := acc.Add(id, vec); err != nil {
		t.Fatalf("Add(%q) returned error: %v", id, err)
	}
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}

	return false
}
