// Package seq provides small sequence utilities shared by the duration and
// pitch pipelines: near-equal integer chunking and run-length encoding.
package seq

import "fmt"

// Chunks splits the integer duration n into k non-negative parts whose sum is
// exactly n, sized as evenly as possible. The first n%k parts receive one
// extra frame:
//
//	Chunks(3, 2) -> [2, 1]
//	Chunks(3, 3) -> [1, 1, 1]
//	Chunks(5, 3) -> [2, 2, 1]
func Chunks(n, k int) ([]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("seq: chunk count must be positive, got %d", k)
	}
	if n < 0 {
		return nil, fmt.Errorf("seq: cannot split negative duration %d", n)
	}

	out := make([]int, k)
	for i := range out {
		out[i] = n / k
	}
	for i := range n % k {
		out[i]++
	}

	return out, nil
}
