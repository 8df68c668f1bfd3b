package seq

// Run is one maximal run of equal adjacent values.
type Run[T comparable] struct {
	Value  T
	Length int
}

// RunLengthEncode collapses adjacent equal values into (value, run length)
// pairs. A single-element input yields a single run, and the final run is
// always flushed even when no value change follows it. An empty input
// returns nil; callers that require at least one run must guard.
func RunLengthEncode[T comparable](values []T) []Run[T] {
	if len(values) == 0 {
		return nil
	}

	runs := make([]Run[T], 0, len(values))
	current := Run[T]{Value: values[0], Length: 1}

	for _, v := range values[1:] {
		if v == current.Value {
			current.Length++
			continue
		}
		runs = append(runs, current)
		current = Run[T]{Value: v, Length: 1}
	}

	return append(runs, current)
}
