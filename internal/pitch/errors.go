package pitch

import "errors"

// ErrTrackDeviation is returned when the raw pitch track's length deviates
// from the utterance's mel length by more than one frame, indicating the
// tracker and the alignment disagree about the audio.
var ErrTrackDeviation = errors.New("pitch track length deviation")

// ErrClosed is returned when an accumulator is used after normalization.
// Normalizing twice would z-score already-normalized values.
var ErrClosed = errors.New("pitch accumulator already normalized")
