package align

import "errors"

// ErrLengthMismatch is returned when a duration sequence cannot be
// reconciled with the utterance's mel frame count. It always indicates a
// data problem (mismatched audio and alignment), never one to patch over.
var ErrLengthMismatch = errors.New("duration/mel length mismatch")

// ErrMissingAlignment is returned when an utterance's alignment file is
// absent from the expected location.
var ErrMissingAlignment = errors.New("alignment file not found")
