// Package acoustic runs the external acoustic model in teacher-forced mode
// to obtain predicted mels and attention matrices for duration extraction.
// The pipeline depends only on the Model capability; tests substitute a
// stub and never load a runtime.
package acoustic

import (
	"context"

	"github.com/dan-wells/FastPitch/internal/tensor"
)

// Batch is one forward pass worth of utterances. Texts carry encoded
// symbol ids, Mels the ground-truth spectrograms the decoder is forced
// with. Entries pair up by index.
type Batch struct {
	Texts [][]int64
	Mels  []*tensor.Tensor
}

// Outputs holds per-utterance forward results, cropped to each utterance's
// true mel and text lengths.
type Outputs struct {
	// Mels are decoder mel predictions, [bins, frames].
	Mels []*tensor.Tensor
	// MelsPostnet are postnet-refined predictions, [bins, frames].
	MelsPostnet []*tensor.Tensor
	// Attentions are decoder attention weights, [frames, symbols].
	Attentions []*tensor.Tensor
}

// Model is the acoustic model capability.
type Model interface {
	Forward(ctx context.Context, batch Batch) (Outputs, error)
	Close()
}
