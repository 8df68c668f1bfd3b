package acoustic

import (
	"context"
	"fmt"
	"strings"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/dan-wells/FastPitch/internal/tensor"
)

// Graph contract of the teacher-forced acoustic model export. Inputs are
// zero-padded batches; outputs keep the padded input dimensions.
const (
	inputTexts    = "texts"
	inputTextLens = "text_lengths"
	inputMels     = "mels"
	inputMelLens  = "mel_lengths"

	outputMels    = "mel_outputs"
	outputPostnet = "mel_outputs_postnet"
	outputAligns  = "alignments"
)

// RunnerConfig holds ORT library settings for creating runners.
type RunnerConfig struct {
	ModelPath   string
	LibraryPath string
	APIVersion  uint32
}

// Runner wraps an ORT session for the acoustic model graph and implements
// Model.
type Runner struct {
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

// NewRunner loads the acoustic model checkpoint into an ORT session.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime: %w", err)
	}

	env, err := runtime.NewEnv("fastpitch-prep", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("ort env: %w", err)
	}

	session, err := runtime.NewSession(env, cfg.ModelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()

		return nil, fmt.Errorf("ort session for %s: %w", cfg.ModelPath, err)
	}

	return &Runner{
		runtime: runtime,
		env:     env,
		session: session,
	}, nil
}

// Forward runs the graph on a padded batch and crops the outputs back to
// per-utterance lengths.
func (r *Runner) Forward(ctx context.Context, batch Batch) (Outputs, error) {
	p, err := padBatch(batch)
	if err != nil {
		return Outputs{}, err
	}

	inputs := make(map[string]*ort.Value, 4)

	addFloat := func(name string, data []float32, shape []int64) error {
		v, err := ort.NewTensorValue(r.runtime, data, shape)
		if err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}

		inputs[name] = v

		return nil
	}
	addInt := func(name string, data []int64, shape []int64) error {
		v, err := ort.NewTensorValue(r.runtime, data, shape)
		if err != nil {
			return fmt.Errorf("input %q: %w", name, err)
		}

		inputs[name] = v

		return nil
	}

	b := int64(p.batch)
	if err := addInt(inputTexts, p.texts, []int64{b, int64(p.maxText)}); err != nil {
		closeORTValues(inputs)
		return Outputs{}, err
	}
	if err := addInt(inputTextLens, p.textLens, []int64{b}); err != nil {
		closeORTValues(inputs)
		return Outputs{}, err
	}
	if err := addFloat(inputMels, p.mels, []int64{b, int64(p.bins), int64(p.maxMel)}); err != nil {
		closeORTValues(inputs)
		return Outputs{}, err
	}
	if err := addInt(inputMelLens, p.melLens, []int64{b}); err != nil {
		closeORTValues(inputs)
		return Outputs{}, err
	}

	defer closeORTValues(inputs)

	results, err := r.session.Run(ctx, inputs)
	if err != nil {
		return Outputs{}, fmt.Errorf("acoustic forward: %w", err)
	}
	defer closeORTValues(results)

	melOut, err := outputData(results, outputMels, []int64{b, int64(p.bins), int64(p.maxMel)})
	if err != nil {
		return Outputs{}, err
	}

	postnet, err := outputData(results, outputPostnet, []int64{b, int64(p.bins), int64(p.maxMel)})
	if err != nil {
		return Outputs{}, err
	}

	aligns, err := outputData(results, outputAligns, []int64{b, int64(p.maxMel), int64(p.maxText)})
	if err != nil {
		return Outputs{}, err
	}

	return cropOutputs(p, melOut, postnet, aligns)
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

// paddedBatch is a Batch flattened into zero-padded row-major arrays.
type paddedBatch struct {
	texts    []int64
	textLens []int64
	mels     []float32
	melLens  []int64

	batch   int
	bins    int
	maxText int
	maxMel  int
}

func padBatch(batch Batch) (*paddedBatch, error) {
	if len(batch.Texts) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	if len(batch.Texts) != len(batch.Mels) {
		return nil, fmt.Errorf("batch has %d texts but %d mels", len(batch.Texts), len(batch.Mels))
	}

	p := &paddedBatch{batch: len(batch.Texts)}

	for i, mel := range batch.Mels {
		if mel == nil || mel.Rank() != 2 {
			return nil, fmt.Errorf("batch entry %d: mel must be rank 2", i)
		}
		if len(batch.Texts[i]) == 0 {
			return nil, fmt.Errorf("batch entry %d: empty text", i)
		}

		bins := int(mel.Dim(0))
		if i == 0 {
			p.bins = bins
		} else if bins != p.bins {
			return nil, fmt.Errorf("batch entry %d: %d mel bins, batch has %d", i, bins, p.bins)
		}

		if n := len(batch.Texts[i]); n > p.maxText {
			p.maxText = n
		}
		if f := int(mel.Dim(1)); f > p.maxMel {
			p.maxMel = f
		}
	}

	p.texts = make([]int64, p.batch*p.maxText)
	p.textLens = make([]int64, p.batch)
	p.mels = make([]float32, p.batch*p.bins*p.maxMel)
	p.melLens = make([]int64, p.batch)

	for i, text := range batch.Texts {
		copy(p.texts[i*p.maxText:], text)
		p.textLens[i] = int64(len(text))

		mel := batch.Mels[i]
		frames := int(mel.Dim(1))
		p.melLens[i] = int64(frames)

		base := i * p.bins * p.maxMel
		for c := 0; c < p.bins; c++ {
			row, err := mel.Row(int64(c))
			if err != nil {
				return nil, fmt.Errorf("batch entry %d: %w", i, err)
			}

			copy(p.mels[base+c*p.maxMel:], row)
		}
	}

	return p, nil
}

// cropOutputs splits padded batch outputs back into per-utterance tensors
// restricted to true lengths.
func cropOutputs(p *paddedBatch, melOut, postnet, aligns []float32) (Outputs, error) {
	out := Outputs{
		Mels:        make([]*tensor.Tensor, p.batch),
		MelsPostnet: make([]*tensor.Tensor, p.batch),
		Attentions:  make([]*tensor.Tensor, p.batch),
	}

	melStride := p.bins * p.maxMel
	alignStride := p.maxMel * p.maxText

	for i := 0; i < p.batch; i++ {
		frames := p.melLens[i]
		symbols := p.textLens[i]

		mel, err := cropSlice(melOut[i*melStride:(i+1)*melStride],
			[]int64{int64(p.bins), int64(p.maxMel)}, 1, frames)
		if err != nil {
			return Outputs{}, fmt.Errorf("crop mel %d: %w", i, err)
		}

		post, err := cropSlice(postnet[i*melStride:(i+1)*melStride],
			[]int64{int64(p.bins), int64(p.maxMel)}, 1, frames)
		if err != nil {
			return Outputs{}, fmt.Errorf("crop postnet mel %d: %w", i, err)
		}

		att, err := cropSlice(aligns[i*alignStride:(i+1)*alignStride],
			[]int64{int64(p.maxMel), int64(p.maxText)}, 0, frames)
		if err != nil {
			return Outputs{}, fmt.Errorf("crop attention %d: %w", i, err)
		}

		att, err = att.Narrow(1, 0, symbols)
		if err != nil {
			return Outputs{}, fmt.Errorf("crop attention %d: %w", i, err)
		}

		out.Mels[i] = mel
		out.MelsPostnet[i] = post
		out.Attentions[i] = att
	}

	return out, nil
}

func cropSlice(data []float32, shape []int64, dim int, length int64) (*tensor.Tensor, error) {
	t, err := tensor.New(data, shape)
	if err != nil {
		return nil, err
	}

	return t.Narrow(dim, 0, length)
}

func outputData(results map[string]*ort.Value, name string, wantShape []int64) ([]float32, error) {
	v, ok := results[name]
	if !ok {
		return nil, fmt.Errorf("graph output %q missing (available: %s)", name, availableNames(results))
	}

	data, shape, err := ort.GetTensorData[float32](v)
	if err != nil {
		return nil, fmt.Errorf("output %q: %w", name, err)
	}

	if len(shape) != len(wantShape) {
		return nil, fmt.Errorf("output %q has shape %v, want %v", name, shape, wantShape)
	}
	for i := range shape {
		if shape[i] != wantShape[i] {
			return nil, fmt.Errorf("output %q has shape %v, want %v", name, shape, wantShape)
		}
	}

	return data, nil
}

func availableNames(results map[string]*ort.Value) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, ", ")
}

func closeORTValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
