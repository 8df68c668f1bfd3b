package prep

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dan-wells/FastPitch/internal/acoustic"
	"github.com/dan-wells/FastPitch/internal/align"
	"github.com/dan-wells/FastPitch/internal/audio"
	"github.com/dan-wells/FastPitch/internal/config"
	"github.com/dan-wells/FastPitch/internal/dataset"
	"github.com/dan-wells/FastPitch/internal/pitch"
	"github.com/dan-wells/FastPitch/internal/tensor"
	"github.com/dan-wells/FastPitch/internal/text"
	"github.com/dan-wells/FastPitch/internal/trim"
)

// work carries one utterance's state between pipeline stages.
type work struct {
	entry dataset.Entry

	utt *dataset.Utterance
	sig *audio.Signal

	// texts is the encoded model input, present only when a model runs.
	texts []int64
	// melTeacher and attention are teacher-forced model outputs, already
	// cropped to this utterance.
	melTeacher *tensor.Tensor
	attention  *tensor.Tensor
}

// load reads the waveform, derives the symbol sequence, and computes the
// reference mel spectrogram. The mel is always computed even when not
// persisted: its frame count anchors every later length check.
func (p *Pipeline) load(w *work) error {
	id := w.entry.ID

	path := w.entry.AudioPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.cfg.Dataset.Path, path)
	}

	sig, err := audio.Load(path, audio.LoadOptions{
		SampleRate:  p.cfg.Audio.SamplingRate,
		MaxWavValue: p.cfg.Audio.MaxWavValue,
		PeakNorm:    p.cfg.Audio.PeakNorm,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	symbols, err := text.Symbols(w.entry.Text, p.inputType)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	m, err := p.melx.Spectrogram(sig.Samples)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	w.sig = sig
	w.utt = &dataset.Utterance{
		ID:        id,
		AudioPath: path,
		Text:      w.entry.Text,
		Symbols:   symbols,
		Mel:       m,
	}

	if p.encoder != nil {
		texts, err := p.encoder.Encode(symbols)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}

		w.texts = texts
	}

	return nil
}

// forward runs the whole batch through the acoustic model once and fans the
// per-utterance outputs back onto the works.
func (p *Pipeline) forward(ctx context.Context, works []*work) error {
	batch := acoustic.Batch{
		Texts: make([][]int64, len(works)),
		Mels:  make([]*tensor.Tensor, len(works)),
	}
	for i, w := range works {
		batch.Texts[i] = w.texts
		batch.Mels[i] = w.utt.Mel
	}

	outs, err := p.model.Forward(ctx, batch)
	if err != nil {
		return fmt.Errorf("model forward: %w", err)
	}

	for i, w := range works {
		if p.cfg.Extract.MelsTeacher {
			w.melTeacher = outs.MelsPostnet[i]
		}

		if p.cfg.Extract.Attentions || p.strategy == config.StrategyAttention {
			w.attention = outs.Attentions[i]
		}
	}

	return nil
}

// derive turns one loaded utterance into its training targets: durations by
// the configured strategy, pitch at the requested resolutions, optional
// silence trimming, then persistence and pitch accumulation.
func (p *Pipeline) derive(w *work) error {
	id := w.utt.ID

	var win *pitch.Window

	switch p.strategy {
	case config.StrategyAttention:
		durs, err := align.AttentionDurations(w.attention, w.utt.FrameCount(), len(w.utt.Symbols))
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}

		w.utt.Durations = durs

	case config.StrategyTextGrid:
		al, err := align.TextGridDurations(
			p.store.TextGridPath(id), p.cfg.Extract.Tier,
			p.cfg.Audio.SamplingRate, p.cfg.Mel.HopLength, w.utt.FrameCount())
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}

		// The alignment phones replace the transcript symbols so that
		// durations, pitch and metadata all describe the same sequence.
		w.utt.Symbols = al.Phones
		w.utt.Durations = al.Durations
		w.utt.Start = al.Start
		w.utt.End = al.End
		win = &pitch.Window{Start: al.Start, End: al.End}

	case config.StrategyUnits:
		runs, err := align.UnitRunDurations(w.utt.Symbols, w.utt.FrameCount())
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}

		if runs.Anomalous() {
			p.log.Warn("unit run adjustment exceeds one frame",
				"utterance", id,
				"adjustment", runs.Adjustment,
			)
		}

		w.utt.Symbols = runs.Units
		w.utt.Durations = runs.Durations
	}

	if p.cfg.Extract.Pitch() {
		vecs, err := p.pitchx.Extract(w.sig, w.utt.Durations, win)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}

		w.utt.PitchMel = vecs.Mel
		w.utt.PitchSymbol = vecs.Symbol
		w.utt.PitchSubSymbol = vecs.SubSymbol
	}

	if p.trimPolicy != nil {
		trimmed, err := trim.Apply(w.utt, *p.trimPolicy)
		if err != nil {
			return err
		}

		w.utt = trimmed
	}

	return p.persist(w)
}

// persist writes the utterance's artifacts and hands its pitch vectors to
// the accumulators. Pitch files themselves are written later, after
// normalization.
func (p *Pipeline) persist(w *work) error {
	id := w.utt.ID

	if p.cfg.Extract.Mels {
		if err := p.store.SaveTensor(dataset.CategoryMel, id, w.utt.Mel); err != nil {
			return err
		}
	}

	if w.melTeacher != nil {
		if err := p.store.SaveTensor(dataset.CategoryMelTeacher, id, w.melTeacher); err != nil {
			return err
		}
	}

	if p.cfg.Extract.Attentions && w.attention != nil {
		if err := p.store.SaveTensor(dataset.CategoryAttention, id, w.attention); err != nil {
			return err
		}
	}

	if p.strategy != config.StrategyNone {
		if err := p.store.SaveInts(dataset.CategoryDurations, id, w.utt.Durations); err != nil {
			return err
		}
	}

	for _, cat := range pitchCategories {
		acc, ok := p.accumulators[cat]
		if !ok {
			continue
		}

		var vec []float32

		switch cat {
		case dataset.CategoryPitchMel:
			vec = w.utt.PitchMel
		case dataset.CategoryPitchChar:
			vec = w.utt.PitchSymbol
		case dataset.CategoryPitchTrichar:
			vec = w.utt.PitchSubSymbol
		}

		if err := acc.Add(id, vec); err != nil {
			return fmt.Errorf("accumulate %s: %w", cat, err)
		}
	}

	return nil
}
