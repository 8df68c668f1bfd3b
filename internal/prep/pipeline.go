// Package prep orchestrates feature extraction over a filelist: batched
// utterance processing, optional teacher-forced model passes, pitch
// accumulation with a corpus-wide normalization barrier, and artifact
// persistence.
package prep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dan-wells/FastPitch/internal/acoustic"
	"github.com/dan-wells/FastPitch/internal/config"
	"github.com/dan-wells/FastPitch/internal/dataset"
	"github.com/dan-wells/FastPitch/internal/mel"
	"github.com/dan-wells/FastPitch/internal/pitch"
	"github.com/dan-wells/FastPitch/internal/text"
	"github.com/dan-wells/FastPitch/internal/trim"
)

// pitchCategories orders the pitch resolutions for deterministic
// accumulation and normalization.
var pitchCategories = []string{
	dataset.CategoryPitchMel,
	dataset.CategoryPitchChar,
	dataset.CategoryPitchTrichar,
}

// Options inject the pipeline's collaborators. Model must be non-nil when
// the configuration requests teacher-forced outputs; the pipeline does not
// close it. A nil Tracker selects the autocorrelation tracker configured by
// the pitch section.
type Options struct {
	Logger  *slog.Logger
	Model   acoustic.Model
	Tracker pitch.Tracker
}

// Pipeline runs the extraction pass described by one configuration.
type Pipeline struct {
	cfg       config.Config
	strategy  config.Strategy
	inputType text.InputType
	log       *slog.Logger

	store   *dataset.Store
	melx    *mel.Extractor
	pitchx  *pitch.Extractor
	encoder *text.Encoder
	model   acoustic.Model

	trimPolicy *trim.Policy

	accumulators map[string]*pitch.Accumulator
}

// New validates cfg and assembles a pipeline.
func New(cfg config.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strategy, err := cfg.DurationStrategy()
	if err != nil {
		return nil, err
	}

	inputType, err := text.ParseInputType(cfg.Extract.InputType)
	if err != nil {
		return nil, err
	}

	melx, err := mel.NewExtractor(mel.Options{
		SampleRate:   cfg.Audio.SamplingRate,
		FilterLength: cfg.Mel.FilterLength,
		HopLength:    cfg.Mel.HopLength,
		WinLength:    cfg.Mel.WinLength,
		Channels:     cfg.Mel.Channels,
		FMin:         cfg.Mel.FMin,
		FMax:         cfg.Mel.FMax,
	})
	if err != nil {
		return nil, err
	}

	if cfg.NeedsModel() && opts.Model == nil {
		return nil, errors.New("teacher-forced extraction requires an acoustic model")
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = &pitch.AutocorrTracker{
			MinHz:            cfg.Pitch.MinHz,
			MaxHz:            cfg.Pitch.MaxHz,
			VoicingThreshold: cfg.Pitch.VoicingThreshold,
		}
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	p := &Pipeline{
		cfg:       cfg,
		strategy:  strategy,
		inputType: inputType,
		log:       log,
		store:     dataset.NewStore(cfg.Dataset.Path),
		melx:      melx,
		pitchx:    pitch.NewExtractor(tracker),
		model:     opts.Model,

		accumulators: make(map[string]*pitch.Accumulator),
	}

	if cfg.NeedsModel() {
		p.encoder = text.NewEncoder(inputType)
	}

	if cfg.Extract.TrimSilence >= 0 {
		p.trimPolicy = &trim.Policy{
			KeepFrames: trim.KeepFrames(cfg.Extract.TrimSilence, cfg.Audio.SamplingRate, cfg.Mel.HopLength),
		}
	}

	if cfg.Extract.PitchMel {
		p.accumulators[dataset.CategoryPitchMel] = pitch.NewAccumulator()
	}
	if cfg.Extract.PitchChar {
		p.accumulators[dataset.CategoryPitchChar] = pitch.NewAccumulator()
	}
	if cfg.Extract.PitchTrichar {
		p.accumulators[dataset.CategoryPitchTrichar] = pitch.NewAccumulator()
	}

	return p, nil
}

// Run processes every filelist utterance in batches, then normalizes pitch
// and writes the corpus-level outputs. The first fatal error aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	entries, err := dataset.ReadFilelist(p.cfg.Dataset.Filelist)
	if err != nil {
		return err
	}

	if err := p.store.EnsureCategories(p.categories()...); err != nil {
		return err
	}

	p.log.Info("extraction started",
		"utterances", len(entries),
		"strategy", string(p.strategy),
		"batch_size", p.cfg.Model.BatchSize,
		"workers", p.cfg.Runtime.Workers,
	)

	results := make([]*dataset.Utterance, len(entries))

	batchSize := p.cfg.Model.BatchSize
	numBatches := (len(entries) + batchSize - 1) / batchSize

	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+batchSize, len(entries))
		began := time.Now()

		if err := p.runBatch(ctx, entries[start:end], results[start:end]); err != nil {
			return err
		}

		p.log.Info("batch processed",
			"batch", start/batchSize+1,
			"batches", numBatches,
			"utterances", end-start,
			"elapsed", time.Since(began).Round(time.Millisecond),
		)
	}

	if err := p.finalize(); err != nil {
		return err
	}

	if path := p.cfg.Dataset.MetadataPath; path != "" {
		if err := dataset.WriteMetadata(path, results); err != nil {
			return err
		}

		p.log.Info("metadata written", "path", path, "utterances", len(results))
	}

	return nil
}

// runBatch loads the batch in parallel, runs the acoustic model once over
// all of it when teacher-forced outputs are requested, then derives and
// persists per-utterance artifacts in parallel.
func (p *Pipeline) runBatch(ctx context.Context, entries []dataset.Entry, out []*dataset.Utterance) error {
	works := make([]*work, len(entries))
	for i := range entries {
		works[i] = &work{entry: entries[i]}
	}

	err := runParallel(ctx, len(works), p.cfg.Runtime.Workers, func(_ context.Context, i int) error {
		return p.load(works[i])
	})
	if err != nil {
		return err
	}

	if p.model != nil {
		if err := p.forward(ctx, works); err != nil {
			return err
		}
	}

	err = runParallel(ctx, len(works), p.cfg.Runtime.Workers, func(_ context.Context, i int) error {
		return p.derive(works[i])
	})
	if err != nil {
		return err
	}

	for i, w := range works {
		out[i] = w.utt
	}

	return nil
}

// finalize normalizes each requested pitch resolution over the whole corpus
// and persists the vectors and stats. It runs strictly after the batch
// loop, so every utterance has been accumulated.
func (p *Pipeline) finalize() error {
	for _, cat := range pitchCategories {
		acc, ok := p.accumulators[cat]
		if !ok {
			continue
		}

		stats, err := acc.Normalize()
		if err != nil {
			return fmt.Errorf("normalize %s: %w", cat, err)
		}

		p.log.Info("pitch normalized",
			"feature", cat,
			"utterances", acc.Len(),
			"mean", stats.Mean,
			"std", stats.Std,
		)

		err = acc.Each(func(id string, vec []float32) error {
			return p.store.SaveVector(cat, id, vec)
		})
		if err != nil {
			return err
		}

		if err := p.store.WriteStats(cat, p.cfg.Dataset.Filelist, stats); err != nil {
			return err
		}
	}

	return nil
}

// categories lists the artifact directories this run writes.
func (p *Pipeline) categories() []string {
	var out []string

	if p.cfg.Extract.Mels {
		out = append(out, dataset.CategoryMel)
	}
	if p.cfg.Extract.MelsTeacher {
		out = append(out, dataset.CategoryMelTeacher)
	}
	if p.cfg.Extract.Attentions {
		out = append(out, dataset.CategoryAttention)
	}
	if p.strategy != config.StrategyNone {
		out = append(out, dataset.CategoryDurations)
	}

	for _, cat := range pitchCategories {
		if _, ok := p.accumulators[cat]; ok {
			out = append(out, cat)
		}
	}

	return out
}
