package config

import (
	"errors"
	"fmt"

	"github.com/dan-wells/FastPitch/internal/text"
)

// ErrConflict marks configuration combinations rejected at startup, before
// any per-utterance work begins.
var ErrConflict = errors.New("configuration conflict")

// Validate checks numeric sanity and the cross-option rules of a run.
func (c Config) Validate() error {
	if c.Audio.SamplingRate <= 0 {
		return fmt.Errorf("audio.sampling_rate must be positive, got %d", c.Audio.SamplingRate)
	}
	if c.Audio.MaxWavValue <= 0 {
		return fmt.Errorf("audio.max_wav_value must be positive, got %g", c.Audio.MaxWavValue)
	}
	if c.Mel.FilterLength <= 0 || c.Mel.HopLength <= 0 || c.Mel.WinLength <= 0 {
		return fmt.Errorf("mel lengths must be positive, got filter %d hop %d win %d",
			c.Mel.FilterLength, c.Mel.HopLength, c.Mel.WinLength)
	}
	if c.Mel.Channels <= 0 {
		return fmt.Errorf("mel.channels must be positive, got %d", c.Mel.Channels)
	}
	if c.Mel.FMax <= c.Mel.FMin {
		return fmt.Errorf("mel.fmax %g must exceed mel.fmin %g", c.Mel.FMax, c.Mel.FMin)
	}
	if c.Model.BatchSize <= 0 {
		return fmt.Errorf("model.batch_size must be positive, got %d", c.Model.BatchSize)
	}
	if c.Runtime.Workers <= 0 {
		return fmt.Errorf("runtime.workers must be positive, got %d", c.Runtime.Workers)
	}
	if c.Pitch.MinHz <= 0 || c.Pitch.MaxHz <= c.Pitch.MinHz {
		return fmt.Errorf("pitch bounds must satisfy 0 < min < max, got %g..%g", c.Pitch.MinHz, c.Pitch.MaxHz)
	}

	inputType, err := text.ParseInputType(c.Extract.InputType)
	if err != nil {
		return fmt.Errorf("extract.input_type: %w", err)
	}

	strategy, err := c.DurationStrategy()
	if err != nil {
		return err
	}

	if c.Extract.Pitch() && strategy == StrategyNone {
		return fmt.Errorf("%w: pitch extraction requires a duration strategy", ErrConflict)
	}
	if c.Extract.TrimSilence >= 0 && strategy != StrategyTextGrid {
		return fmt.Errorf("%w: silence trimming requires TextGrid durations for silence labels", ErrConflict)
	}
	if c.NeedsModel() && c.Model.CheckpointPath == "" {
		return fmt.Errorf("%w: teacher-forced extraction requires model.checkpoint_path", ErrConflict)
	}
	if strategy == StrategyUnits && inputType != text.InputUnit {
		return fmt.Errorf("%w: unit run-length durations require extract.input_type unit, got %s", ErrConflict, inputType)
	}
	if strategy == StrategyTextGrid && c.Extract.Tier == "" {
		return fmt.Errorf("%w: TextGrid durations require extract.tier", ErrConflict)
	}

	return nil
}
