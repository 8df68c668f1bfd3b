package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Mel     MelConfig     `mapstructure:"mel"`
	Model   ModelConfig   `mapstructure:"model"`
	Extract ExtractConfig `mapstructure:"extract"`
	Pitch   PitchConfig   `mapstructure:"pitch"`
	Runtime RuntimeConfig `mapstructure:"runtime"`

	LogLevel string `mapstructure:"log_level"`
}

type DatasetConfig struct {
	Path         string `mapstructure:"path"`
	Filelist     string `mapstructure:"filelist"`
	MetadataPath string `mapstructure:"metadata_path"`
}

type AudioConfig struct {
	SamplingRate int     `mapstructure:"sampling_rate"`
	MaxWavValue  float64 `mapstructure:"max_wav_value"`
	PeakNorm     bool    `mapstructure:"peak_norm"`
}

type MelConfig struct {
	FilterLength int     `mapstructure:"filter_length"`
	HopLength    int     `mapstructure:"hop_length"`
	WinLength    int     `mapstructure:"win_length"`
	Channels     int     `mapstructure:"channels"`
	FMin         float64 `mapstructure:"fmin"`
	FMax         float64 `mapstructure:"fmax"`
}

type ModelConfig struct {
	CheckpointPath string `mapstructure:"checkpoint_path"`
	BatchSize      int    `mapstructure:"batch_size"`
}

// ExtractConfig selects which artifacts a run derives. TrimSilence is the
// residual silence length in seconds; negative disables trimming.
type ExtractConfig struct {
	Mels        bool `mapstructure:"mels"`
	MelsTeacher bool `mapstructure:"mels_teacher"`
	Attentions  bool `mapstructure:"attentions"`

	DursFromAttention bool `mapstructure:"durs_from_attention"`
	DursFromTextGrid  bool `mapstructure:"durs_from_textgrid"`
	DursFromUnits     bool `mapstructure:"durs_from_units"`

	PitchMel     bool `mapstructure:"pitch_mel"`
	PitchChar    bool `mapstructure:"pitch_char"`
	PitchTrichar bool `mapstructure:"pitch_trichar"`

	TrimSilence float64 `mapstructure:"trim_silence"`
	InputType   string  `mapstructure:"input_type"`
	Tier        string  `mapstructure:"tier"`
}

// Pitch reports whether any pitch resolution is requested.
func (e ExtractConfig) Pitch() bool {
	return e.PitchMel || e.PitchChar || e.PitchTrichar
}

type PitchConfig struct {
	MinHz            float64 `mapstructure:"min_hz"`
	MaxHz            float64 `mapstructure:"max_hz"`
	VoicingThreshold float64 `mapstructure:"voicing_threshold"`
}

type RuntimeConfig struct {
	Workers        int    `mapstructure:"workers"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Dataset: DatasetConfig{
			Path:         "data/LJSpeech-1.1",
			Filelist:     "filelists/ljs_audio_text_train_filelist.txt",
			MetadataPath: "",
		},
		Audio: AudioConfig{
			SamplingRate: 22050,
			MaxWavValue:  32768,
			PeakNorm:     false,
		},
		Mel: MelConfig{
			FilterLength: 1024,
			HopLength:    256,
			WinLength:    1024,
			Channels:     80,
			FMin:         0,
			FMax:         8000,
		},
		Model: ModelConfig{
			CheckpointPath: "",
			BatchSize:      32,
		},
		Extract: ExtractConfig{
			Mels:        true,
			TrimSilence: -1,
			InputType:   "char",
			Tier:        "phones",
		},
		Pitch: PitchConfig{
			MinHz:            75,
			MaxHz:            600,
			VoicingThreshold: 0.45,
		},
		Runtime: RuntimeConfig{
			Workers:        4,
			ORTLibraryPath: "",
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("dataset-path", defaults.Dataset.Path, "Dataset root directory holding wavs/ and artifact directories")
	fs.String("dataset-filelist", defaults.Dataset.Filelist, "Pipe-separated filelist of audio|text pairs")
	fs.String("filelist", defaults.Dataset.Filelist, "Filelist of audio|text pairs (alias for --dataset-filelist)")
	fs.String("dataset-metadata-path", defaults.Dataset.MetadataPath, "Write a training metadata file to this path")
	fs.Int("audio-sampling-rate", defaults.Audio.SamplingRate, "Expected waveform sampling rate")
	fs.Float64("audio-max-wav-value", defaults.Audio.MaxWavValue, "PCM full-scale value for waveform scaling")
	fs.Bool("audio-peak-norm", defaults.Audio.PeakNorm, "Peak-normalize waveforms on load")
	fs.Int("mel-filter-length", defaults.Mel.FilterLength, "STFT filter length")
	fs.Int("mel-hop-length", defaults.Mel.HopLength, "STFT hop length in samples")
	fs.Int("mel-win-length", defaults.Mel.WinLength, "STFT window length in samples")
	fs.Int("mel-channels", defaults.Mel.Channels, "Number of mel bins")
	fs.Float64("mel-fmin", defaults.Mel.FMin, "Lowest mel filterbank frequency in Hz")
	fs.Float64("mel-fmax", defaults.Mel.FMax, "Highest mel filterbank frequency in Hz")
	fs.String("model-checkpoint-path", defaults.Model.CheckpointPath, "Acoustic model ONNX graph for teacher-forced extraction")
	fs.Int("model-batch-size", defaults.Model.BatchSize, "Utterances per processing batch")
	fs.Int("batch-size", defaults.Model.BatchSize, "Utterances per batch (alias for --model-batch-size)")
	fs.Bool("extract-mels", defaults.Extract.Mels, "Extract and save mel spectrograms")
	fs.Bool("extract-mels-teacher", defaults.Extract.MelsTeacher, "Save teacher-forced model mel predictions")
	fs.Bool("extract-attentions", defaults.Extract.Attentions, "Save teacher-forced attention matrices")
	fs.Bool("extract-durs-from-attention", defaults.Extract.DursFromAttention, "Derive durations from attention argmax counts")
	fs.Bool("extract-durs-from-textgrid", defaults.Extract.DursFromTextGrid, "Derive durations from TextGrid alignments")
	fs.Bool("extract-durs-from-units", defaults.Extract.DursFromUnits, "Derive durations by run-length-encoding unit sequences")
	fs.Bool("extract-pitch-mel", defaults.Extract.PitchMel, "Extract frame-level pitch")
	fs.Bool("extract-pitch-char", defaults.Extract.PitchChar, "Extract symbol-level pitch")
	fs.Bool("extract-pitch-trichar", defaults.Extract.PitchTrichar, "Extract sub-symbol (third) pitch")
	fs.Float64("extract-trim-silence", defaults.Extract.TrimSilence, "Residual silence to keep in seconds; negative disables trimming")
	fs.String("extract-input-type", defaults.Extract.InputType, "Symbol type of filelist text: char, phone or unit")
	fs.String("extract-tier", defaults.Extract.Tier, "TextGrid tier holding the phone intervals")
	fs.Float64("pitch-min-hz", defaults.Pitch.MinHz, "Pitch tracker lower frequency bound")
	fs.Float64("pitch-max-hz", defaults.Pitch.MaxHz, "Pitch tracker upper frequency bound")
	fs.Float64("pitch-voicing-threshold", defaults.Pitch.VoicingThreshold, "Autocorrelation threshold below which frames are unvoiced")
	fs.Int("runtime-workers", defaults.Runtime.Workers, "Concurrent per-utterance workers")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("FASTPITCH")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "FASTPITCH_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("fastpitch-prep")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("dataset.path", c.Dataset.Path)
	v.SetDefault("dataset.filelist", c.Dataset.Filelist)
	v.SetDefault("dataset.metadata_path", c.Dataset.MetadataPath)
	v.SetDefault("audio.sampling_rate", c.Audio.SamplingRate)
	v.SetDefault("audio.max_wav_value", c.Audio.MaxWavValue)
	v.SetDefault("audio.peak_norm", c.Audio.PeakNorm)
	v.SetDefault("mel.filter_length", c.Mel.FilterLength)
	v.SetDefault("mel.hop_length", c.Mel.HopLength)
	v.SetDefault("mel.win_length", c.Mel.WinLength)
	v.SetDefault("mel.channels", c.Mel.Channels)
	v.SetDefault("mel.fmin", c.Mel.FMin)
	v.SetDefault("mel.fmax", c.Mel.FMax)
	v.SetDefault("model.checkpoint_path", c.Model.CheckpointPath)
	v.SetDefault("model.batch_size", c.Model.BatchSize)
	v.SetDefault("extract.mels", c.Extract.Mels)
	v.SetDefault("extract.mels_teacher", c.Extract.MelsTeacher)
	v.SetDefault("extract.attentions", c.Extract.Attentions)
	v.SetDefault("extract.durs_from_attention", c.Extract.DursFromAttention)
	v.SetDefault("extract.durs_from_textgrid", c.Extract.DursFromTextGrid)
	v.SetDefault("extract.durs_from_units", c.Extract.DursFromUnits)
	v.SetDefault("extract.pitch_mel", c.Extract.PitchMel)
	v.SetDefault("extract.pitch_char", c.Extract.PitchChar)
	v.SetDefault("extract.pitch_trichar", c.Extract.PitchTrichar)
	v.SetDefault("extract.trim_silence", c.Extract.TrimSilence)
	v.SetDefault("extract.input_type", c.Extract.InputType)
	v.SetDefault("extract.tier", c.Extract.Tier)
	v.SetDefault("pitch.min_hz", c.Pitch.MinHz)
	v.SetDefault("pitch.max_hz", c.Pitch.MaxHz)
	v.SetDefault("pitch.voicing_threshold", c.Pitch.VoicingThreshold)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("dataset.path", "dataset-path")
	v.RegisterAlias("dataset.filelist", "dataset-filelist")
	v.RegisterAlias("dataset.filelist", "filelist")
	v.RegisterAlias("dataset.metadata_path", "dataset-metadata-path")
	v.RegisterAlias("audio.sampling_rate", "audio-sampling-rate")
	v.RegisterAlias("audio.max_wav_value", "audio-max-wav-value")
	v.RegisterAlias("audio.peak_norm", "audio-peak-norm")
	v.RegisterAlias("mel.filter_length", "mel-filter-length")
	v.RegisterAlias("mel.hop_length", "mel-hop-length")
	v.RegisterAlias("mel.win_length", "mel-win-length")
	v.RegisterAlias("mel.channels", "mel-channels")
	v.RegisterAlias("mel.fmin", "mel-fmin")
	v.RegisterAlias("mel.fmax", "mel-fmax")
	v.RegisterAlias("model.checkpoint_path", "model-checkpoint-path")
	v.RegisterAlias("model.batch_size", "model-batch-size")
	v.RegisterAlias("model.batch_size", "batch-size")
	v.RegisterAlias("extract.mels", "extract-mels")
	v.RegisterAlias("extract.mels_teacher", "extract-mels-teacher")
	v.RegisterAlias("extract.attentions", "extract-attentions")
	v.RegisterAlias("extract.durs_from_attention", "extract-durs-from-attention")
	v.RegisterAlias("extract.durs_from_textgrid", "extract-durs-from-textgrid")
	v.RegisterAlias("extract.durs_from_units", "extract-durs-from-units")
	v.RegisterAlias("extract.pitch_mel", "extract-pitch-mel")
	v.RegisterAlias("extract.pitch_char", "extract-pitch-char")
	v.RegisterAlias("extract.pitch_trichar", "extract-pitch-trichar")
	v.RegisterAlias("extract.trim_silence", "extract-trim-silence")
	v.RegisterAlias("extract.input_type", "extract-input-type")
	v.RegisterAlias("extract.tier", "extract-tier")
	v.RegisterAlias("pitch.min_hz", "pitch-min-hz")
	v.RegisterAlias("pitch.max_hz", "pitch-max-hz")
	v.RegisterAlias("pitch.voicing_threshold", "pitch-voicing-threshold")
	v.RegisterAlias("runtime.workers", "runtime-workers")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("log_level", "log-level")
}
