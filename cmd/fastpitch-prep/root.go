package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dan-wells/FastPitch/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

// NewRootCmd builds the fastpitch-prep command tree. Configuration is
// resolved once in PersistentPreRunE so every subcommand sees the same
// merged view of defaults, config file, environment and flags.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "fastpitch-prep",
		Short: "FastPitch training data preparation",
		Long: "fastpitch-prep derives the per-utterance training targets of a " +
			"FastPitch dataset: mel spectrograms, symbol durations from one of " +
			"three alignment strategies, and pitch contours at frame, symbol " +
			"and sub-symbol resolution.",
		// main prints the returned error once; without these cobra would
		// repeat it and dump the full flag set after every pipeline failure.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg = loaded
			setupLogger(loaded.LogLevel)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger. Unknown
// levels fall back to info.
func setupLogger(levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Dataset.Filelist == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded: pass --dataset-filelist or a --config file")
	}

	return activeCfg, nil
}
