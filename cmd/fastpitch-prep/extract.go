package main

import (
	"fmt"
	"log/slog"

	"github.com/dan-wells/FastPitch/internal/acoustic"
	"github.com/dan-wells/FastPitch/internal/prep"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract training features for every utterance in the filelist",
		Long: "Extract reads the filelist, computes the artifacts selected by the " +
			"extract.* options (mel spectrograms, durations, pitch) and writes " +
			"them under the dataset path, one directory per artifact category.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := prep.Options{Logger: slog.Default()}

			if cfg.NeedsModel() {
				info, err := acoustic.DetectRuntime(cfg.Runtime)
				if err != nil {
					return err
				}

				slog.Info("onnx runtime located", "library", info.LibraryPath, "version", info.Version)

				model, err := acoustic.NewRunner(acoustic.RunnerConfig{
					ModelPath:   cfg.Model.CheckpointPath,
					LibraryPath: info.LibraryPath,
				})
				if err != nil {
					return fmt.Errorf("load acoustic model: %w", err)
				}
				defer model.Close()

				opts.Model = model
			}

			p, err := prep.New(cfg, opts)
			if err != nil {
				return err
			}

			return p.Run(cmd.Context())
		},
	}

	return cmd
}
