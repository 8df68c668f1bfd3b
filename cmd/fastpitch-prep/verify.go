package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dan-wells/FastPitch/internal/dataset"
	"github.com/dan-wells/FastPitch/internal/doctor"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a prepared dataset for length consistency",
		Long: "Verify re-opens the artifacts of a prepared dataset and checks " +
			"that durations, pitch vectors and mel frame counts agree for every " +
			"utterance in the filelist.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			entries, err := dataset.ReadFilelist(cfg.Dataset.Filelist)
			if err != nil {
				return err
			}

			result := doctor.Run(doctor.Config{
				Store:    dataset.NewStore(cfg.Dataset.Path),
				Entries:  entries,
				Filelist: cfg.Dataset.Filelist,
			}, os.Stdout)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("dataset verification failed")
			}

			return nil
		},
	}

	return cmd
}
