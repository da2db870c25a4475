package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download, then preprocess the downloaded archives",
	Long: `Runs download followed by preprocess. SAVE_DIR is used as the input
directory unless INPUT_PATH is set explicitly.`,
	RunE: runAll,
}

func runAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	files, err := download(ctx, cmd.OutOrStdout(), cfg, logger)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	logger.Info("download finished", "files", len(files))

	if cfg.Preprocess.InputPath == "" {
		cfg.Preprocess.InputPath = cfg.Acquire.SaveDir
	}
	return preprocessBatch(ctx, cfg, logger)
}
