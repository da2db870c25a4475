package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/s1prep/internal/catalog"
	"github.com/robert-malhotra/s1prep/internal/config"
	"github.com/robert-malhotra/s1prep/internal/preprocess"
	"github.com/robert-malhotra/s1prep/internal/snap"
)

var preprocessFlags struct {
	input  string
	output string
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Run every archive pair in INPUT_PATH through the SNAP chain",
	Long: `Pairs the archives in INPUT_PATH in filename order and writes one
terrain-corrected dB GeoTIFF per pair into OUTPUT_PATH, with a STAC item
sidecar next to each raster. A trailing unpaired archive is skipped.

gpt must be installed; SNAP_GPT_PATH overrides its location.`,
	RunE: runPreprocess,
}

func init() {
	f := preprocessCmd.Flags()
	f.StringVar(&preprocessFlags.input, "input", "", "Input directory (overrides INPUT_PATH)")
	f.StringVar(&preprocessFlags.output, "output", "", "Output directory (overrides OUTPUT_PATH)")
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	if preprocessFlags.input != "" {
		cfg.Preprocess.InputPath = preprocessFlags.input
	}
	if preprocessFlags.output != "" {
		cfg.Preprocess.OutputPath = preprocessFlags.output
	}
	return preprocessBatch(cmd.Context(), cfg, logger)
}

func preprocessBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	p := cfg.Preprocess
	params := preprocess.Params{
		InputPath:     p.InputPath,
		OutputPath:    p.OutputPath,
		Projection:    p.Projection,
		Pause:         p.Pause,
		ValidatePairs: p.ValidatePairs,
		SkipExisting:  p.SkipExisting,
	}

	batch := preprocess.NewBatch(pipeline, params).
		WithLogger(logger).
		WithItemWriter(catalog.NewStore(p.OutputPath))

	report, err := batch.Run(ctx)
	if report != nil {
		logger.Info("batch finished",
			slog.String("run_id", report.RunID),
			slog.Int("processed", len(report.Processed)),
			slog.Int("skipped", len(report.Skipped)),
			slog.Int("unpaired", len(report.Unpaired)),
		)
	}
	if err != nil {
		return fmt.Errorf("preprocessing failed: %w", err)
	}
	return nil
}

func newPipeline(cfg *config.Config, logger *slog.Logger) (*preprocess.Pipeline, error) {
	engine := snap.NewGPT(cfg.SNAP.GPTPath).
		WithLogger(logger).
		WithCacheSize(cfg.SNAP.CacheSize).
		WithParallelism(cfg.SNAP.Parallelism).
		WithTimeout(cfg.SNAP.Timeout)

	pipeline := preprocess.NewPipeline(engine).
		WithLogger(logger).
		WithDEM(cfg.Preprocess.DEMName)

	switch {
	case cfg.Preprocess.SubsetWKT != "":
		pipeline = pipeline.WithCrop(preprocess.Crop{WKT: cfg.Preprocess.SubsetWKT})
	case cfg.Preprocess.SubsetRegion != "":
		crop, err := preprocess.ParseRegion(cfg.Preprocess.SubsetRegion)
		if err != nil {
			return nil, fmt.Errorf("invalid SUBSET_REGION: %w", err)
		}
		pipeline = pipeline.WithCrop(crop)
	}
	return pipeline, nil
}
