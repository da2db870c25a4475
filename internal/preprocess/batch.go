package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/s1prep/internal/catalog"
	"github.com/robert-malhotra/s1prep/internal/scene"
)

// ItemWriter stores the catalog item of a processed pair.
type ItemWriter interface {
	Put(item *stac.Item) error
}

// Report summarizes a batch run.
type Report struct {
	RunID     string
	Processed []*Result
	Skipped   []scene.Pair
	Unpaired  []string
}

// Batch processes every archive pair found in an input directory.
type Batch struct {
	pipeline *Pipeline
	params   Params
	items    ItemWriter
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	logger   *slog.Logger
}

// NewBatch creates a batch driver for params using pipeline.
func NewBatch(pipeline *Pipeline, params Params) *Batch {
	return &Batch{
		pipeline: pipeline,
		params:   params,
		sleep:    sleepContext,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger for the batch
func (b *Batch) WithLogger(logger *slog.Logger) *Batch {
	b.logger = logger
	return b
}

// WithItemWriter enables catalog sidecars for processed pairs.
func (b *Batch) WithItemWriter(w ItemWriter) *Batch {
	b.items = w
	return b
}

// Run processes all pairs in filename order. It stops at the first failing pair
// and returns the partial report together with the error.
func (b *Batch) Run(ctx context.Context) (*Report, error) {
	if err := b.params.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	logger := b.logger.With(slog.String("run_id", report.RunID))

	if err := os.MkdirAll(b.params.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files, err := scene.ListArchives(b.params.InputPath)
	if err != nil {
		return nil, err
	}

	pairs, unpaired := scene.PairUp(files)
	report.Unpaired = unpaired
	for _, f := range unpaired {
		logger.WarnContext(ctx, "dropping unpaired archive", slog.String("file", f))
	}

	logger.InfoContext(ctx, "batch starting",
		slog.String("input", b.params.InputPath),
		slog.String("output", b.params.OutputPath),
		slog.Int("archives", len(files)),
		slog.Int("pairs", len(pairs)),
	)

	if b.params.ValidatePairs {
		for _, pair := range pairs {
			if err := pair.Validate(); err != nil {
				return report, err
			}
		}
	}

	projection := b.params.ProjectionOrDefault()
	ran := false
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		output := filepath.Join(b.params.OutputPath, pair.OutputName())
		if b.params.SkipExisting && exists(output) {
			logger.InfoContext(ctx, "output exists, skipping pair", slog.String("output", output))
			report.Skipped = append(report.Skipped, pair)
			continue
		}

		if ran {
			logger.DebugContext(ctx, "pausing between pairs", slog.Duration("pause", b.params.Pause))
			if err := b.sleep(ctx, b.params.Pause); err != nil {
				return report, err
			}
		}

		result, err := b.pipeline.ProcessPair(ctx, pair, projection, output)
		ran = true
		if err != nil {
			return report, err
		}
		report.Processed = append(report.Processed, result)

		b.writeItem(ctx, logger, result)
		releaseMemory()
	}

	logger.InfoContext(ctx, "batch finished",
		slog.Int("processed", len(report.Processed)),
		slog.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// writeItem logs sidecar failures; the raster is the product, the item only describes it.
func (b *Batch) writeItem(ctx context.Context, logger *slog.Logger, result *Result) {
	if b.items == nil {
		return
	}
	item, err := catalog.NewItem(catalog.Entry{
		Pair:      result.Pair,
		Output:    result.Output,
		Lineage:   result.Lineage,
		CropWKT:   b.pipeline.Crop().WKT,
		Processed: b.now(),
	})
	if err == nil {
		err = b.items.Put(item)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to write catalog item",
			slog.String("output", result.Output),
			slog.String("error", err.Error()),
		)
	}
}

// releaseMemory hands freed heap back to the OS before the next pair.
func releaseMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
