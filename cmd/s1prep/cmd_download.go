package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/s1prep/internal/acquire"
	"github.com/robert-malhotra/s1prep/internal/asf"
	"github.com/robert-malhotra/s1prep/internal/config"
)

var downloadFlags struct {
	granules []string
	list     bool
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Search the ASF archive and download matching archives into SAVE_DIR",
	Long: `Searches the ASF archive for FOOTPRINT between START_DATE and END_DATE and
downloads every matching archive into SAVE_DIR. Archives already present with
the expected size are skipped.

Dates accept yyyyMMdd, RFC 3339 or date math such as NOW-14DAYS/DAY.
Credentials come from EARTHDATA_TOKEN or EARTHDATA_USERNAME/EARTHDATA_PASSWORD.`,
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringSliceVar(&downloadFlags.granules, "granule", nil, "Download these scene names instead of running the query (repeatable)")
	f.BoolVar(&downloadFlags.list, "list", false, "Print the matching scenes without downloading")
}

func runDownload(cmd *cobra.Command, _ []string) error {
	files, err := download(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f.Path)
	}
	return nil
}

// download runs the acquisition stage. With --list it writes the matches to out and returns no files.
func download(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) ([]acquire.File, error) {
	if len(downloadFlags.granules) > 0 {
		return downloadGranules(ctx, out, cfg, logger)
	}

	if err := cfg.ValidateAcquire(); err != nil {
		return nil, fmt.Errorf("invalid acquisition settings: %w", err)
	}

	q, err := newQuery(cfg.Acquire, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	d := newDownloader(cfg, logger)

	if downloadFlags.list {
		features, err := d.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		return nil, listFeatures(out, features)
	}

	logger.Info("acquiring scenes",
		slog.String("footprint", q.Footprint),
		slog.Time("start", q.Start),
		slog.Time("end", q.End),
		slog.String("product_type", q.ProductType),
		slog.Any("beam_mode", q.BeamMode),
		slog.Any("polarization", q.Polarization),
		slog.String("save_dir", cfg.Acquire.SaveDir),
	)
	return d.Acquire(ctx, q)
}

func downloadGranules(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) ([]acquire.File, error) {
	if cfg.Acquire.SaveDir == "" && !downloadFlags.list {
		return nil, fmt.Errorf("SAVE_DIR is required")
	}

	creds := credentials(cfg.Acquire)
	if creds.IsZero() && !downloadFlags.list {
		return nil, fmt.Errorf("EARTHDATA_TOKEN or EARTHDATA_USERNAME/EARTHDATA_PASSWORD must be set")
	}

	client := newASFClient(cfg, logger)
	features := make([]asf.Feature, 0, len(downloadFlags.granules))
	for _, name := range downloadFlags.granules {
		f, err := client.GetGranule(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up granule %s: %w", name, err)
		}
		features = append(features, *f)
	}

	if downloadFlags.list {
		return nil, listFeatures(out, features)
	}

	return newDownloader(cfg, logger).Download(ctx, features)
}

func newASFClient(cfg *config.Config, logger *slog.Logger) *asf.Client {
	return asf.NewClient(cfg.ASF.BaseURL, cfg.ASF.Timeout).
		WithLogger(logger).
		WithCredentials(credentials(cfg.Acquire)).
		WithLoginHost(cfg.ASF.LoginHost)
}

func credentials(a config.AcquireConfig) asf.Credentials {
	return asf.Credentials{
		Username: a.Username,
		Password: a.Password,
		Token:    a.Token,
	}
}

// newQuery builds the search from the acquisition settings.
func newQuery(a config.AcquireConfig, now time.Time) (acquire.Query, error) {
	q, err := acquire.NewQuery(a.Footprint, a.StartDate, a.EndDate, a.ProductType, now)
	if err != nil {
		return acquire.Query{}, err
	}
	return q.WithFilters(acquire.Filters{
		Platform:        a.Platform,
		BeamMode:        a.BeamMode,
		Polarization:    a.Polarization,
		FlightDirection: a.FlightDirection,
		RelativeOrbit:   a.RelativeOrbit,
		MaxResults:      a.MaxResults,
	})
}

// listFeatures writes one tab-separated line per match: scene, file, start time, size.
func listFeatures(out io.Writer, features []asf.Feature) error {
	for _, f := range features {
		p := f.Properties
		size, _ := p.Size()
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%d\n", p.SceneName, p.FileName, p.StartTime, size); err != nil {
			return err
		}
	}
	return nil
}

func newDownloader(cfg *config.Config, logger *slog.Logger) *acquire.Downloader {
	return acquire.NewDownloader(newASFClient(cfg, logger), cfg.Acquire.SaveDir).
		WithLogger(logger).
		WithConcurrency(cfg.Acquire.Concurrency)
}
