package acquire

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/s1prep/internal/asf"
)

// ErrChecksumMismatch is returned when a downloaded file does not match its MD5 sum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// DefaultConcurrency is the number of parallel downloads when none is configured.
const DefaultConcurrency = 2

// Source searches the archive and streams files from it.
type Source interface {
	Search(ctx context.Context, params asf.SearchParams) (*asf.SearchResponse, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// File is one downloaded (or already present) archive.
type File struct {
	Name    string
	Path    string
	Size    int64
	Skipped bool
}

// Downloader fetches query results into a directory.
type Downloader struct {
	source      Source
	dir         string
	concurrency int
	logger      *slog.Logger
}

// NewDownloader creates a downloader saving into dir.
func NewDownloader(source Source, dir string) *Downloader {
	return &Downloader{
		source:      source,
		dir:         dir,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
}

// WithLogger sets a custom logger for the downloader
func (d *Downloader) WithLogger(logger *slog.Logger) *Downloader {
	d.logger = logger
	return d
}

// WithConcurrency bounds the number of parallel downloads.
func (d *Downloader) WithConcurrency(n int) *Downloader {
	if n > 0 {
		d.concurrency = n
	}
	return d
}

// Search runs q against the source.
func (d *Downloader) Search(ctx context.Context, q Query) ([]asf.Feature, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	resp, err := d.source.Search(ctx, q.SearchParams())
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "search completed",
		slog.String("product_type", q.ProductType),
		slog.Time("start", q.Start),
		slog.Time("end", q.End),
		slog.Int("results", len(resp.Features)),
	)
	return resp.Features, nil
}

// Acquire searches for q and downloads every result.
func (d *Downloader) Acquire(ctx context.Context, q Query) ([]File, error) {
	features, err := d.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return d.Download(ctx, features)
}

// Download fetches features concurrently and returns the files sorted by name.
// The first failure cancels the rest; files already completed stay in place.
func (d *Downloader) Download(ctx context.Context, features []asf.Feature) ([]File, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	var (
		mu    sync.Mutex
		files = make([]File, 0, len(features))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, f := range features {
		props := f.Properties
		g.Go(func() error {
			file, err := d.fetch(ctx, props)
			if err != nil {
				return err
			}
			mu.Lock()
			files = append(files, file)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	// completion order is arbitrary
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, err
}

func (d *Downloader) fetch(ctx context.Context, props asf.Properties) (File, error) {
	name := props.FileName
	if name == "" && props.URL != "" {
		name = filepath.Base(props.URL)
	}
	if name == "" || name != filepath.Base(name) || props.URL == "" {
		return File{}, fmt.Errorf("granule %s has no usable download URL", props.SceneName)
	}

	path := filepath.Join(d.dir, name)
	size, hasSize := props.Size()

	if info, err := os.Stat(path); err == nil && hasSize && info.Size() == size {
		d.logger.InfoContext(ctx, "archive already present, skipping",
			slog.String("file", name),
		)
		return File{Name: name, Path: path, Size: size, Skipped: true}, nil
	}

	d.logger.InfoContext(ctx, "downloading archive",
		slog.String("file", name),
		slog.Int64("bytes", size),
	)
	start := time.Now()

	part := path + ".part"
	out, err := os.Create(part)
	if err != nil {
		return File{}, fmt.Errorf("failed to create %s: %w", part, err)
	}
	// removes the partial file on every failure path; a no-op after rename
	defer os.Remove(part)

	hash := md5.New()
	n, err := d.source.Download(ctx, props.URL, io.MultiWriter(out, hash))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return File{}, fmt.Errorf("failed to download %s: %w", name, err)
	}

	if hasSize && n != size {
		return File{}, fmt.Errorf("failed to download %s: got %d bytes, expected %d", name, n, size)
	}
	if props.MD5Sum != "" {
		if sum := hex.EncodeToString(hash.Sum(nil)); !strings.EqualFold(sum, props.MD5Sum) {
			return File{}, fmt.Errorf("%w: %s has md5 %s, expected %s", ErrChecksumMismatch, name, sum, props.MD5Sum)
		}
	}

	if err := os.Rename(part, path); err != nil {
		return File{}, fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	d.logger.InfoContext(ctx, "archive downloaded",
		slog.String("file", name),
		slog.Int64("bytes", n),
		slog.Duration("duration", time.Since(start)),
	)
	return File{Name: name, Path: path, Size: n}, nil
}
