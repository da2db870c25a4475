package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is two archives of the same acquisition date that are mosaicked together.
type Pair struct {
	First  string
	Second string
}

// Files returns the archive paths in processing order.
func (p Pair) Files() []string {
	return []string{p.First, p.Second}
}

// OutputName returns the GeoTIFF file name for the pair, derived from the first archive.
func (p Pair) OutputName() string {
	return BaseName(p.First) + ".tif"
}

// Validate checks that both archives share an acquisition date.
func (p Pair) Validate() error {
	first, err := AcquisitionDate(p.First)
	if err != nil {
		return err
	}
	second, err := AcquisitionDate(p.Second)
	if err != nil {
		return err
	}
	if first != second {
		return fmt.Errorf("%w: %s (%s) and %s (%s)", ErrDateMismatch,
			filepath.Base(p.First), first, filepath.Base(p.Second), second)
	}
	return nil
}

// ListArchives returns the .zip archives in dir, sorted by name.
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// PairUp splits sorted files into even- and odd-indexed halves and zips them.
// A trailing unpaired file is returned separately and never processed.
func PairUp(files []string) (pairs []Pair, unpaired []string) {
	n := len(files) / 2
	pairs = make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, Pair{First: files[2*i], Second: files[2*i+1]})
	}
	if len(files)%2 == 1 {
		unpaired = files[len(files)-1:]
	}
	return pairs, unpaired
}
