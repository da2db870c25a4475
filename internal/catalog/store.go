package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/planetlabs/go-stac"
)

var (
	// ErrItemNotFound is returned when no sidecar exists for an item id.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidItemID is returned for ids that could escape the catalog directory.
	ErrInvalidItemID = errors.New("invalid item id")
)

// Store keeps item sidecars as <id>.json in the output directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store reads and writes.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes item atomically, replacing any existing sidecar.
func (s *Store) Put(item *stac.Item) error {
	path, err := s.path(item.Id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", item.Id, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".item-*.json")
	if err != nil {
		return fmt.Errorf("failed to create item file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write item %s: %w", item.Id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write item %s: %w", item.Id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store item %s: %w", item.Id, err)
	}
	return nil
}

// Get reads the item with the given id.
func (s *Store) Get(id string) (*stac.Item, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}

	item := &stac.Item{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return item, nil
}

// List returns all items sorted by id. Unreadable sidecars are reported as an error.
func (s *Store) List() ([]*stac.Item, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)

	items := make([]*stac.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// DataPath returns the local path of the item's data asset.
func (s *Store) DataPath(item *stac.Item) (string, error) {
	asset, ok := item.Assets["data"]
	if !ok || asset == nil || asset.Href == "" {
		return "", fmt.Errorf("%w: %s has no data asset", ErrItemNotFound, item.Id)
	}
	if asset.Href != filepath.Base(asset.Href) {
		return "", fmt.Errorf("%w: data asset of %s is outside the catalog", ErrInvalidItemID, item.Id)
	}
	return filepath.Join(s.dir, asset.Href), nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidItemID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}
