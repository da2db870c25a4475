package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/planetlabs/go-stac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/s1prep/internal/scene"
)

const (
	firstScene  = "S1A_IW_GRDH_1SDV_20230101T102030_20230101T102055_046583_059552_1A2B.zip"
	secondScene = "S1A_IW_GRDH_1SDV_20230101T102055_20230101T102120_046583_059552_3C4D.zip"
)

func testEntry(dir string) Entry {
	return Entry{
		Pair: scene.Pair{
			First:  filepath.Join("/in", firstScene),
			Second: filepath.Join("/in", secondScene),
		},
		Output:    filepath.Join(dir, "S1A_IW_GRDH_1SDV_20230101T102030_20230101T102055_046583_059552_1A2B.tif"),
		Lineage:   []string{"ThermalNoiseRemoval", "Apply-Orbit-File", "Calibration"},
		CropWKT:   "POLYGON((115.5 40.2, 116.0 40.2, 116.0 40.5, 115.5 40.5, 115.5 40.2))",
		Processed: time.Date(2023, 3, 8, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewItem(t *testing.T) {
	item, err := NewItem(testEntry("/out"))
	require.NoError(t, err)

	assert.Equal(t, "S1A_IW_GRDH_1SDV_20230101T102030_20230101T102055_046583_059552_1A2B", item.Id)
	assert.Equal(t, CollectionID, item.Collection)
	assert.Equal(t, "2023-01-01T10:20:30Z", item.Properties["datetime"])
	assert.Equal(t, "2023-01-01T10:20:30Z", item.Properties["start_datetime"])
	assert.Equal(t, "2023-01-01T10:21:20Z", item.Properties["end_datetime"])
	assert.Equal(t, "sentinel-1a", item.Properties["platform"])
	assert.Equal(t, "IW", item.Properties["sar:instrument_mode"])
	assert.Equal(t, "GRD", item.Properties["sar:product_type"])
	assert.Equal(t, "ThermalNoiseRemoval > Apply-Orbit-File > Calibration", item.Properties["processing:lineage"])
	assert.Equal(t, []float64{115.5, 40.2, 116.0, 40.5}, item.Bbox)
	assert.NotNil(t, item.Geometry)

	require.Contains(t, item.Assets, "data")
	assert.Equal(t, "S1A_IW_GRDH_1SDV_20230101T102030_20230101T102055_046583_059552_1A2B.tif", item.Assets["data"].Href)
	assert.Equal(t, GeoTIFFMediaType, item.Assets["data"].Type)

	require.Len(t, item.Links, 2)
	assert.Equal(t, "derived_from", item.Links[0].Rel)
	assert.Equal(t, firstScene, item.Links[0].Href)
	assert.Equal(t, secondScene, item.Links[1].Href)
}

func TestNewItem_LooseNames(t *testing.T) {
	item, err := NewItem(Entry{
		Pair:   scene.Pair{First: "/in/A_x_y_z_20230102T000000.zip", Second: "/in/B_x_y_z_20230102T000000.zip"},
		Output: "/out/A_x_y_z_20230102T000000.tif",
	})
	require.NoError(t, err)

	assert.Equal(t, "2023-01-02T00:00:00Z", item.Properties["datetime"])
	assert.Nil(t, item.Geometry)
	assert.NotContains(t, item.Properties, "platform")
}

func TestNewItem_Errors(t *testing.T) {
	_, err := NewItem(Entry{})
	assert.Error(t, err)

	e := testEntry("/out")
	e.CropWKT = "POLYGON(("
	_, err = NewItem(e)
	assert.Error(t, err)
}

func TestStore_PutGetList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	assert.Equal(t, dir, store.Dir())

	item, err := NewItem(testEntry(dir))
	require.NoError(t, err)
	require.NoError(t, store.Put(item))

	other := &stac.Item{Version: Version, Id: "A_other", Properties: map[string]any{"datetime": nil}}
	require.NoError(t, store.Put(other))

	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	got, err := store.Get(item.Id)
	require.NoError(t, err)
	assert.Equal(t, item.Id, got.Id)
	assert.Equal(t, "2023-01-01T10:20:30Z", got.Properties["datetime"])
	require.Contains(t, got.Assets, "data")

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A_other", items[0].Id)
	assert.Equal(t, item.Id, items[1].Id)

	path, err := store.DataPath(got)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, item.Id+".tif"), path)

	_, err = store.DataPath(other)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestStore_GetErrors(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	for _, id := range []string{"", "../etc/passwd", ".hidden", "a/b"} {
		_, err := store.Get(id)
		assert.ErrorIs(t, err, ErrInvalidItemID, "id %q", id)
	}
}

func TestStore_DataPathRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir())
	item := &stac.Item{
		Id:     "x",
		Assets: map[string]*stac.Asset{"data": {Href: "../x.tif"}},
	}
	_, err := store.DataPath(item)
	assert.ErrorIs(t, err, ErrInvalidItemID)
}

func TestPage(t *testing.T) {
	items := []*stac.Item{{Id: "a"}, {Id: "b"}, {Id: "c"}}

	ids := func(page []*stac.Item) []string {
		out := make([]string, 0, len(page))
		for _, it := range page {
			out = append(out, it.Id)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b"}, ids(Page(items, 0, 2)))
	assert.Equal(t, []string{"c"}, ids(Page(items, 2, 2)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(Page(items, 0, 0)))
	assert.Empty(t, Page(items, 5, 2))
	assert.Equal(t, []string{"a"}, ids(Page(items, -1, 1)))
}

func TestNewItemCollection(t *testing.T) {
	ic := NewItemCollection(nil, 0)
	assert.Equal(t, "FeatureCollection", ic.Type)
	assert.NotNil(t, ic.Features)
	assert.Equal(t, 0, ic.NumberReturned)

	ic = NewItemCollection([]*stac.Item{{Id: "a"}}, 3)
	ic.AddLink("next", "/items?offset=1", "application/geo+json")
	assert.Equal(t, 1, ic.NumberReturned)
	assert.Equal(t, 3, ic.NumberMatched)
	require.Len(t, ic.Links, 1)
	assert.Equal(t, "next", ic.Links[0].Rel)
}
