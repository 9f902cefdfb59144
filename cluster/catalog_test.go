package cluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const islandYAML = `
name: The Island
locations:
  - id: cave-1
    name: Lower South Cave
    lat: 68.2
    lon: 56.2
    category: cave
    difficulty: hard
  - id: obelisk-red
    name: Red Obelisk
    lat: 79.7
    lon: 59.1
    category: obelisk
  - id: rumor
    name: Somewhere north
    lat: 12.0
    category: base-spot
    notes: only latitude known
`

func TestParseCatalogYAML(t *testing.T) {
	c, err := ParseCatalogYAML([]byte(islandYAML))
	require.NoError(t, err)

	assert.Equal(t, "The Island", c.Name)
	assert.Len(t, c.ID, 8)
	require.Len(t, c.Locations, 3)

	assert.Equal(t, "cave-1", c.Locations[0].ID)
	require.NotNil(t, c.Locations[0].Coords)
	assert.Equal(t, 68.2, c.Locations[0].Coords.Lat)
	assert.Equal(t, 56.2, c.Locations[0].Coords.Lon)
	assert.Equal(t, "hard", c.Locations[0].Difficulty)

	assert.Nil(t, c.Locations[2].Coords, "a single coordinate is not a position")
	assert.Equal(t, "only latitude known", c.Locations[2].Notes)
}

func TestParseCatalogYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "locations: [unclosed"},
		{"missing id", "locations:\n  - name: nobody\n"},
		{"duplicate id", "locations:\n  - id: a\n  - id: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogYAML([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalogYAMLDefaultName(t *testing.T) {
	c, err := ParseCatalogYAML([]byte("locations: []\n"))
	require.NoError(t, err)
	assert.Equal(t, "unnamed", c.Name)
	assert.Empty(t, c.Locations)
}

func TestCatalogFilename(t *testing.T) {
	c := &Catalog{ID: "1a2b3c4d", Name: "The Island!", CreatedAt: time.Date(2024, 5, 1, 12, 30, 5, 0, time.UTC)}
	path := CatalogFilename("/data", c, ExtCompressed)
	assert.Equal(t, "/data/catalog-the_island_-20240501-123005-1a2b3c4d.zst", path)

	id, ext, ok := parseCatalogFilename(filepath.Base(path))
	require.True(t, ok)
	assert.Equal(t, "1a2b3c4d", id)
	assert.Equal(t, ExtCompressed, ext)

	_, _, ok = parseCatalogFilename("notes.txt")
	assert.False(t, ok)
	_, _, ok = parseCatalogFilename("catalog-x.zst")
	assert.False(t, ok)
}

func TestSaveListFindCatalogs(t *testing.T) {
	dir := t.TempDir()

	older := &Catalog{ID: "aaaa0001", Name: "scorched", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Locations: GenerateTestLocations(20, 7)}
	newer := &Catalog{ID: "bbbb0002", Name: "ragnarok", CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Locations: GenerateTestLocations(40, 8)}

	_, err := SaveCatalog(dir, older, ExtCompressed)
	require.NoError(t, err)
	newerPath, err := SaveCatalog(dir, newer, ExtMMap)
	require.NoError(t, err)

	// noise that must be skipped
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog-bad-20240101-000000-cccc0003.zst"), []byte("garbage"), 0644))

	infos, err := ListCatalogs(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "bbbb0002", infos[0].ID)
	assert.Equal(t, "arkm", infos[0].Format)
	assert.Equal(t, 40, infos[0].NumLocations)
	assert.NotEmpty(t, infos[0].Size)
	assert.Equal(t, "aaaa0001", infos[1].ID)
	assert.Equal(t, "zst", infos[1].Format)

	path, err := FindCatalogFile(dir, "bbbb0002")
	require.NoError(t, err)
	assert.Equal(t, newerPath, path)

	loaded, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, newer.Locations, loaded.Locations)

	_, err = FindCatalogFile(dir, "nope")
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestSaveCatalogUnknownFormat(t *testing.T) {
	_, err := SaveCatalog(t.TempDir(), testCatalog(), ".json")
	assert.Error(t, err)

	_, err = LoadCatalogFile("catalog.json")
	assert.Error(t, err)
}

func TestListCatalogsMissingDir(t *testing.T) {
	infos, err := ListCatalogs(filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, err)
	assert.Empty(t, infos)

	_, err = FindCatalogFile(filepath.Join(t.TempDir(), "absent"), "x")
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}
