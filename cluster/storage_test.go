package cluster

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	locs := []Location{
		{ID: "cave-1", Name: "Lower South Cave", Coords: &Coordinates{Lat: 68.2, Lon: 56.2}, Category: "cave", Difficulty: "hard", Notes: "bring scuba"},
		{ID: "obelisk-red", Name: "Red Obelisk", Coords: &Coordinates{Lat: 79.7, Lon: 59.1}, Category: "obelisk"},
		{ID: "rumor", Name: "Unconfirmed spot", Category: "base-spot"},
	}
	c := NewCatalog("The Island", locs)
	c.CreatedAt = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := testCatalog()

	var buf bytes.Buffer
	require.NoError(t, encodeCatalog(&buf, c))
	assert.Equal(t, encodedSize(c), int64(buf.Len()))

	got, err := decodeCatalog(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Name, got.Name)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.Locations, got.Locations)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeCatalog(bytes.NewReader([]byte("NOPE\x01")))
	assert.ErrorIs(t, err, ErrBadSnapshot)

	var buf bytes.Buffer
	require.NoError(t, encodeCatalog(&buf, testCatalog()))
	truncated := buf.Bytes()[:buf.Len()-5]
	_, err = decodeCatalog(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestSaveLoadCompressed(t *testing.T) {
	c := testCatalog()
	path := filepath.Join(t.TempDir(), "catalog.zst")

	require.NoError(t, c.SaveCompressed(path))
	got, err := LoadCompressed(path)
	require.NoError(t, err)
	assert.Equal(t, c.Locations, got.Locations)

	h, err := readCompressedHeader(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h.count)
	assert.Equal(t, "The Island", h.name)
}

func TestSaveLoadMMap(t *testing.T) {
	c := &Catalog{ID: "abcd1234", Name: "big", CreatedAt: time.Unix(100, 0).UTC(), Locations: GenerateTestLocations(500, 1)}
	path := filepath.Join(t.TempDir(), "catalog.arkm")

	require.NoError(t, c.SaveMMap(path))
	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, encodedSize(c), stat.Size())

	got, err := LoadMMap(path)
	require.NoError(t, err)
	assert.Equal(t, c.Locations, got.Locations)
	assert.Equal(t, "abcd1234", got.ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadCompressed(filepath.Join(t.TempDir(), "missing.zst"))
	assert.Error(t, err)
	_, err = LoadMMap(filepath.Join(t.TempDir(), "missing.arkm"))
	assert.Error(t, err)
}
