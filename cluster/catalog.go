package cluster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	ExtCompressed = ".zst"
	ExtMMap       = ".arkm"
)

var ErrCatalogNotFound = errors.New("catalog not found")

// Catalog is an ordered, read-only set of locations for one map.
type Catalog struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Locations []Location
}

// NewCatalog wraps locations in a catalog with a fresh short ID.
func NewCatalog(name string, locations []Location) *Catalog {
	return &Catalog{
		ID:        uuid.New().String()[:8],
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Locations: locations,
	}
}

type CatalogInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NumLocations int       `json:"numLocations"`
	Timestamp    time.Time `json:"timestamp"`
	FileSize     int64     `json:"fileSize"`
	Size         string    `json:"size"`
	Format       string    `json:"format"`
}

type yamlCatalog struct {
	Name      string         `yaml:"name"`
	Locations []yamlLocation `yaml:"locations"`
}

type yamlLocation struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Lat        *float64 `yaml:"lat"`
	Lon        *float64 `yaml:"lon"`
	Category   string   `yaml:"category"`
	Difficulty string   `yaml:"difficulty"`
	Notes      string   `yaml:"notes"`
}

// ParseCatalogYAML builds a catalog from YAML. A location gets coordinates
// only when both lat and lon are present. IDs must be non-empty and unique.
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	var raw yamlCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(raw.Locations))
	locations := make([]Location, 0, len(raw.Locations))
	for i, r := range raw.Locations {
		if r.ID == "" {
			return nil, fmt.Errorf("location %d has no id", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate location id %q", r.ID)
		}
		seen[r.ID] = true

		loc := Location{
			ID:         r.ID,
			Name:       r.Name,
			Category:   r.Category,
			Difficulty: r.Difficulty,
			Notes:      r.Notes,
		}
		if r.Lat != nil && r.Lon != nil {
			loc.Coords = &Coordinates{Lat: *r.Lat, Lon: *r.Lon}
		}
		locations = append(locations, loc)
	}

	name := raw.Name
	if name == "" {
		name = "unnamed"
	}
	return NewCatalog(name, locations), nil
}

// LoadCatalogYAML reads a YAML catalog file.
func LoadCatalogYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalogYAML(data)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "catalog"
	}
	return b.String()
}

// CatalogFilename returns the snapshot path for a catalog.
// Format: catalog-{name}-{yyyymmdd}-{hhmmss}-{id}{ext}
func CatalogFilename(dir string, c *Catalog, ext string) string {
	timestamp := c.CreatedAt.Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("catalog-%s-%s-%s%s", sanitizeName(c.Name), timestamp, c.ID, ext))
}

func parseCatalogFilename(name string) (id, ext string, ok bool) {
	ext = filepath.Ext(name)
	if ext != ExtCompressed && ext != ExtMMap {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(name, ext), "-")
	if len(parts) != 5 || parts[0] != "catalog" {
		return "", "", false
	}
	return parts[4], ext, true
}

// SaveCatalog writes the catalog into dir in the given format (ExtCompressed
// or ExtMMap) and returns the file path.
func SaveCatalog(dir string, c *Catalog, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create catalog directory: %w", err)
	}
	path := CatalogFilename(dir, c, ext)
	switch ext {
	case ExtCompressed:
		return path, c.SaveCompressed(path)
	case ExtMMap:
		return path, c.SaveMMap(path)
	default:
		return "", fmt.Errorf("unknown catalog format %q", ext)
	}
}

// LoadCatalogFile loads a snapshot, picking the decoder from the extension.
func LoadCatalogFile(path string) (*Catalog, error) {
	switch filepath.Ext(path) {
	case ExtCompressed:
		return LoadCompressed(path)
	case ExtMMap:
		return LoadMMap(path)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", filepath.Ext(path))
	}
}

// ReadCatalogInfo describes a snapshot file without loading its locations.
func ReadCatalogInfo(path string) (CatalogInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return CatalogInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var h catalogHeader
	ext := filepath.Ext(path)
	switch ext {
	case ExtCompressed:
		h, err = readCompressedHeader(path)
	case ExtMMap:
		h, err = readMMapHeader(path)
	default:
		err = fmt.Errorf("unknown catalog format %q", ext)
	}
	if err != nil {
		return CatalogInfo{}, err
	}

	return CatalogInfo{
		ID:           h.id,
		Name:         h.name,
		NumLocations: int(h.count),
		Timestamp:    h.createdAt,
		FileSize:     stat.Size(),
		Size:         humanize.Bytes(uint64(stat.Size())),
		Format:       strings.TrimPrefix(ext, "."),
	}, nil
}

// ListCatalogs returns the snapshots in dir, newest first. Files that do
// not parse as snapshots are skipped. A missing directory is empty.
func ListCatalogs(dir string) ([]CatalogInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	infos := make([]CatalogInfo, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if _, _, ok := parseCatalogFilename(file.Name()); !ok {
			continue
		}
		info, err := ReadCatalogInfo(filepath.Join(dir, file.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

// FindCatalogFile locates the snapshot for a catalog ID.
func FindCatalogFile(dir, id string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrCatalogNotFound, id)
		}
		return "", fmt.Errorf("failed to read catalog directory: %w", err)
	}

	for _, file := range files {
		if fileID, _, ok := parseCatalogFilename(file.Name()); ok && fileID == id {
			return filepath.Join(dir, file.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrCatalogNotFound, id)
}
