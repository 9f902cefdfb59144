package cluster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Snapshot layout, little endian:
//
//	magic "ARKM" | version u8 | id str | name str | created i64 (unix ns) | count u32
//	count x { id str | name str | category str | difficulty str | notes str |
//	          hasCoords u8 | lat f64 | lon f64 }
//
// where str is a u32 byte length followed by the bytes.
const (
	snapshotMagic   = "ARKM"
	snapshotVersion = uint8(1)
	maxStringLen    = 1 << 20
)

var ErrBadSnapshot = errors.New("bad catalog snapshot")

type encoder struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) uint8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *encoder) uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *encoder) float64(v float64) {
	e.uint64(math.Float64bits(v))
}

func (e *encoder) string(s string) {
	e.uint32(uint32(len(s)))
	e.write([]byte(s))
}

type decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.buf[:n]
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = err
	}
	return d.buf[:n]
}

func (d *decoder) uint8() uint8 {
	return d.read(1)[0]
}

func (d *decoder) uint32() uint32 {
	return binary.LittleEndian.Uint32(d.read(4))
}

func (d *decoder) uint64() uint64 {
	return binary.LittleEndian.Uint64(d.read(8))
}

func (d *decoder) float64() float64 {
	return math.Float64frombits(d.uint64())
}

func (d *decoder) string() string {
	n := d.uint32()
	if d.err != nil {
		return ""
	}
	if n > maxStringLen {
		d.err = fmt.Errorf("%w: string length %d", ErrBadSnapshot, n)
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return ""
	}
	return string(b)
}

type catalogHeader struct {
	id, name  string
	createdAt time.Time
	count     uint32
}

func encodeCatalog(w io.Writer, c *Catalog) error {
	e := &encoder{w: w}
	e.write([]byte(snapshotMagic))
	e.uint8(snapshotVersion)
	e.string(c.ID)
	e.string(c.Name)
	e.uint64(uint64(c.CreatedAt.UnixNano()))
	e.uint32(uint32(len(c.Locations)))

	for _, loc := range c.Locations {
		e.string(loc.ID)
		e.string(loc.Name)
		e.string(loc.Category)
		e.string(loc.Difficulty)
		e.string(loc.Notes)
		if loc.Coords != nil {
			e.uint8(1)
			e.float64(loc.Coords.Lat)
			e.float64(loc.Coords.Lon)
		} else {
			e.uint8(0)
			e.float64(0)
			e.float64(0)
		}
	}
	return e.err
}

// encodedSize is the exact number of bytes encodeCatalog writes.
func encodedSize(c *Catalog) int64 {
	str := func(s string) int64 { return 4 + int64(len(s)) }
	size := int64(len(snapshotMagic)) + 1 + str(c.ID) + str(c.Name) + 8 + 4
	for _, loc := range c.Locations {
		size += str(loc.ID) + str(loc.Name) + str(loc.Category) + str(loc.Difficulty) + str(loc.Notes)
		size += 1 + 16
	}
	return size
}

func decodeHeader(d *decoder) (catalogHeader, error) {
	var h catalogHeader
	magic := d.read(len(snapshotMagic))
	if d.err == nil && string(magic) != snapshotMagic {
		return h, fmt.Errorf("%w: magic %q", ErrBadSnapshot, magic)
	}
	if version := d.uint8(); d.err == nil && version != snapshotVersion {
		return h, fmt.Errorf("%w: version %d", ErrBadSnapshot, version)
	}
	h.id = d.string()
	h.name = d.string()
	h.createdAt = time.Unix(0, int64(d.uint64())).UTC()
	h.count = d.uint32()
	if d.err != nil {
		return h, fmt.Errorf("failed to read snapshot header: %w", d.err)
	}
	return h, nil
}

func decodeCatalog(r io.Reader) (*Catalog, error) {
	d := &decoder{r: r}
	h, err := decodeHeader(d)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		ID:        h.id,
		Name:      h.name,
		CreatedAt: h.createdAt,
		Locations: make([]Location, 0, min(int(h.count), 1<<16)),
	}
	for i := uint32(0); i < h.count; i++ {
		loc := Location{
			ID:         d.string(),
			Name:       d.string(),
			Category:   d.string(),
			Difficulty: d.string(),
			Notes:      d.string(),
		}
		hasCoords := d.uint8()
		lat, lon := d.float64(), d.float64()
		if d.err != nil {
			return nil, fmt.Errorf("failed to read location %d: %w", i, d.err)
		}
		if hasCoords == 1 {
			loc.Coords = &Coordinates{Lat: lat, Lon: lon}
		}
		c.Locations = append(c.Locations, loc)
	}
	return c, nil
}

// SaveCompressed writes the catalog as a zstd compressed snapshot.
func (c *Catalog) SaveCompressed(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	enc, err := zstd.NewWriter(bufWriter,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if err := encodeCatalog(enc, c); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	return file.Close()
}

// LoadCompressed reads a catalog written by SaveCompressed.
func LoadCompressed(filename string) (*Catalog, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(bufio.NewReaderSize(file, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	return decodeCatalog(dec)
}

// readCompressedHeader decodes only the header, which sits at the start of
// the zstd stream, so listing a directory stays cheap.
func readCompressedHeader(filename string) (catalogHeader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return catalogHeader{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return catalogHeader{}, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	return decodeHeader(&decoder{r: dec})
}
