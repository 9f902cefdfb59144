package cluster

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MMapWriter writes sequentially into a memory-mapped region.
type MMapWriter struct {
	data   mmap.MMap
	offset int
}

func NewMMapWriter(data mmap.MMap) *MMapWriter {
	return &MMapWriter{
		data:   data,
		offset: 0,
	}
}

func (w *MMapWriter) Write(b []byte) (int, error) {
	if w.offset+len(b) > len(w.data) {
		return 0, io.ErrShortWrite
	}
	n := copy(w.data[w.offset:], b)
	w.offset += n
	return n, nil
}

// SaveMMap writes the catalog uncompressed through a memory map. The file
// is sized up front from encodedSize.
func (c *Catalog) SaveMMap(filename string) error {
	size := encodedSize(c)

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}

	mmapData, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}

	if err := encodeCatalog(NewMMapWriter(mmapData), c); err != nil {
		mmapData.Unmap()
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := mmapData.Flush(); err != nil {
		mmapData.Unmap()
		return fmt.Errorf("failed to flush mmap: %w", err)
	}
	return mmapData.Unmap()
}

// LoadMMap reads a catalog written by SaveMMap. Decoded strings are
// copied out, so nothing references the mapping after it returns.
func LoadMMap(filename string) (*Catalog, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	defer mmapData.Unmap()

	return decodeCatalog(bytes.NewReader(mmapData))
}

func readMMapHeader(filename string) (catalogHeader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return catalogHeader{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return catalogHeader{}, fmt.Errorf("failed to mmap file: %w", err)
	}
	defer mmapData.Unmap()

	return decodeHeader(&decoder{r: bytes.NewReader(mmapData)})
}
