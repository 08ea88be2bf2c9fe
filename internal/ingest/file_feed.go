package ingest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// blockMagic is the network magic prefixing each block in blk*.dat files.
const blockMagic = 0xD9B4BEF9

// errFileDrained signals that the current file holds no further blocks.
var errFileDrained = errors.New("file drained")

// FileFeed reads raw blocks from blkNNNNN.dat files in a directory. Each
// entry is framed as 4-byte LE magic, 4-byte LE payload size, payload. Zero
// bytes where the magic is expected terminate a file (trailing padding).
// Files are consumed in numeric order until one is missing.
type FileFeed struct {
	dir     string
	nthFile int
	buf     []byte
	off     int
}

// NewFileFeed creates a feed over the blk*.dat files in dir.
func NewFileFeed(dir string) *FileFeed {
	return &FileFeed{dir: dir}
}

// Next returns the next framed block, moving to the next file when the
// current one is drained.
func (f *FileFeed) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if f.buf == nil {
			name := filepath.Join(f.dir, fmt.Sprintf("blk%05d.dat", f.nthFile))
			data, err := os.ReadFile(name)
			if errors.Is(err, os.ErrNotExist) {
				return nil, ErrEndOfFeed
			}
			if err != nil {
				return nil, err
			}
			f.buf = data
			f.off = 0
			f.nthFile++
		}

		raw, err := f.nextInFile()
		if errors.Is(err, errFileDrained) {
			f.buf = nil
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("block file %d: %w", f.nthFile-1, err)
		}
		return raw, nil
	}
}

func (f *FileFeed) nextInFile() ([]byte, error) {
	if f.off+8 > len(f.buf) {
		return nil, errFileDrained
	}

	magic := binary.LittleEndian.Uint32(f.buf[f.off : f.off+4])
	if magic == 0 {
		// trailing zero padding
		return nil, errFileDrained
	}
	if magic != blockMagic {
		return nil, fmt.Errorf("bad magic %#08x at offset %d", magic, f.off)
	}

	size := int(binary.LittleEndian.Uint32(f.buf[f.off+4 : f.off+8]))
	if f.off+8+size > len(f.buf) {
		return nil, fmt.Errorf("frame of %d bytes at offset %d exceeds file size %d",
			size, f.off, len(f.buf))
	}

	raw := make([]byte, size)
	copy(raw, f.buf[f.off+8:f.off+8+size])
	f.off += 8 + size
	return raw, nil
}

// Close releases the current file buffer.
func (f *FileFeed) Close() error {
	f.buf = nil
	return nil
}
