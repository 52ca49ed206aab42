// Package handle provides the storages behind the raster bands: buffered local files,
// positional readers/writers (local files, object storage), memory-mapped local files and memory.
package handle

import (
	"errors"
	"io"
	"os"

	"github.com/airbusgeo/rawraster/internal/raster"
)

var (
	// ErrReadOnly is returned by the writes on a handle without writer
	ErrReadOnly = errors.New("read-only handle")
	// ErrClosed is returned by the operations on a closed handle
	ErrClosed = errors.New("closed handle")
)

var (
	_ raster.Handle = (*Buffered)(nil)
	_ raster.Handle = (*Virtual)(nil)
	_ raster.Handle = (*Memory)(nil)
	_ raster.Handle = (*MappedFile)(nil)
	_ raster.Mapped = (*Memory)(nil)
	_ raster.Mapped = (*MappedFile)(nil)
)

// seekTarget returns the absolute position of a seek from pos
func seekTarget(pos, off int64, whence int, size func() (int64, error)) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		off += pos
	case io.SeekEnd:
		s, err := size()
		if err != nil {
			return pos, err
		}
		off += s
	default:
		return pos, os.ErrInvalid
	}
	if off < 0 {
		return pos, os.ErrInvalid
	}
	return off, nil
}
