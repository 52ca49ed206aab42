package raster

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// Handle is the byte storage behind one or several bands.
// Offsets are 64 bits. A Handle is not safe for concurrent use.
type Handle interface {
	io.Seeker
	io.Reader
	io.Writer
	// Flush commits pending writes to the underlying storage
	Flush() error
	io.Closer
}

// Mapped is implemented by the handles whose content is addressable in memory
// (memory files, memory-mapped local files). The slice returned by Bytes is only valid
// until the next write to the handle.
type Mapped interface {
	Bytes() []byte
}

// HandleKind tells which family of backend a Handle belongs to
type HandleKind int

const (
	// BufferedHandle is a stream handle with a user-space buffer (see handle.Buffered)
	BufferedHandle HandleKind = iota
	// VirtualHandle is a positional handle (local large file, memory, object storage)
	VirtualHandle
)

func (k HandleKind) String() string {
	if k == BufferedHandle {
		return "buffered"
	}
	return "virtual"
}

// accessor performs the seek/read/write primitives used by the bands.
// Failures are only reported to the caller as a count short of the requested one,
// the last backend error being kept for diagnostics.
type accessor struct {
	kind    HandleKind
	h       Handle
	logger  *zap.Logger
	lastErr error
}

func (a *accessor) seek(off int64, whence int) bool {
	a.lastErr = nil
	if off < 0 && whence == io.SeekStart {
		a.lastErr = errors.New("negative offset")
		return false
	}
	if _, err := a.h.Seek(off, whence); err != nil {
		a.lastErr = err
		a.logger.Debug("seek failed", zap.Int64("offset", off), zap.Stringer("handle", a.kind), zap.Error(err))
		return false
	}
	return true
}

// read reads count items of size bytes and returns the number of complete items read
func (a *accessor) read(buf []byte, size, count int) int {
	a.lastErr = nil
	n, err := io.ReadFull(a.h, buf[:size*count])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		a.lastErr = err
		a.logger.Debug("read failed", zap.Int("requested", size*count), zap.Int("read", n), zap.Error(err))
	}
	return n / size
}

// readAt reads len(dst) bytes at off and returns the number of bytes read, or false if
// the seek failed. Mapped handles are copied from directly, without seek.
func (a *accessor) readAt(dst []byte, off int64) (int, bool) {
	m, ok := a.h.(Mapped)
	if !ok {
		if !a.seek(off, io.SeekStart) {
			return 0, false
		}
		return a.read(dst, 1, len(dst)), true
	}
	a.lastErr = nil
	if off < 0 {
		a.lastErr = errors.New("negative offset")
		return 0, false
	}
	data := m.Bytes()
	if off >= int64(len(data)) {
		return 0, true
	}
	return copy(dst, data[off:]), true
}

// write writes count items of size bytes and returns the number of complete items written
func (a *accessor) write(buf []byte, size, count int) int {
	a.lastErr = nil
	n, err := a.h.Write(buf[:size*count])
	if err != nil {
		a.lastErr = err
		a.logger.Debug("write failed", zap.Int("requested", size*count), zap.Int("written", n), zap.Error(err))
	}
	return n / size
}

func (a *accessor) flush() error {
	return a.h.Flush()
}

// cause returns the last backend error as a suffix for error messages
func (a *accessor) cause() string {
	if a.lastErr == nil {
		return ""
	}
	err := a.lastErr
	a.lastErr = nil
	return ": " + err.Error()
}
