package handle

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Virtual is a positional storage (io.ReaderAt and optionally io.WriterAt) with a 64 bits cursor
type Virtual struct {
	r      io.ReaderAt
	w      io.WriterAt
	c      io.Closer
	size   func() (int64, error)
	pos    int64
	closed bool
}

// NewVirtual wraps r. Writes are allowed if r is also an io.WriterAt and r is closed with
// the handle if it is an io.Closer.
func NewVirtual(r io.ReaderAt) *Virtual {
	v := &Virtual{r: r}
	if w, ok := r.(io.WriterAt); ok {
		v.w = w
	}
	if c, ok := r.(io.Closer); ok {
		v.c = c
	}
	switch s := r.(type) {
	case interface{ Size() int64 }:
		v.size = func() (int64, error) { return s.Size(), nil }
	case interface{ Stat() (os.FileInfo, error) }:
		v.size = func() (int64, error) {
			fi, err := s.Stat()
			if err != nil {
				return 0, err
			}
			return fi.Size(), nil
		}
	default:
		v.size = func() (int64, error) { return 0, errors.ErrUnsupported }
	}
	return v
}

// ReadOnly returns a handle on r that rejects the writes
func ReadOnly(r io.ReaderAt) *Virtual {
	v := NewVirtual(r)
	v.w = nil
	return v
}

// OpenVirtual opens the local file path as a positional handle.
// In update mode, the file is created if it does not exist.
func OpenVirtual(path string, update bool) (*Virtual, error) {
	flag := os.O_RDONLY
	if update {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("OpenVirtual: %w", err)
	}
	if !update {
		return ReadOnly(f), nil
	}
	return NewVirtual(f), nil
}

func (v *Virtual) Seek(off int64, whence int) (int64, error) {
	if v.closed {
		return v.pos, ErrClosed
	}
	target, err := seekTarget(v.pos, off, whence, v.size)
	if err != nil {
		return v.pos, err
	}
	v.pos = target
	return v.pos, nil
}

func (v *Virtual) Read(p []byte) (int, error) {
	if v.closed {
		return 0, ErrClosed
	}
	n, err := v.r.ReadAt(p, v.pos)
	v.pos += int64(n)
	if n == len(p) && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (v *Virtual) Write(p []byte) (int, error) {
	if v.closed {
		return 0, ErrClosed
	}
	if v.w == nil {
		return 0, ErrReadOnly
	}
	n, err := v.w.WriteAt(p, v.pos)
	v.pos += int64(n)
	return n, err
}

// Flush is a no-op: writes go straight to the WriterAt
func (v *Virtual) Flush() error {
	return nil
}

func (v *Virtual) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.c != nil {
		return v.c.Close()
	}
	return nil
}
