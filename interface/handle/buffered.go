package handle

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Buffered is a local file accessed through user-space read and write buffers
type Buffered struct {
	f       *os.File
	rd      *bufio.Reader
	wr      *bufio.Writer
	pos     int64
	reading bool // rd holds bytes read ahead of pos
	writing bool // wr holds bytes not written yet
}

// NewBuffered wraps f, whose current offset must be 0
func NewBuffered(f *os.File, bufSize int) *Buffered {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &Buffered{
		f:  f,
		rd: bufio.NewReaderSize(f, bufSize),
		wr: bufio.NewWriterSize(f, bufSize),
	}
}

// OpenBuffered opens path for reading, or for reading and writing if update is true.
// In update mode, the file is created if it does not exist.
func OpenBuffered(path string, update bool) (*Buffered, error) {
	flag := os.O_RDONLY
	if update {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("OpenBuffered: %w", err)
	}
	return NewBuffered(f, 0), nil
}

// Name returns the name of the file
func (b *Buffered) Name() string {
	return b.f.Name()
}

func (b *Buffered) flushWrites() error {
	if !b.writing {
		return nil
	}
	b.writing = false
	return b.wr.Flush()
}

// sync moves the file offset to pos, dropping the bytes read ahead
func (b *Buffered) sync() error {
	if _, err := b.f.Seek(b.pos, io.SeekStart); err != nil {
		return err
	}
	b.rd.Reset(b.f)
	b.reading = false
	return nil
}

func (b *Buffered) Seek(off int64, whence int) (int64, error) {
	if err := b.flushWrites(); err != nil {
		return b.pos, err
	}
	target, err := seekTarget(b.pos, off, whence, func() (int64, error) {
		fi, err := b.f.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	})
	if err != nil {
		return b.pos, err
	}
	if b.reading && target >= b.pos && target-b.pos <= int64(b.rd.Buffered()) {
		n, err := b.rd.Discard(int(target - b.pos))
		b.pos += int64(n)
		return b.pos, err
	}
	if target == b.pos && !b.reading {
		return b.pos, nil
	}
	b.pos = target
	return b.pos, b.sync()
}

func (b *Buffered) Read(p []byte) (int, error) {
	if err := b.flushWrites(); err != nil {
		return 0, err
	}
	b.reading = true
	n, err := b.rd.Read(p)
	b.pos += int64(n)
	return n, err
}

func (b *Buffered) Write(p []byte) (int, error) {
	if b.reading {
		if err := b.sync(); err != nil {
			return 0, err
		}
	}
	b.writing = true
	n, err := b.wr.Write(p)
	b.pos += int64(n)
	return n, err
}

// Flush writes the buffered bytes to the file
func (b *Buffered) Flush() error {
	return b.flushWrites()
}

func (b *Buffered) Close() error {
	err := b.flushWrites()
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	return err
}
