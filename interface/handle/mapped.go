package handle

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMappingSize is returned by the writes past the end of a memory-mapped file
var ErrMappingSize = errors.New("write past the end of a memory-mapped file")

// MappedFile is a local file mapped in memory. Reads and writes are copies from/to the mapping
// and Bytes gives a direct access to the content. The size of the file is fixed by OpenMapped.
type MappedFile struct {
	*Virtual
	m *mapping
}

// OpenMapped maps the local file path in memory, for reading and writing if update is true.
// The file must exist: an empty file is mapped as an empty content.
func OpenMapped(path string, update bool) (*MappedFile, error) {
	flag := os.O_RDONLY
	if update {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenMapped: %w", err)
	}
	m, err := mapFile(f, update)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("OpenMapped %s: %w", path, err)
	}
	v := NewVirtual(m)
	if !update {
		v.w = nil
	}
	return &MappedFile{Virtual: v, m: m}, nil
}

// Bytes returns the mapped content, nil once the file is closed
func (mf *MappedFile) Bytes() []byte {
	if mf.closed {
		return nil
	}
	return mf.m.data
}

// Flush commits the modified pages to the file
func (mf *MappedFile) Flush() error {
	if mf.closed {
		return ErrClosed
	}
	return mf.m.sync()
}

// mapping is the io.ReaderAt/io.WriterAt/io.Closer of a MappedFile
type mapping struct {
	f        *os.File
	data     []byte
	writable bool
}

func (m *mapping) Size() int64 {
	return int64(len(m.data))
}

func (m *mapping) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mapping) WriteAt(p []byte, off int64) (int, error) {
	if !m.writable {
		return 0, ErrReadOnly
	}
	if off >= int64(len(m.data)) {
		return 0, ErrMappingSize
	}
	n := copy(m.data[off:], p)
	if n < len(p) {
		return n, ErrMappingSize
	}
	return n, nil
}

func (m *mapping) Close() error {
	err := m.unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
