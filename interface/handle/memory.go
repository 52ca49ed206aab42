package handle

import (
	"io"
)

// Memory is a growable in-memory file. Writes past the end extend it with zeros.
type Memory struct {
	buf    []byte
	pos    int64
	closed bool
}

// NewMemory creates a memory file holding data (not copied)
func NewMemory(data []byte) *Memory {
	return &Memory{buf: data}
}

// Bytes returns the content of the file
func (m *Memory) Bytes() []byte {
	return m.buf
}

func (m *Memory) Size() int64 {
	return int64(len(m.buf))
}

func (m *Memory) Seek(off int64, whence int) (int64, error) {
	if m.closed {
		return m.pos, ErrClosed
	}
	target, err := seekTarget(m.pos, off, whence, func() (int64, error) { return m.Size(), nil })
	if err != nil {
		return m.pos, err
	}
	m.pos = target
	return m.pos, nil
}

func (m *Memory) Read(p []byte) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if m.pos >= m.Size() {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if end := m.pos + int64(len(p)); end > m.Size() {
		old := len(m.buf)
		if end > int64(cap(m.buf)) {
			nb := make([]byte, end, max(end, 2*int64(cap(m.buf))))
			copy(nb, m.buf)
			m.buf = nb
		} else {
			m.buf = m.buf[:end]
			clear(m.buf[old:])
		}
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Flush() error {
	return nil
}

// Close releases nothing: Bytes stays available
func (m *Memory) Close() error {
	m.closed = true
	return nil
}
