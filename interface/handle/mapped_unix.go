//go:build unix

package handle

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, writable bool) (*mapping, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	m := &mapping{f: f, writable: writable}
	size := fi.Size()
	if size == 0 {
		return m, nil
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("file of %d bytes too large to be mapped", size)
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	if m.data, err = unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED); err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return m, nil
}

func (m *mapping) sync() error {
	if !m.writable || len(m.data) == 0 {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *mapping) unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}
