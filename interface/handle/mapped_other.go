//go:build !unix

package handle

import (
	"errors"
	"os"
)

func mapFile(f *os.File, writable bool) (*mapping, error) {
	return nil, errors.ErrUnsupported
}

func (m *mapping) sync() error {
	return nil
}

func (m *mapping) unmap() error {
	return nil
}
