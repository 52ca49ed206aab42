package raster

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Interleaving is the storage order of the bands of a dataset
type Interleaving int

const (
	InterleaveUnknown Interleaving = iota
	// BandSequential (BSQ): all the lines of band 1, then of band 2...
	BandSequential
	// LineInterleaved (BIL): line 1 of every band, then line 2...
	LineInterleaved
	// PixelInterleaved (BIP): all the bands of pixel 1, then of pixel 2...
	PixelInterleaved
)

func (i Interleaving) String() string {
	switch i {
	case BandSequential:
		return "BSQ"
	case LineInterleaved:
		return "BIL"
	case PixelInterleaved:
		return "BIP"
	}
	return "unknown"
}

// ParseInterleaving parses BSQ, BIL or BIP (case insensitive)
func ParseInterleaving(s string) (Interleaving, error) {
	switch strings.ToUpper(s) {
	case "BSQ":
		return BandSequential, nil
	case "BIL":
		return LineInterleaved, nil
	case "BIP":
		return PixelInterleaved, nil
	}
	return InterleaveUnknown, fmt.Errorf("unknown interleaving %q", s)
}

// Layout describes a raw file made of Bands bands of Width x Height pixels of DType
type Layout struct {
	Interleave Interleaving
	Bands      int
	Width      int
	Height     int
	DType      DType
	// HeaderBytes is the offset of the first pixel
	HeaderBytes int64
	// BandGapBytes is the gap after each band (BSQ) or after each band row (BIL)
	BandGapBytes int64
	// LineGapBytes is the gap after each line (BSQ) or after the lines of all the bands (BIL, BIP)
	LineGapBytes int64
	// ByteOrder of the pixels. nil is the host order
	ByteOrder binary.ByteOrder
}

func (l Layout) validate() error {
	switch {
	case l.Bands <= 0 || l.Width <= 0 || l.Height <= 0:
		return newError(ConstructionError, "invalid layout: %d bands of %dx%d", l.Bands, l.Width, l.Height)
	case !l.DType.valid():
		return newError(ConstructionError, "invalid layout: data type %s", l.DType)
	case l.HeaderBytes < 0 || l.BandGapBytes < 0 || l.LineGapBytes < 0:
		return newError(ConstructionError, "invalid layout: negative offset")
	case l.Interleave == InterleaveUnknown:
		return newError(ConstructionError, "invalid layout: unknown interleaving")
	}
	return nil
}

// Strides returns the offset of the first pixel of band (1-based), its pixel stride and its line stride
func (l Layout) Strides(band int) (offset int64, pixelStride, lineStride int, err error) {
	if err := l.validate(); err != nil {
		return 0, 0, 0, err
	}
	if band < 1 || band > l.Bands {
		return 0, 0, 0, newError(IllegalArgument, "band %d out of [1, %d]", band, l.Bands)
	}
	size := int64(l.DType.Size())
	row := int64(l.Width) * size
	var ps, ls int64
	switch l.Interleave {
	case BandSequential:
		ps, ls = size, row+l.LineGapBytes
		offset = l.HeaderBytes + int64(band-1)*(ls*int64(l.Height)+l.BandGapBytes)
	case LineInterleaved:
		bandRow := row + l.BandGapBytes
		ps, ls = size, int64(l.Bands)*bandRow+l.LineGapBytes
		offset = l.HeaderBytes + int64(band-1)*bandRow
	case PixelInterleaved:
		ps = int64(l.Bands) * size
		ls = int64(l.Width)*ps + l.LineGapBytes
		offset = l.HeaderBytes + int64(band-1)*size
	}
	if ls > maxStride || ps > maxStride {
		return 0, 0, 0, newError(ConstructionError, "int overflow: line stride %d", ls)
	}
	return offset, int(ps), int(ls), nil
}

const maxStride = 1<<31 - 1

// Size returns the number of bytes spanned by the raster, header included
func (l Layout) Size() (int64, error) {
	var end int64
	for band := 1; band <= l.Bands; band++ {
		off, ps, ls, err := l.Strides(band)
		if err != nil {
			return 0, err
		}
		end = max(end, off+int64(l.Height-1)*int64(ls)+int64(l.Width-1)*int64(ps)+int64(l.DType.Size()))
	}
	return end, nil
}

// NativeOrder returns whether ByteOrder is the byte order of the host
func (l Layout) NativeOrder() bool {
	switch l.ByteOrder {
	case nil, binary.NativeEndian:
		return true
	case binary.LittleEndian:
		return hostLittleEndian
	case binary.BigEndian:
		return !hostLittleEndian
	}
	return false
}

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// NewDatasetFromLayout creates a dataset of the bands of l stored in h. The dataset owns h.
func NewDatasetFromLayout(h Handle, kind HandleKind, l Layout, opts ...Option) (*Dataset, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	ds, err := NewDataset(l.Width, l.Height, append([]Option{WithInterleaving(l.Interleave)}, opts...)...)
	if err != nil {
		return nil, err
	}
	for band := 1; band <= l.Bands; band++ {
		off, ps, ls, err := l.Strides(band)
		if err != nil {
			return nil, err
		}
		if _, err := ds.AddRawBand(h, kind, false, uint64(off), ps, ls, l.DType, l.NativeOrder()); err != nil {
			return nil, fmt.Errorf("NewDatasetFromLayout: %w", err)
		}
	}
	ds.OwnHandle(h)
	return ds, nil
}

// RawBinaryLayout describes how the pixels of all the bands of a dataset are stored in one handle
type RawBinaryLayout struct {
	// Interleave is InterleaveUnknown when the strides match none of BSQ, BIL and BIP
	Interleave Interleaving
	DType      DType
	// ByteOrder of the pixels. nil is the host order
	ByteOrder   binary.ByteOrder
	ImageOffset int64
	PixelOffset int
	LineOffset  int
	// BandOffset is the distance between the first pixels of two consecutive bands
	BandOffset int64
}

// RawBinaryLayout infers the layout of the dataset from the strides of its bands, which must
// all be RawBands sharing the same handle, data type, byte order, pixel and line strides, the
// first pixels of consecutive bands being a constant offset apart.
func (d *Dataset) RawBinaryLayout() (RawBinaryLayout, error) {
	if len(d.bands) == 0 {
		return RawBinaryLayout{}, newError(NotSupported, "dataset without band")
	}
	var first *RawBand
	var r RawBinaryLayout
	for i, band := range d.bands {
		rb, ok := band.(*RawBand)
		if !ok {
			return RawBinaryLayout{}, newError(NotSupported, "band %d is not a raw band", band.Index())
		}
		if i == 0 {
			first = rb
			r = RawBinaryLayout{
				DType:       rb.dtype,
				ImageOffset: rb.imageOffset,
				PixelOffset: rb.PixelStride(),
				LineOffset:  rb.LineStride(),
			}
			if !rb.nativeOrder {
				r.ByteOrder = binary.LittleEndian
				if hostLittleEndian {
					r.ByteOrder = binary.BigEndian
				}
			}
			continue
		}
		switch {
		case rb.acc.h != first.acc.h:
			return RawBinaryLayout{}, newError(NotSupported, "band %d: handle differs from band 1", rb.index)
		case rb.dtype != first.dtype || rb.nativeOrder != first.nativeOrder:
			return RawBinaryLayout{}, newError(NotSupported, "band %d: data type or byte order differs from band 1", rb.index)
		case rb.PixelStride() != r.PixelOffset || rb.LineStride() != r.LineOffset:
			return RawBinaryLayout{}, newError(NotSupported, "band %d: strides differ from band 1", rb.index)
		}
		if i == 1 {
			r.BandOffset = rb.imageOffset - first.imageOffset
		} else if rb.imageOffset-first.imageOffset != int64(i)*r.BandOffset {
			return RawBinaryLayout{}, newError(NotSupported, "band %d: irregular band offset", rb.index)
		}
	}
	r.Interleave = r.interleaving(len(d.bands), d.width, d.height)
	return r, nil
}

func (r RawBinaryLayout) interleaving(bands, width, height int) Interleaving {
	size := int64(r.DType.Size())
	ps, ls := int64(r.PixelOffset), int64(r.LineOffset)
	row := int64(width) * size
	switch {
	case ps <= 0 || ls <= 0 || r.BandOffset < 0:
		return InterleaveUnknown
	case bands == 1:
		if ps == size && ls >= row {
			return BandSequential
		}
	case ps == int64(bands)*size && r.BandOffset == size && ls >= int64(width)*ps:
		return PixelInterleaved
	case ps != size:
	case r.BandOffset >= row && ls >= int64(bands)*r.BandOffset:
		return LineInterleaved
	case ls >= row && r.BandOffset >= ls*int64(height):
		return BandSequential
	}
	return InterleaveUnknown
}

// Layout returns the layout of the dataset, as inferred by RawBinaryLayout
func (d *Dataset) Layout() (Layout, error) {
	r, err := d.RawBinaryLayout()
	if err != nil {
		return Layout{}, err
	}
	l := Layout{
		Interleave:  r.Interleave,
		Bands:       len(d.bands),
		Width:       d.width,
		Height:      d.height,
		DType:       r.DType,
		HeaderBytes: r.ImageOffset,
		ByteOrder:   r.ByteOrder,
	}
	size := int64(r.DType.Size())
	row := int64(d.width) * size
	switch r.Interleave {
	case BandSequential:
		l.LineGapBytes = int64(r.LineOffset) - row
		if l.Bands > 1 {
			l.BandGapBytes = r.BandOffset - int64(r.LineOffset)*int64(d.height)
		}
	case LineInterleaved:
		l.BandGapBytes = r.BandOffset - row
		l.LineGapBytes = int64(r.LineOffset) - int64(l.Bands)*r.BandOffset
	case PixelInterleaved:
		l.LineGapBytes = int64(r.LineOffset) - int64(d.width)*int64(r.PixelOffset)
	default:
		return Layout{}, newError(NotSupported, "band strides match no interleaving")
	}
	return l, nil
}
