package raster

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/airbusgeo/rawraster/internal/utils"
)

// Dataset is a set of bands of the same size, possibly sharing handles
type Dataset struct {
	width      int
	height     int
	access     Access
	interleave Interleaving
	cfg        IOConfig
	logger     *zap.Logger
	bands      []Band
	handles    []Handle
	closed     bool
}

// directIO is implemented by the bands that have a direct IO path
type directIO interface {
	CanUseDirectIO(x, y, w, h int) bool
}

// handleBand is implemented by the bands that read a Handle
type handleBand interface {
	Handle() (Handle, HandleKind)
}

// NewDataset creates an empty dataset of width x height pixels. Its access is Update unless WithAccess is provided.
func NewDataset(width, height int, opts ...Option) (*Dataset, error) {
	if width <= 0 || height <= 0 {
		return nil, newError(ConstructionError, "invalid raster size %dx%d", width, height)
	}
	o := applyOptions(nil, opts)
	return &Dataset{
		width:      width,
		height:     height,
		access:     o.access,
		interleave: o.interleave,
		cfg:        o.cfg,
		logger:     o.logger,
	}, nil
}

func (d *Dataset) Width() int                 { return d.width }
func (d *Dataset) Height() int                { return d.height }
func (d *Dataset) Access() Access             { return d.access }
func (d *Dataset) Interleaving() Interleaving { return d.interleave }
func (d *Dataset) IOConfig() IOConfig         { return d.cfg }
func (d *Dataset) RasterCount() int           { return len(d.bands) }

// Bands returns the bands of the dataset, ordered by index
func (d *Dataset) Bands() []Band {
	return d.bands
}

// Band returns the band i (1-based) or nil
func (d *Dataset) Band(i int) Band {
	if i < 1 || i > len(d.bands) {
		return nil
	}
	return d.bands[i-1]
}

// AddBand appends b, whose index must be RasterCount()+1 and size the size of the dataset
func (d *Dataset) AddBand(b Band) error {
	if d.closed {
		return newError(NotSupported, "dataset is closed")
	}
	if b.Index() != len(d.bands)+1 {
		return newError(IllegalArgument, "band index %d, expected %d", b.Index(), len(d.bands)+1)
	}
	if b.Width() != d.width || b.Height() != d.height {
		return newError(IllegalArgument, "band %d of size %dx%d in a %dx%d dataset", b.Index(), b.Width(), b.Height(), d.width, d.height)
	}
	d.bands = append(d.bands, b)
	return nil
}

// AddRawBand creates a RawBand and appends it to the dataset
func (d *Dataset) AddRawBand(h Handle, kind HandleKind, ownsHandle bool, imageOffset uint64,
	pixelStride, lineStride int, dtype DType, nativeOrder bool, opts ...Option) (*RawBand, error) {
	b, err := NewRawBand(d, len(d.bands)+1, h, kind, ownsHandle, imageOffset, pixelStride, lineStride, dtype, nativeOrder, opts...)
	if err != nil {
		return nil, err
	}
	return b, d.AddBand(b)
}

// AddBitBand creates a BitBand and appends it to the dataset
func (d *Dataset) AddBitBand(h Handle, kind HandleKind, ownsHandle bool, startBit, pixelBits, lineBits int64,
	nbits int, opts ...Option) (*BitBand, error) {
	b, err := NewBitBand(d, len(d.bands)+1, h, kind, ownsHandle, startBit, pixelBits, lineBits, nbits, opts...)
	if err != nil {
		return nil, err
	}
	return b, d.AddBand(b)
}

// OwnHandle makes the dataset responsible for closing h, after its bands
func (d *Dataset) OwnHandle(h Handle) {
	d.handles = append(d.handles, h)
}

// RasterIO transfers the window (x, y, w, h) of several bands (1-based, all the bands if nil)
// from/to buf. Zero spaces mean a band sequential packed buffer.
//
// Without resampling, the bands of a pixel interleaved dataset are transferred one after the other
// through their direct path if they all can use it, else through their block cache. Otherwise,
// each band serves its part of the request with its own RasterIO.
func (d *Dataset) RasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType,
	bands []int, pixelSpace, lineSpace, bandSpace int) error {
	if d.closed {
		return newError(NoBuffer, "dataset is closed")
	}
	if mode == IOWrite && d.access == ReadOnly {
		return newError(NotSupported, "write operation not permitted in read-only mode")
	}
	if err := checkWindow(d.width, d.height, x, y, w, h, bufW, bufH, bufType); err != nil {
		return err
	}
	if bands == nil {
		bands = make([]int, len(d.bands))
		for i := range bands {
			bands[i] = i + 1
		}
	}
	if len(bands) == 0 {
		return newError(IllegalArgument, "no band requested")
	}
	selected := make([]Band, len(bands))
	for i, idx := range bands {
		if selected[i] = d.Band(idx); selected[i] == nil {
			return newError(IllegalArgument, "invalid band index %d", idx)
		}
	}
	pixelSpace, lineSpace = defaultSpaces(bufType, bufW, pixelSpace, lineSpace)
	if bandSpace == 0 {
		bandSpace = lineSpace * bufH
	}
	if pixelSpace <= 0 || lineSpace <= 0 || bandSpace <= 0 {
		return newError(IllegalArgument, "pixel, line and band spaces must be positive")
	}
	need, ok := bufferSpan(bufType.Size(), [2]int{len(bands), bandSpace}, [2]int{bufH, lineSpace}, [2]int{bufW, pixelSpace})
	if !ok {
		return newError(IllegalArgument, "int overflow: buffer of %dx%d pixels and %d bands", bufW, bufH, len(bands))
	}
	if len(buf) < need {
		return newError(IllegalArgument, "buffer of %d bytes, %d expected", len(buf), need)
	}

	if w == bufW && h == bufH && d.interleave == PixelInterleaved && len(selected) > 1 && !d.allDirect(selected, x, y, w, h) {
		d.logger.Debug("band by band raster io through the block cache", zap.Int("bands", len(selected)))
		for i, b := range selected {
			g, ok := b.(genericIO)
			if !ok {
				return newError(NotSupported, "band %d has no block cache", b.Index())
			}
			if err := g.genericRasterIO(mode, x, y, w, h, buf[i*bandSpace:], bufW, bufH, bufType, pixelSpace, lineSpace); err != nil {
				return fmt.Errorf("band %d: %w", b.Index(), err)
			}
		}
		return nil
	}
	for i, b := range selected {
		if err := b.RasterIO(mode, x, y, w, h, buf[i*bandSpace:], bufW, bufH, bufType, pixelSpace, lineSpace); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) allDirect(bands []Band, x, y, w, h int) bool {
	for _, b := range bands {
		if dio, ok := b.(directIO); !ok || !dio.CanUseDirectIO(x, y, w, h) {
			return false
		}
	}
	return true
}

// Read and Write are RasterIO with a typed buffer. The buffer is pixel interleaved unless
// spacings are provided.
func (d *Dataset) Read(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error {
	return d.typedIO(IORead, x, y, buffer, bufW, bufH, opts)
}

func (d *Dataset) Write(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error {
	return d.typedIO(IOWrite, x, y, buffer, bufW, bufH, opts)
}

func (d *Dataset) typedIO(mode IOMode, x, y int, buffer interface{}, bufW, bufH int, opts []IOOption) error {
	buf, dtype, err := bufferBytes(buffer)
	if err != nil {
		return err
	}
	o := ioOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	nBands := len(o.bands)
	if o.bands == nil {
		nBands = len(d.bands)
	}
	w, h := o.window(bufW, bufH)
	size := dtype.Size()
	pixelSpace, lineSpace, bandSpace := o.pixelSpace*size, o.lineSpace*size, o.bandSpace*size
	if pixelSpace == 0 {
		pixelSpace = nBands * size
	}
	if lineSpace == 0 {
		lineSpace = bufW * pixelSpace
	}
	if bandSpace == 0 {
		bandSpace = size
	}
	return d.RasterIO(mode, x, y, w, h, buf, bufW, bufH, dtype, o.bands, pixelSpace, lineSpace, bandSpace)
}

// FlushCache flushes all the bands
func (d *Dataset) FlushCache() error {
	var err error
	for _, b := range d.bands {
		err = utils.MergeErrors(true, err, b.FlushCache())
	}
	return err
}

// Close closes the bands then the handles owned by the dataset. It is idempotent.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	for _, b := range d.bands {
		err = utils.MergeErrors(true, err, b.Close())
	}
	for _, h := range d.handles {
		err = utils.MergeErrors(true, err, h.Close())
	}
	d.handles = nil
	return err
}

// invalidateSharedLines forgets the lines [from, to) cached by the other bands reading the handle of src
func (d *Dataset) invalidateSharedLines(src Band, from, to int) {
	hb, ok := src.(handleBand)
	if !ok {
		return
	}
	h, _ := hb.Handle()
	for _, b := range d.bands {
		rb, ok := b.(*RawBand)
		if !ok || Band(rb) == src {
			continue
		}
		if bh, _ := rb.Handle(); bh == h {
			rb.invalidateLines(from, to)
		}
	}
}
