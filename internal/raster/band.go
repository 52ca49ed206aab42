package raster

import (
	"context"
	"fmt"
	"math"

	"github.com/airbusgeo/rawraster/internal/log"
	"go.uber.org/zap"
)

// IOMode is the direction of a RasterIO
type IOMode int

const (
	IORead IOMode = iota
	IOWrite
)

func (m IOMode) String() string {
	if m == IOWrite {
		return "write"
	}
	return "read"
}

// Access is the access mode of a dataset or of a floating band
type Access int

const (
	// ReadOnly: IO failures are fatal and writes are rejected
	ReadOnly Access = iota
	// Update: reads of missing or truncated scanlines return zeros
	Update
)

// Band is one channel of a raster, made of Height() scanlines of Width() pixels.
// Blocks are full scanlines: x must be 0 and y is the line index.
type Band interface {
	Index() int
	Width() int
	Height() int
	DType() DType
	// BlockSize returns the size of a block in pixels
	BlockSize() (int, int)
	ReadBlock(x, y int, buf []byte) error
	WriteBlock(x, y int, buf []byte) error
	// RasterIO transfers the window (x, y, w, h) of the band from/to buf, which holds
	// bufW x bufH pixels of bufType every pixelSpace bytes and lineSpace bytes.
	// Zero spaces mean a packed buffer. The window is resampled with the nearest neighbour
	// when the buffer size differs from the window size.
	RasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error
	// Read and Write are RasterIO with a typed buffer ([]uint8 ... []complex128)
	Read(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error
	Write(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error
	FlushCache() error
	Close() error
	NoData() (float64, bool)
	SetNoData(nodata float64)
	Overviews() []Band
	AddOverview(ov Band) error
}

// Option configures a Dataset or a Band
type Option func(o *options)

type options struct {
	cfg        IOConfig
	logger     *zap.Logger
	access     Access
	interleave Interleaving
}

// WithIOConfig sets the IO strategy configuration
func WithIOConfig(cfg IOConfig) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAccess sets the access of a dataset or of a floating band
func WithAccess(a Access) Option {
	return func(o *options) {
		o.access = a
	}
}

// WithInterleaving tags the dataset with its storage order
func WithInterleaving(i Interleaving) Option {
	return func(o *options) {
		o.interleave = i
	}
}

func applyOptions(ds *Dataset, opts []Option) options {
	o := options{
		cfg:    DefaultIOConfig(),
		access: Update,
	}
	if ds != nil {
		o.cfg = ds.cfg
		o.logger = ds.logger
		o.access = ds.access
		o.interleave = ds.interleave
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Logger(context.Background())
	}
	o.cfg = o.cfg.withDefaults()
	return o
}

// genericIO is implemented by the bands that can serve a RasterIO through their block cache
type genericIO interface {
	genericRasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error
}

// bandBase holds what is common to all the bands: geometry, block cache, overviews and nodata
type bandBase struct {
	self      Band
	ds        *Dataset
	index     int
	width     int
	height    int
	dtype     DType
	access    Access
	cfg       IOConfig
	logger    *zap.Logger
	blocks    *blockCache
	overviews []Band
	nodata    float64
	hasNoData bool
}

func (b *bandBase) Index() int            { return b.index }
func (b *bandBase) Width() int            { return b.width }
func (b *bandBase) Height() int           { return b.height }
func (b *bandBase) DType() DType          { return b.dtype }
func (b *bandBase) BlockSize() (int, int) { return b.width, 1 }

// Dataset returns the dataset of the band (nil for a floating band)
func (b *bandBase) Dataset() *Dataset { return b.ds }

// Access returns the access mode of the band
func (b *bandBase) Access() Access { return b.access }

// NoData returns the nodata value and whether it has been set
func (b *bandBase) NoData() (float64, bool) {
	return b.nodata, b.hasNoData
}

// SetNoData stores the fill value of the band. It does not change the IO.
func (b *bandBase) SetNoData(nodata float64) {
	b.nodata = nodata
	b.hasNoData = true
}

func (b *bandBase) Read(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error {
	return bandIO(b.self, IORead, x, y, buffer, bufW, bufH, opts)
}

func (b *bandBase) Write(x, y int, buffer interface{}, bufW, bufH int, opts ...IOOption) error {
	return bandIO(b.self, IOWrite, x, y, buffer, bufW, bufH, opts)
}

// checkBlock validates the arguments of ReadBlock/WriteBlock
func (b *bandBase) checkBlock(x, y int, buf []byte) error {
	if x != 0 || y < 0 || y >= b.height {
		return newError(IllegalArgument, "band %d: illegal block (%d,%d)", b.index, x, y)
	}
	if len(buf) < b.width*b.dtype.Size() {
		return newError(IllegalArgument, "band %d: block buffer of %d bytes, %d expected", b.index, len(buf), b.width*b.dtype.Size())
	}
	return nil
}

// checkIO validates the arguments of RasterIO and returns the actual spaces
func (b *bandBase) checkIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) (int, int, error) {
	if mode == IOWrite && b.access == ReadOnly {
		return 0, 0, newError(NotSupported, "band %d: write operation not permitted in read-only mode", b.index)
	}
	if err := checkWindow(b.width, b.height, x, y, w, h, bufW, bufH, bufType); err != nil {
		return 0, 0, fmt.Errorf("band %d: %w", b.index, err)
	}
	pixelSpace, lineSpace = defaultSpaces(bufType, bufW, pixelSpace, lineSpace)
	if pixelSpace <= 0 || lineSpace <= 0 {
		return 0, 0, newError(IllegalArgument, "band %d: pixel and line spaces must be positive", b.index)
	}
	need, ok := bufferSpan(bufType.Size(), [2]int{bufH, lineSpace}, [2]int{bufW, pixelSpace})
	if !ok {
		return 0, 0, newError(IllegalArgument, "band %d: int overflow: buffer of %dx%d pixels", b.index, bufW, bufH)
	}
	if len(buf) < need {
		return 0, 0, newError(IllegalArgument, "band %d: buffer of %d bytes, %d expected", b.index, len(buf), need)
	}
	return pixelSpace, lineSpace, nil
}

func checkWindow(width, height, x, y, w, h, bufW, bufH int, bufType DType) error {
	if w <= 0 || h <= 0 || bufW <= 0 || bufH <= 0 {
		return newError(IllegalArgument, "empty window or buffer")
	}
	if x < 0 || y < 0 || x >= width || y >= height || w > width-x || h > height-y {
		return newError(IllegalArgument, "window (%d,%d,%d,%d) out of the raster %dx%d", x, y, w, h, width, height)
	}
	if !bufType.valid() {
		return newError(IllegalArgument, "unsupported buffer type %s", bufType)
	}
	return nil
}

// bufferSpan returns size plus (n-1)*space for each (n, space) of dims, or false on int overflow.
// The spaces must be positive.
func bufferSpan(size int, dims ...[2]int) (int, bool) {
	total := size
	for _, d := range dims {
		if d[0] <= 1 {
			continue
		}
		if d[1] > (math.MaxInt-total)/(d[0]-1) {
			return 0, false
		}
		total += (d[0] - 1) * d[1]
	}
	return total, true
}

func defaultSpaces(bufType DType, bufW, pixelSpace, lineSpace int) (int, int) {
	if pixelSpace == 0 {
		pixelSpace = bufType.Size()
	}
	if lineSpace == 0 {
		lineSpace = pixelSpace * bufW
	}
	return pixelSpace, lineSpace
}

// nearest maps the index i of a buffer of bufSize pixels to the nearest pixel of
// the source window [off, off+srcSize). Both IO paths use it, so they pick the same pixels.
func nearest(i, off, srcSize, bufSize int) int {
	return off + ((2*i+1)*srcSize)/(2*bufSize)
}

// genericRasterIO serves a RasterIO through the block cache, one scanline at a time
func (b *bandBase) genericRasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error {
	size := b.dtype.Size()
	fullLine := x == 0 && w == b.width && bufW == w
	for iy := 0; iy < bufH; iy++ {
		srcY := nearest(iy, y, h, bufH)
		blk, err := b.blocks.get(srcY, mode == IORead || !fullLine)
		if err != nil {
			return err
		}
		lineOff := iy * lineSpace
		if bufW == w {
			if mode == IORead {
				copyWords(blk.data, x*size, b.dtype, size, buf, lineOff, bufType, pixelSpace, w)
			} else {
				copyWords(buf, lineOff, bufType, pixelSpace, blk.data, x*size, b.dtype, size, w)
			}
		} else {
			for ix := 0; ix < bufW; ix++ {
				srcX := nearest(ix, x, w, bufW)
				if mode == IORead {
					copyWords(blk.data, srcX*size, b.dtype, size, buf, lineOff+ix*pixelSpace, bufType, pixelSpace, 1)
				} else {
					copyWords(buf, lineOff+ix*pixelSpace, bufType, pixelSpace, blk.data, srcX*size, b.dtype, size, 1)
				}
			}
		}
		if mode == IOWrite {
			blk.dirty = true
		}
	}
	return b.blocks.takeErr()
}
