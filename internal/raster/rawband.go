package raster

import (
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
)

// RawBand exposes pixels stored at imageOffset + y*lineStride + x*pixelStride in a Handle.
//
// A negative pixel stride at construction means that the band is mirrored in X: the pixel x
// of a line is stored at lineStart + (width-1-x)*|pixelStride|.
//
// Failure policy: in ReadOnly access, seek failures and short reads are errors. In Update
// access they are considered as a region not yet written and read as zeros, which allows to
// create a file and fill it in any order. Write failures are always errors.
type RawBand struct {
	bandBase
	acc         accessor
	ownsHandle  bool
	imageOffset int64
	pixelStride int64 // absolute value
	mirrored    bool
	lineStride  int64
	nativeOrder bool
	lineSize    int
	line        lineCache
	dirty       bool
	closed      bool
}

// lineCache is the last scanline read or written, with its physical layout
type lineCache struct {
	index int // -1 if no line is loaded
	ob    orderedBuffer
}

// NewRawBand creates the band index (1-based) of ds. The band is not added to ds (see Dataset.AddBand).
// ownsHandle tells whether the band must close h when it is closed.
func NewRawBand(ds *Dataset, index int, h Handle, kind HandleKind, ownsHandle bool,
	imageOffset uint64, pixelStride, lineStride int, dtype DType, nativeOrder bool, opts ...Option) (*RawBand, error) {
	if ds == nil {
		return nil, newError(ConstructionError, "nil dataset: use NewFloatingRawBand")
	}
	return newRawBand(ds, index, ds.width, ds.height, h, kind, ownsHandle, imageOffset, pixelStride, lineStride, dtype, nativeOrder, opts)
}

// NewFloatingRawBand creates a band that is not attached to any dataset.
// Its access is Update unless WithAccess is provided.
func NewFloatingRawBand(width, height int, h Handle, kind HandleKind, ownsHandle bool,
	imageOffset uint64, pixelStride, lineStride int, dtype DType, nativeOrder bool, opts ...Option) (*RawBand, error) {
	return newRawBand(nil, 1, width, height, h, kind, ownsHandle, imageOffset, pixelStride, lineStride, dtype, nativeOrder, opts)
}

func newRawBand(ds *Dataset, index, width, height int, h Handle, kind HandleKind, ownsHandle bool,
	imageOffset uint64, pixelStride, lineStride int, dtype DType, nativeOrder bool, opts []Option) (*RawBand, error) {
	o := applyOptions(ds, opts)
	switch {
	case h == nil:
		return nil, newError(ConstructionError, "band %d: nil handle", index)
	case width <= 0 || height <= 0:
		return nil, newError(ConstructionError, "band %d: invalid raster size %dx%d", index, width, height)
	case !dtype.valid():
		return nil, newError(ConstructionError, "band %d: invalid data type %s", index, dtype)
	case imageOffset > math.MaxInt64:
		return nil, newError(ConstructionError, "band %d: image offset %d too large", index, imageOffset)
	}
	size := dtype.Size()
	stride := int64(pixelStride)
	mirrored := stride < 0
	if mirrored {
		stride = -stride
	}
	if stride < int64(size) {
		return nil, newError(ConstructionError, "band %d: pixel stride %d smaller than the data type size %d", index, pixelStride, size)
	}
	if stride > (math.MaxInt32-int64(size))/int64(max(1, width-1)) {
		return nil, newError(ConstructionError, "band %d: int overflow: pixel stride %d for a width of %d", index, pixelStride, width)
	}
	lineSize := int(stride*int64(width-1)) + size
	if mirrored && imageOffset < uint64(stride*int64(width-1)) {
		return nil, newError(ConstructionError, "band %d: image offset %d too small for a mirrored band", index, imageOffset)
	}

	b := &RawBand{
		bandBase: bandBase{
			ds:     ds,
			index:  index,
			width:  width,
			height: height,
			dtype:  dtype,
			access: o.access,
			cfg:    o.cfg,
			logger: o.logger.With(zap.Int("band", index)),
		},
		acc:         accessor{kind: kind, h: h},
		ownsHandle:  ownsHandle,
		imageOffset: int64(imageOffset),
		pixelStride: stride,
		mirrored:    mirrored,
		lineStride:  int64(lineStride),
		nativeOrder: nativeOrder,
		lineSize:    lineSize,
	}
	b.self = b
	b.acc.logger = b.logger
	b.line = lineCache{
		index: -1,
		ob: orderedBuffer{
			buf:    make([]byte, lineSize),
			dtype:  dtype,
			count:  width,
			stride: int(stride),
			native: nativeOrder,
		},
	}
	var err error
	if b.blocks, err = newBlockCache(b, width*size, o.cfg.BlockCacheBytes, b.logger); err != nil {
		return nil, fmt.Errorf("band %d: %w", index, err)
	}
	return b, nil
}

// ImageOffset returns the offset of the first byte of the pixel (0,0)
func (b *RawBand) ImageOffset() int64 { return b.imageOffset }

// PixelStride returns the signed pixel stride, negative for a mirrored band
func (b *RawBand) PixelStride() int {
	if b.mirrored {
		return -int(b.pixelStride)
	}
	return int(b.pixelStride)
}

// LineStride returns the distance in bytes between two lines
func (b *RawBand) LineStride() int { return int(b.lineStride) }

// NativeOrder returns whether the data is stored in the byte order of the host
func (b *RawBand) NativeOrder() bool { return b.nativeOrder }

// Handle returns the handle of the band and its kind
func (b *RawBand) Handle() (Handle, HandleKind) { return b.acc.h, b.acc.kind }

// OwnsHandle returns whether the band closes its handle
func (b *RawBand) OwnsHandle() bool { return b.ownsHandle }

// LineSize returns the number of bytes spanned by a scanline of the band
func (b *RawBand) LineSize() int { return b.lineSize }

// lineStart returns the offset of the first physical byte of line y
func (b *RawBand) lineStart(y int) int64 {
	off := b.imageOffset + int64(y)*b.lineStride
	if b.mirrored {
		off -= b.pixelStride * int64(b.width-1)
	}
	return off
}

// logical returns the position in the line buffer of the pixel x=0 and the signed stride
func (b *RawBand) logical() (int, int) {
	if b.mirrored {
		return int(b.pixelStride) * (b.width - 1), -int(b.pixelStride)
	}
	return 0, int(b.pixelStride)
}

func (b *RawBand) noBuffer() error {
	return newError(NoBuffer, "band %d has no scanline buffer", b.index)
}

// AccessLine loads the scanline y in the line buffer, in host order
func (b *RawBand) AccessLine(y int) error {
	lb := &b.line.ob
	if lb.buf == nil {
		return b.noBuffer()
	}
	if b.line.index == y {
		return nil
	}
	b.line.index = -1

	off := b.lineStart(y)
	n, ok := b.acc.readAt(lb.buf, off)
	if !ok {
		if b.access == ReadOnly {
			return newError(SeekFailure, "band %d: failed to seek to scanline %d @ %d%s", b.index, y, off, b.acc.cause())
		}
		clear(lb.buf)
		lb.order = hostOrder
		b.line.index = y
		return nil
	}
	if n < b.lineSize {
		if b.access == ReadOnly {
			return newError(ShortRead, "band %d: failed to read scanline %d @ %d: %d bytes requested, %d read%s",
				b.index, y, off, b.lineSize, n, b.acc.cause())
		}
		b.logger.Debug("zero-filling scanline", zap.Int("line", y), zap.Int("read", n))
		clear(lb.buf[n:])
	}
	lb.order = diskOrder
	lb.toHost()
	b.line.index = y
	return nil
}

// ReadBlock reads the scanline y in buf as width packed pixels
func (b *RawBand) ReadBlock(x, y int, buf []byte) error {
	if b.line.ob.buf == nil {
		return b.noBuffer()
	}
	if err := b.checkBlock(x, y, buf); err != nil {
		return err
	}
	if err := b.AccessLine(y); err != nil {
		return err
	}
	start, stride := b.logical()
	copyWords(b.line.ob.buf, start, b.dtype, stride, buf, 0, b.dtype, b.dtype.Size(), b.width)
	return nil
}

// WriteBlock writes the width packed pixels of buf as scanline y.
// The bytes of the line that do not belong to the band are preserved.
func (b *RawBand) WriteBlock(x, y int, buf []byte) error {
	if b.line.ob.buf == nil {
		return b.noBuffer()
	}
	if b.access == ReadOnly {
		return newError(NotSupported, "band %d: write operation not permitted in read-only mode", b.index)
	}
	if err := b.checkBlock(x, y, buf); err != nil {
		return err
	}
	size := b.dtype.Size()
	if b.pixelStride > int64(size) {
		if err := b.AccessLine(y); err != nil {
			return err
		}
	}
	lb := &b.line.ob
	start, stride := b.logical()
	copyWords(buf, 0, b.dtype, size, lb.buf, start, b.dtype, stride, b.width)
	b.line.index = -1

	off := b.lineStart(y)
	lb.toDisk()
	defer lb.toHost()
	if !b.acc.seek(off, io.SeekStart) {
		return newError(SeekFailure, "band %d: failed to seek to scanline %d @ %d%s", b.index, y, off, b.acc.cause())
	}
	if n := b.acc.write(lb.buf, 1, b.lineSize); n < b.lineSize {
		return newError(ShortWrite, "band %d: failed to write scanline %d @ %d: %d bytes requested, %d written%s",
			b.index, y, off, b.lineSize, n, b.acc.cause())
	}
	b.line.index = y
	b.dirty = true
	if b.ds != nil {
		b.ds.invalidateSharedLines(b, y, y+1)
	}
	return nil
}

// FlushCache writes the dirty blocks of the block cache and flushes the handle if the band
// has been written since the last flush
func (b *RawBand) FlushCache() error {
	if b.closed {
		return nil
	}
	if err := b.blocks.flush(); err != nil {
		return err
	}
	if b.dirty {
		if err := b.acc.flush(); err != nil {
			return fmt.Errorf("band %d: flush: %w", b.index, err)
		}
		b.dirty = false
	}
	return nil
}

// Close flushes the band, closes the handle if the band owns it and releases the line buffer.
// Any IO on a closed band fails.
func (b *RawBand) Close() error {
	if b.closed {
		return nil
	}
	err := b.FlushCache()
	if perr := b.blocks.purge(); err == nil {
		err = perr
	}
	b.closed = true
	b.line.ob.buf = nil
	b.line.index = -1
	if b.ownsHandle {
		if cerr := b.acc.h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("band %d: close: %w", b.index, cerr)
		}
	}
	return err
}

// invalidateLines forgets the cached scanline if it is in [from, to)
func (b *RawBand) invalidateLines(from, to int) {
	if b.line.index >= from && b.line.index < to {
		b.line.index = -1
	}
}
