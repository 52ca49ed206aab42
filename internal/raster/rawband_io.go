package raster

import (
	"io"

	"go.uber.org/zap"
)

// RasterIO transfers a window of the band. Reads with decimation are first served by an overview,
// then the request goes through the direct path when CanUseDirectIO allows it, or through the
// block cache otherwise.
func (b *RawBand) RasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error {
	if b.line.ob.buf == nil {
		return b.noBuffer()
	}
	pixelSpace, lineSpace, err := b.checkIO(mode, x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
	if err != nil {
		return err
	}
	if mode == IORead && (bufW < w || bufH < h) {
		if done, err := b.overviewRasterIO(x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace); done {
			return err
		}
	}
	if !b.CanUseDirectIO(x, y, w, h) {
		b.logger.Debug("generic raster io", zap.Stringer("mode", mode), zap.Int("y", y), zap.Int("lines", h))
		return b.genericRasterIO(mode, x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
	}
	b.logger.Debug("direct raster io", zap.Stringer("mode", mode), zap.Int("y", y), zap.Int("lines", h))
	if mode == IORead {
		return b.directRead(x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
	}
	return b.directWrite(x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
}

// CanUseDirectIO returns whether a request on the window (x, y, w, h) bypasses the block cache.
// Mirrored bands never do. Otherwise IOConfig.DirectIO can force the decision, else the direct
// path is used for narrow windows of large scanlines that are mostly not cached.
func (b *RawBand) CanUseDirectIO(x, y, w, h int) bool {
	if b.mirrored {
		return false
	}
	switch b.cfg.DirectIO {
	case DirectIOAlways:
		return true
	case DirectIONever:
		return false
	}
	if b.lineSize < b.cfg.LargeLineThreshold {
		return false
	}
	if float64(int64(w)*b.pixelStride) > b.cfg.NarrowWindowRatio*float64(b.lineSize) {
		return false
	}
	uncached := 0
	for line := y; line < y+h; line++ {
		if !b.blocks.cached(line) {
			uncached++
		}
	}
	return uncached*b.cfg.UncachedLineDivisor > h
}

// simpleDirect returns whether the request maps to one contiguous byte range of the handle
// laid out exactly like buf
func (b *RawBand) simpleDirect(x, w, h, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) bool {
	size := b.dtype.Size()
	return x == 0 && w == b.width && bufW == w && bufH == h &&
		bufType == b.dtype && pixelSpace == size && b.pixelStride == int64(size) &&
		b.lineStride == int64(b.lineSize) && int64(lineSpace) == b.lineStride
}

// readAt reads len(dst) bytes at off. In Update access, missing bytes are zeros.
func (b *RawBand) readAt(dst []byte, off int64, line int) error {
	n, ok := b.acc.readAt(dst, off)
	if !ok {
		if b.access == ReadOnly {
			return newError(SeekFailure, "band %d: failed to seek to scanline %d @ %d%s", b.index, line, off, b.acc.cause())
		}
		clear(dst)
		return nil
	}
	if n < len(dst) {
		if b.access == ReadOnly {
			return newError(ShortRead, "band %d: failed to read scanline %d @ %d: %d bytes requested, %d read%s",
				b.index, line, off, len(dst), n, b.acc.cause())
		}
		clear(dst[n:])
	}
	return nil
}

// writeAt writes src at off
func (b *RawBand) writeAt(src []byte, off int64, line int) error {
	if !b.acc.seek(off, io.SeekStart) {
		return newError(SeekFailure, "band %d: failed to seek to scanline %d @ %d%s", b.index, line, off, b.acc.cause())
	}
	if n := b.acc.write(src, 1, len(src)); n < len(src) {
		return newError(ShortWrite, "band %d: failed to write scanline %d @ %d: %d bytes requested, %d written%s",
			b.index, line, off, len(src), n, b.acc.cause())
	}
	return nil
}

func (b *RawBand) directRead(x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error {
	if err := b.blocks.flush(); err != nil {
		return err
	}
	size := b.dtype.Size()
	if b.simpleDirect(x, w, h, bufW, bufH, bufType, pixelSpace, lineSpace) {
		dst := buf[:h*b.lineSize]
		if err := b.readAt(dst, b.lineStart(y), y); err != nil {
			return err
		}
		if !b.nativeOrder {
			swapElements(dst, b.dtype, w*h, size)
		}
		return nil
	}

	ps := int(b.pixelStride)
	scratch := make([]byte, (w-1)*ps+size)
	for iy := 0; iy < bufH; iy++ {
		srcY := nearest(iy, y, h, bufH)
		if err := b.readAt(scratch, b.lineStart(srcY)+int64(x)*b.pixelStride, srcY); err != nil {
			return err
		}
		if !b.nativeOrder {
			swapElements(scratch, b.dtype, w, ps)
		}
		lineOff := iy * lineSpace
		if bufW == w {
			copyWords(scratch, 0, b.dtype, ps, buf, lineOff, bufType, pixelSpace, w)
			continue
		}
		for ix := 0; ix < bufW; ix++ {
			srcX := nearest(ix, 0, w, bufW)
			copyWords(scratch, srcX*ps, b.dtype, ps, buf, lineOff+ix*pixelSpace, bufType, pixelSpace, 1)
		}
	}
	return nil
}

func (b *RawBand) directWrite(x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error {
	if err := b.blocks.flush(); err != nil {
		return err
	}
	b.dirty = true
	defer b.invalidateAfterWrite(y, y+h)

	size := b.dtype.Size()
	if b.simpleDirect(x, w, h, bufW, bufH, bufType, pixelSpace, lineSpace) {
		src := buf[:h*b.lineSize]
		return withDiskOrder(src, b.dtype, w*h, size, b.nativeOrder, func() error {
			return b.writeAt(src, b.lineStart(y), y)
		})
	}

	ps := int(b.pixelStride)
	scratch := make([]byte, (w-1)*ps+size)
	sparse := ps > size || bufW < w
	for iy := 0; iy < bufH; iy++ {
		srcY := nearest(iy, y, h, bufH)
		off := b.lineStart(srcY) + int64(x)*b.pixelStride
		if sparse {
			if err := b.readAt(scratch, off, srcY); err != nil {
				return err
			}
			if !b.nativeOrder {
				swapElements(scratch, b.dtype, w, ps)
			}
		}
		lineOff := iy * lineSpace
		if bufW == w {
			copyWords(buf, lineOff, bufType, pixelSpace, scratch, 0, b.dtype, ps, w)
		} else {
			for ix := 0; ix < bufW; ix++ {
				srcX := nearest(ix, 0, w, bufW)
				copyWords(buf, lineOff+ix*pixelSpace, bufType, pixelSpace, scratch, srcX*ps, b.dtype, ps, 1)
			}
		}
		if !b.nativeOrder {
			swapElements(scratch, b.dtype, w, ps)
		}
		if err := b.writeAt(scratch, off, srcY); err != nil {
			return err
		}
	}
	return nil
}

// invalidateAfterWrite drops the cached lines and blocks of [from, to) that a direct write made stale
func (b *RawBand) invalidateAfterWrite(from, to int) {
	b.invalidateLines(from, to)
	if err := b.blocks.invalidate(from, to); err != nil {
		b.logger.Warn("block cache invalidation", zap.Error(err))
	}
	if b.ds != nil {
		b.ds.invalidateSharedLines(b, from, to)
	}
}
