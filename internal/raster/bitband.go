package raster

import (
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
)

// BitLayout describes how the rows of bands of less than 8 bits per pixel are packed
type BitLayout struct {
	// SkipBytes is the size of the header
	SkipBytes int64
	// BandRowBytes is the size of the row of one band (0: packed rows)
	BandRowBytes int64
	// TotalRowBytes is the distance between two rows (0: packed rows of a single band)
	TotalRowBytes int64
}

// Offsets returns the bit offsets of band (1-based) for pixels of nbits and rows of width pixels
func (l BitLayout) Offsets(nbits, band, width int) (startBit, pixelBits, lineBits int64, err error) {
	if l.SkipBytes < 0 || l.BandRowBytes < 0 || l.TotalRowBytes < 0 {
		return 0, 0, 0, newError(ConstructionError, "negative bit layout %+v", l)
	}
	if nbits <= 0 || nbits >= 8 || band < 1 || width <= 0 {
		return 0, 0, 0, newError(ConstructionError, "invalid bit band %d: %d bits, width %d", band, nbits, width)
	}
	startBit = l.SkipBytes * 8
	if band >= 2 {
		rowBytes := l.BandRowBytes
		if rowBytes == 0 {
			rowBytes = (int64(nbits)*int64(width) + 7) / 8
		}
		startBit += rowBytes * int64(band-1) * 8
	}
	pixelBits = int64(nbits)
	lineBits = l.TotalRowBytes * 8
	if lineBits == 0 {
		lineBits = pixelBits * int64(width)
	}
	return startBit, pixelBits, lineBits, nil
}

// BitBand is a band of nbits < 8 per pixel, packed most significant bit first.
// Pixels are exposed as DTypeUINT8. Blocks are full scanlines; RasterIO always goes through the block cache.
type BitBand struct {
	bandBase
	acc        accessor
	ownsHandle bool
	nbits      int
	startBit   int64
	pixelBits  int64
	lineBits   int64
	dirty      bool
	closed     bool
}

// NewBitBand creates the band index (1-based) of ds, whose pixel (x, y) starts at the bit
// startBit + y*lineBits + x*pixelBits of h
func NewBitBand(ds *Dataset, index int, h Handle, kind HandleKind, ownsHandle bool,
	startBit, pixelBits, lineBits int64, nbits int, opts ...Option) (*BitBand, error) {
	if ds == nil {
		return nil, newError(ConstructionError, "bit band %d: nil dataset", index)
	}
	switch {
	case h == nil:
		return nil, newError(ConstructionError, "bit band %d: nil handle", index)
	case nbits <= 0 || nbits >= 8:
		return nil, newError(ConstructionError, "bit band %d: %d bits per pixel, expected 1 to 7", index, nbits)
	case startBit < 0 || pixelBits < int64(nbits) || lineBits < 0:
		return nil, newError(ConstructionError, "bit band %d: invalid bit offsets (%d,%d,%d)", index, startBit, pixelBits, lineBits)
	case (pixelBits*int64(ds.width)+7)/8+1 > math.MaxInt32:
		return nil, newError(ConstructionError, "bit band %d: scanline too large", index)
	}
	o := applyOptions(ds, opts)
	b := &BitBand{
		bandBase: bandBase{
			ds:     ds,
			index:  index,
			width:  ds.width,
			height: ds.height,
			dtype:  DTypeUINT8,
			access: o.access,
			cfg:    o.cfg,
			logger: o.logger.With(zap.Int("band", index), zap.Int("nbits", nbits)),
		},
		acc:        accessor{kind: kind, h: h},
		ownsHandle: ownsHandle,
		nbits:      nbits,
		startBit:   startBit,
		pixelBits:  pixelBits,
		lineBits:   lineBits,
	}
	b.self = b
	b.acc.logger = b.logger
	var err error
	if b.blocks, err = newBlockCache(b, ds.width, o.cfg.BlockCacheBytes, b.logger); err != nil {
		return nil, fmt.Errorf("bit band %d: %w", index, err)
	}
	return b, nil
}

// NBits returns the number of bits per pixel
func (b *BitBand) NBits() int { return b.nbits }

// Handle returns the handle of the band and its kind
func (b *BitBand) Handle() (Handle, HandleKind) { return b.acc.h, b.acc.kind }

// span returns the first byte of line y, the bit offset of its first pixel in that byte
// and the number of bytes spanned by the line
func (b *BitBand) span(y int) (int64, int64, int) {
	first := b.startBit + b.lineBits*int64(y)
	last := first + b.pixelBits*int64(b.width) - 1
	return first / 8, first % 8, int(last/8 - first/8 + 1)
}

func (b *BitBand) checkOpen() error {
	if b.closed {
		return newError(NoBuffer, "bit band %d is closed", b.index)
	}
	return nil
}

func (b *BitBand) ReadBlock(x, y int, buf []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if err := b.checkBlock(x, y, buf); err != nil {
		return err
	}
	start, bit, n := b.span(y)
	packed := make([]byte, n)
	if !b.acc.seek(start, io.SeekStart) {
		if b.access == ReadOnly {
			return newError(SeekFailure, "bit band %d: failed to seek to scanline %d @ %d%s", b.index, y, start, b.acc.cause())
		}
	} else if r := b.acc.read(packed, 1, n); r < n && b.access == ReadOnly {
		return newError(ShortRead, "bit band %d: failed to read scanline %d @ %d: %d bytes requested, %d read%s",
			b.index, y, start, n, r, b.acc.cause())
	}
	for x := 0; x < b.width; x++ {
		var v byte
		for i := 0; i < b.nbits; i++ {
			if packed[bit>>3]&(0x80>>(bit&7)) != 0 {
				v |= 1 << (b.nbits - 1 - i)
			}
			bit++
		}
		bit += b.pixelBits - int64(b.nbits)
		buf[x] = v
	}
	return nil
}

// WriteBlock packs the pixels of buf in scanline y. The bits that do not belong to the
// band are read first and preserved.
func (b *BitBand) WriteBlock(x, y int, buf []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if b.access == ReadOnly {
		return newError(NotSupported, "bit band %d: write operation not permitted in read-only mode", b.index)
	}
	if err := b.checkBlock(x, y, buf); err != nil {
		return err
	}
	start, bit, n := b.span(y)
	packed := make([]byte, n)
	if !b.acc.seek(start, io.SeekStart) {
		return newError(SeekFailure, "bit band %d: failed to seek to scanline %d @ %d%s", b.index, y, start, b.acc.cause())
	}
	b.acc.read(packed, 1, n)
	for x := 0; x < b.width; x++ {
		v := buf[x]
		for i := 0; i < b.nbits; i++ {
			mask := byte(0x80 >> (bit & 7))
			if v&(1<<(b.nbits-1-i)) != 0 {
				packed[bit>>3] |= mask
			} else {
				packed[bit>>3] &^= mask
			}
			bit++
		}
		bit += b.pixelBits - int64(b.nbits)
	}
	if !b.acc.seek(start, io.SeekStart) {
		return newError(SeekFailure, "bit band %d: failed to seek to scanline %d @ %d%s", b.index, y, start, b.acc.cause())
	}
	if w := b.acc.write(packed, 1, n); w < n {
		return newError(ShortWrite, "bit band %d: failed to write scanline %d @ %d: %d bytes requested, %d written%s",
			b.index, y, start, n, w, b.acc.cause())
	}
	b.dirty = true
	b.ds.invalidateSharedLines(b, y, y+1)
	return nil
}

func (b *BitBand) RasterIO(mode IOMode, x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) error {
	if err := b.checkOpen(); err != nil {
		return err
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
	return b.genericRasterIO(mode, x, y, w, h, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
}

func (b *BitBand) FlushCache() error {
	if b.closed {
		return nil
	}
	if err := b.blocks.flush(); err != nil {
		return err
	}
	if b.dirty {
		if err := b.acc.flush(); err != nil {
			return fmt.Errorf("bit band %d: flush: %w", b.index, err)
		}
		b.dirty = false
	}
	return nil
}

func (b *BitBand) Close() error {
	if b.closed {
		return nil
	}
	err := b.FlushCache()
	if perr := b.blocks.purge(); err == nil {
		err = perr
	}
	b.closed = true
	if b.ownsHandle {
		if cerr := b.acc.h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("bit band %d: close: %w", b.index, cerr)
		}
	}
	return err
}
