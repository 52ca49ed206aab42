package raster

// VirtualMem is a view of the pixels of a band in the memory of a Mapped handle.
// The pixel (x, y) starts at Data[Offset + y*LineStride + x*PixelStride], in host order.
type VirtualMem struct {
	Data        []byte
	Offset      int
	PixelStride int
	LineStride  int
}

// At returns the bytes of the pixel (x, y)
func (v VirtualMem) At(x, y, size int) []byte {
	off := v.Offset + y*v.LineStride + x*v.PixelStride
	return v.Data[off : off+size]
}

// VirtualMem returns a view of the band in the memory of its handle, without any copy.
// The handle must be Mapped, the data stored in the host byte order and the whole band present
// in the handle. The pending writes of the band are flushed first. The view is valid until the
// next write through the band, and Data must only be modified in Update access.
func (b *RawBand) VirtualMem() (VirtualMem, error) {
	if b.line.ob.buf == nil {
		return VirtualMem{}, b.noBuffer()
	}
	m, ok := b.acc.h.(Mapped)
	if !ok {
		return VirtualMem{}, newError(NotSupported, "band %d: %s handle is not mapped in memory", b.index, b.acc.kind)
	}
	if !b.nativeOrder {
		return VirtualMem{}, newError(NotSupported, "band %d: data is not in the host byte order", b.index)
	}
	if err := b.FlushCache(); err != nil {
		return VirtualMem{}, err
	}
	// the view may be modified behind the caches
	if err := b.blocks.purge(); err != nil {
		return VirtualMem{}, err
	}
	b.line.index = -1

	ps := b.PixelStride()
	first, last := b.imageOffset, b.imageOffset
	for _, corner := range [][2]int{{b.width - 1, 0}, {0, b.height - 1}, {b.width - 1, b.height - 1}} {
		off := b.imageOffset + int64(corner[1])*b.lineStride + int64(corner[0])*int64(ps)
		first, last = min(first, off), max(last, off)
	}
	data := m.Bytes()
	end := last + int64(b.dtype.Size())
	if first < 0 || end > int64(len(data)) {
		return VirtualMem{}, newError(NotSupported, "band %d: bytes [%d, %d) not in a mapping of %d bytes",
			b.index, first, end, len(data))
	}
	return VirtualMem{
		Data:        data[first:end:end],
		Offset:      int(b.imageOffset - first),
		PixelStride: ps,
		LineStride:  int(b.lineStride),
	}, nil
}
