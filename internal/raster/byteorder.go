package raster

// SwapWords reverses the byte order of count words of wordSize bytes, located every stride
// bytes in buf starting at offset 0. stride may be negative, in which case the words are
// located before the first one and buf must start at the lowest of them.
func SwapWords(buf []byte, wordSize, count, stride int) {
	if wordSize <= 1 || count <= 0 {
		return
	}
	off := 0
	if stride < 0 {
		off = -stride * (count - 1)
	}
	for i := 0; i < count; i++ {
		w := buf[off : off+wordSize]
		for a, b := 0, wordSize-1; a < b; a, b = a+1, b-1 {
			w[a], w[b] = w[b], w[a]
		}
		off += stride
	}
}

// swapElements swaps count elements of dtype located every stride bytes.
// The real and imaginary parts of complex types are swapped independently.
func swapElements(buf []byte, dtype DType, count, stride int) {
	size := dtype.Size()
	if size <= 1 {
		return
	}
	if dtype.IsComplex() {
		half := dtype.component().Size()
		SwapWords(buf, half, count, stride)
		SwapWords(buf[half:], half, count, stride)
		return
	}
	SwapWords(buf, size, count, stride)
}

// byteOrder is the current order of the words stored in a buffer
type byteOrder int

const (
	hostOrder byteOrder = iota
	diskOrder
)

// orderedBuffer is a buffer of count words of dtype, every stride bytes, whose current byte order
// is tracked. When the disk order is the host order, transitions do not touch the memory.
type orderedBuffer struct {
	buf    []byte
	dtype  DType
	count  int
	stride int
	native bool
	order  byteOrder
}

func (ob *orderedBuffer) toDisk() {
	if ob.order == diskOrder {
		return
	}
	if !ob.native {
		swapElements(ob.buf, ob.dtype, ob.count, ob.stride)
	}
	ob.order = diskOrder
}

func (ob *orderedBuffer) toHost() {
	if ob.order == hostOrder {
		return
	}
	if !ob.native {
		swapElements(ob.buf, ob.dtype, ob.count, ob.stride)
	}
	ob.order = hostOrder
}

// withDiskOrder runs fn while buf is in disk order and returns it to host order,
// whatever the outcome of fn.
func withDiskOrder(buf []byte, dtype DType, count, stride int, native bool, fn func() error) error {
	ob := orderedBuffer{buf: buf, dtype: dtype, count: count, stride: stride, native: native}
	ob.toDisk()
	defer ob.toHost()
	return fn()
}
