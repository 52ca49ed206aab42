package raster

import (
	"encoding/binary"
	"math"
)

var native = binary.NativeEndian

// copyWords copies count elements from src to dst, converting from srcType to dstType.
// Element k is read at src[srcOff+k*srcStride] and written at dst[dstOff+k*dstStride]:
// strides may be negative as long as every element lies inside its slice.
// Buffers are in host byte order.
func copyWords(src []byte, srcOff int, srcType DType, srcStride int,
	dst []byte, dstOff int, dstType DType, dstStride int, count int) {
	if count <= 0 {
		return
	}
	if srcType == dstType {
		size := srcType.Size()
		if srcStride == size && dstStride == size {
			copy(dst[dstOff:dstOff+size*count], src[srcOff:srcOff+size*count])
			return
		}
		for k := 0; k < count; k++ {
			copy(dst[dstOff:dstOff+size], src[srcOff:srcOff+size])
			srcOff += srcStride
			dstOff += dstStride
		}
		return
	}
	for k := 0; k < count; k++ {
		re, im := readValue(src[srcOff:], srcType)
		writeValue(dst[dstOff:], dstType, re, im)
		srcOff += srcStride
		dstOff += dstStride
	}
}

// readValue decodes the element at the start of b
func readValue(b []byte, t DType) (re, im float64) {
	switch t {
	case DTypeUINT8:
		return float64(b[0]), 0
	case DTypeINT8:
		return float64(int8(b[0])), 0
	case DTypeUINT16:
		return float64(native.Uint16(b)), 0
	case DTypeINT16:
		return float64(int16(native.Uint16(b))), 0
	case DTypeUINT32:
		return float64(native.Uint32(b)), 0
	case DTypeINT32:
		return float64(int32(native.Uint32(b))), 0
	case DTypeFLOAT32:
		return float64(math.Float32frombits(native.Uint32(b))), 0
	case DTypeFLOAT64:
		return math.Float64frombits(native.Uint64(b)), 0
	case DTypeCINT16:
		return float64(int16(native.Uint16(b))), float64(int16(native.Uint16(b[2:])))
	case DTypeCINT32:
		return float64(int32(native.Uint32(b))), float64(int32(native.Uint32(b[4:])))
	case DTypeCOMPLEX64:
		return float64(math.Float32frombits(native.Uint32(b))), float64(math.Float32frombits(native.Uint32(b[4:])))
	case DTypeCOMPLEX128:
		return math.Float64frombits(native.Uint64(b)), math.Float64frombits(native.Uint64(b[8:]))
	}
	return 0, 0
}

// writeValue encodes (re, im) at the start of b. Integer types are rounded to the nearest
// value and clamped to their range, NaN being converted to 0. The imaginary part is
// dropped for real types.
func writeValue(b []byte, t DType, re, im float64) {
	switch t {
	case DTypeUINT8:
		b[0] = uint8(toInt(re, 0, math.MaxUint8))
	case DTypeINT8:
		b[0] = uint8(int8(toInt(re, math.MinInt8, math.MaxInt8)))
	case DTypeUINT16:
		native.PutUint16(b, uint16(toInt(re, 0, math.MaxUint16)))
	case DTypeINT16:
		native.PutUint16(b, uint16(int16(toInt(re, math.MinInt16, math.MaxInt16))))
	case DTypeUINT32:
		native.PutUint32(b, uint32(toInt(re, 0, math.MaxUint32)))
	case DTypeINT32:
		native.PutUint32(b, uint32(int32(toInt(re, math.MinInt32, math.MaxInt32))))
	case DTypeFLOAT32:
		native.PutUint32(b, math.Float32bits(toFloat32(re)))
	case DTypeFLOAT64:
		native.PutUint64(b, math.Float64bits(re))
	case DTypeCINT16:
		native.PutUint16(b, uint16(int16(toInt(re, math.MinInt16, math.MaxInt16))))
		native.PutUint16(b[2:], uint16(int16(toInt(im, math.MinInt16, math.MaxInt16))))
	case DTypeCINT32:
		native.PutUint32(b, uint32(int32(toInt(re, math.MinInt32, math.MaxInt32))))
		native.PutUint32(b[4:], uint32(int32(toInt(im, math.MinInt32, math.MaxInt32))))
	case DTypeCOMPLEX64:
		native.PutUint32(b, math.Float32bits(toFloat32(re)))
		native.PutUint32(b[4:], math.Float32bits(toFloat32(im)))
	case DTypeCOMPLEX128:
		native.PutUint64(b, math.Float64bits(re))
		native.PutUint64(b[8:], math.Float64bits(im))
	}
}

func toInt(v float64, min, max int64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v <= float64(min) {
		return min
	}
	if v >= float64(max) {
		return max
	}
	return int64(v)
}

func toFloat32(v float64) float32 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return float32(v)
	case v > math.MaxFloat32:
		return float32(math.Inf(1))
	case v < -math.MaxFloat32:
		return float32(math.Inf(-1))
	}
	return float32(v)
}
