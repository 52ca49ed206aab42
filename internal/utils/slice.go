package utils

import (
	"fmt"
	"unsafe"
)

// Number is any pixel type that can be viewed as raw bytes
type Number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64 | ~complex64 | ~complex128
}

// ToSliceByte converts an unsafe.Pointer to a slice of byte
// Usage:
// f := []float64{1.0, 2.0, 3.0}
// b := ToSliceByte(unsafe.Pointer(&f[0]), len(f)*8)
func ToSliceByte(ptr unsafe.Pointer, l int) []byte {
	return unsafe.Slice((*byte)(ptr), l)
}

// SliceToByte returns the memory of s as a slice of byte (no copy)
func SliceToByte[T Number](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var t T
	return ToSliceByte(unsafe.Pointer(&s[0]), len(s)*int(unsafe.Sizeof(t)))
}

func convertSize(b []byte, d int) int {
	l := len(b)
	if l%d != 0 {
		panic(fmt.Sprintf("len must be a multiple of %d", d))
	}
	return l / d
}

// SliceByteToGeneric converts a slice of byte to a slice of T (no copy)
// The length of b must be a multiple of the size of T
func SliceByteToGeneric[T Number](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var t T
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), convertSize(b, int(unsafe.Sizeof(t))))
}
