package raster

//go:generate enumer -json -type DType -trimprefix DType

import (
	"strings"
)

// DType is one of supported DataTypes for raster
type DType int

// Supported DataTypes
const (
	DTypeUNDEFINED DType = iota
	DTypeUINT8
	DTypeUINT16
	DTypeUINT32
	DTypeINT8
	DTypeINT16
	DTypeINT32
	DTypeFLOAT32
	DTypeFLOAT64
	DTypeCINT16
	DTypeCINT32
	DTypeCOMPLEX64
	DTypeCOMPLEX128
)

// Size returns the size of the dtype in bytes (0 for DTypeUNDEFINED)
func (dtype DType) Size() int {
	switch dtype {
	case DTypeUINT8, DTypeINT8:
		return 1
	case DTypeUINT16, DTypeINT16:
		return 2
	case DTypeUINT32, DTypeINT32, DTypeFLOAT32, DTypeCINT16:
		return 4
	case DTypeFLOAT64, DTypeCINT32, DTypeCOMPLEX64:
		return 8
	case DTypeCOMPLEX128:
		return 16
	}
	return 0
}

// IsComplex returns true for the types made of a real and an imaginary part
func (dtype DType) IsComplex() bool {
	switch dtype {
	case DTypeCINT16, DTypeCINT32, DTypeCOMPLEX64, DTypeCOMPLEX128:
		return true
	}
	return false
}

// IsFloatingPointFormat returns true for the real and complex floating point types
func (dtype DType) IsFloatingPointFormat() bool {
	switch dtype {
	case DTypeFLOAT32, DTypeFLOAT64, DTypeCOMPLEX64, DTypeCOMPLEX128:
		return true
	}
	return false
}

// component returns the dtype of the real (or imaginary) part of a complex dtype
func (dtype DType) component() DType {
	switch dtype {
	case DTypeCINT16:
		return DTypeINT16
	case DTypeCINT32:
		return DTypeINT32
	case DTypeCOMPLEX64:
		return DTypeFLOAT32
	case DTypeCOMPLEX128:
		return DTypeFLOAT64
	}
	return dtype
}

func (dtype DType) valid() bool {
	return dtype > DTypeUNDEFINED && dtype <= DTypeCOMPLEX128
}

// DTypeFromString convert string dtype to DType
func DTypeFromString(dtype string) DType {
	switch strings.ToLower(dtype) {
	case "byte", "uint8", "u8":
		return DTypeUINT8
	case "int8", "i8":
		return DTypeINT8
	case "uint16", "u16":
		return DTypeUINT16
	case "uint32", "u32":
		return DTypeUINT32
	case "int16", "i16":
		return DTypeINT16
	case "int32", "i32":
		return DTypeINT32
	case "float32", "f32":
		return DTypeFLOAT32
	case "float64", "f64":
		return DTypeFLOAT64
	case "cint16":
		return DTypeCINT16
	case "cint32":
		return DTypeCINT32
	case "complex64", "cfloat32":
		return DTypeCOMPLEX64
	case "complex128", "cfloat64":
		return DTypeCOMPLEX128
	default:
		return DTypeUNDEFINED
	}
}
