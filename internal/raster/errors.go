package raster

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	// ConstructionError: invalid dimensions, strides or data type given to a band constructor
	ConstructionError ErrorCode = iota
	// IllegalArgument: window, buffer or band list not valid for the request
	IllegalArgument
	// SeekFailure: the handle could not be positioned on the requested offset
	SeekFailure
	// ShortRead: less bytes than requested were read
	ShortRead
	// ShortWrite: less bytes than requested were written
	ShortWrite
	// NoBuffer: the band has no scanline buffer (closed or never allocated)
	NoBuffer
	// NotSupported: the operation is not available on this band or handle
	NotSupported
)

// RasterError is returned by every failing band or dataset operation
type RasterError struct {
	code ErrorCode
	desc string
}

func newError(code ErrorCode, desc string, a ...interface{}) error {
	return RasterError{code: code, desc: fmt.Sprintf(desc, a...)}
}

// Error implements error
func (e RasterError) Error() string {
	var s string
	switch e.code {
	case ConstructionError:
		s = "ConstructionError"
	case IllegalArgument:
		s = "IllegalArgument"
	case SeekFailure:
		s = "SeekFailure"
	case ShortRead:
		s = "ShortRead"
	case ShortWrite:
		s = "ShortWrite"
	case NoBuffer:
		s = "NoBuffer"
	case NotSupported:
		s = "NotSupported"
	}
	return s + ": " + e.desc
}

// Desc returns a description of the error
func (e RasterError) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e RasterError) Code() ErrorCode {
	return e.code
}

// IsError tests whether error is a RasterError with the given code
func IsError(err error, code ErrorCode) bool {
	var rerr RasterError
	return errors.As(err, &rerr) && rerr.Code() == code
}

// AsError tests whether error is a RasterError with the given code and returns it
func AsError(err error, code ErrorCode) (RasterError, bool) {
	var rerr RasterError
	return rerr, errors.As(err, &rerr) && rerr.Code() == code
}
