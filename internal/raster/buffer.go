package raster

import (
	"github.com/airbusgeo/rawraster/internal/utils"
)

// IOOption configures a typed Read or Write
type IOOption func(o *ioOptions)

type ioOptions struct {
	windowW, windowH int
	pixelSpace       int
	lineSpace        int
	bandSpace        int
	bands            []int
}

// Window sets the size of the source window, which defaults to the size of the buffer.
// The window is resampled with the nearest neighbour to fit the buffer.
func Window(w, h int) IOOption {
	return func(o *ioOptions) {
		o.windowW, o.windowH = w, h
	}
}

// PixelSpacing sets the number of elements between two pixels of the buffer
func PixelSpacing(n int) IOOption {
	return func(o *ioOptions) {
		o.pixelSpace = n
	}
}

// LineSpacing sets the number of elements between two lines of the buffer
func LineSpacing(n int) IOOption {
	return func(o *ioOptions) {
		o.lineSpace = n
	}
}

// BandSpacing sets the number of elements between two bands of the buffer
func BandSpacing(n int) IOOption {
	return func(o *ioOptions) {
		o.bandSpace = n
	}
}

// Bands selects the bands (1-based) of a dataset IO
func Bands(bands ...int) IOOption {
	return func(o *ioOptions) {
		o.bands = bands
	}
}

func (o ioOptions) window(bufW, bufH int) (int, int) {
	w, h := o.windowW, o.windowH
	if w == 0 {
		w = bufW
	}
	if h == 0 {
		h = bufH
	}
	return w, h
}

// bufferBytes returns the memory of a typed buffer and its data type
func bufferBytes(buffer interface{}) ([]byte, DType, error) {
	switch buf := buffer.(type) {
	case []byte:
		return buf, DTypeUINT8, nil
	case []int8:
		return utils.SliceToByte(buf), DTypeINT8, nil
	case []uint16:
		return utils.SliceToByte(buf), DTypeUINT16, nil
	case []int16:
		return utils.SliceToByte(buf), DTypeINT16, nil
	case []uint32:
		return utils.SliceToByte(buf), DTypeUINT32, nil
	case []int32:
		return utils.SliceToByte(buf), DTypeINT32, nil
	case []float32:
		return utils.SliceToByte(buf), DTypeFLOAT32, nil
	case []float64:
		return utils.SliceToByte(buf), DTypeFLOAT64, nil
	case []complex64:
		return utils.SliceToByte(buf), DTypeCOMPLEX64, nil
	case []complex128:
		return utils.SliceToByte(buf), DTypeCOMPLEX128, nil
	}
	return nil, DTypeUNDEFINED, newError(IllegalArgument, "unsupported buffer type %T", buffer)
}

// bandIO performs a RasterIO on b with a typed buffer
func bandIO(b Band, mode IOMode, x, y int, buffer interface{}, bufW, bufH int, opts []IOOption) error {
	buf, dtype, err := bufferBytes(buffer)
	if err != nil {
		return err
	}
	o := ioOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	w, h := o.window(bufW, bufH)
	size := dtype.Size()
	return b.RasterIO(mode, x, y, w, h, buf, bufW, bufH, dtype, o.pixelSpace*size, o.lineSpace*size)
}
