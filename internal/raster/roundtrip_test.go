package raster_test

import (
	"fmt"

	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/internal/raster"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scanline round trip", func() {
	dtypes := []raster.DType{raster.DTypeUINT8, raster.DTypeUINT16, raster.DTypeINT16, raster.DTypeUINT32,
		raster.DTypeINT32, raster.DTypeFLOAT32, raster.DTypeFLOAT64, raster.DTypeCOMPLEX64}
	layouts := []struct {
		name   string
		stride func(size int) int
	}{
		{"contiguous", func(size int) int { return size }},
		{"interleaved", func(size int) int { return 3 * size }},
		{"mirrored", func(size int) int { return -size }},
		{"mirrored interleaved", func(size int) int { return -2 * size }},
	}

	for _, dtype := range dtypes {
		for _, layout := range layouts {
			for _, native := range []bool{true, false} {
				dtype, layout, native := dtype, layout, native
				It(fmt.Sprintf("it should read back a %s %s scanline (native order: %v)", dtype, layout.name, native), func() {
					width, height := 7, 3
					size := dtype.Size()
					ps := layout.stride(size)
					aps := max(ps, -ps)
					lineStride := aps*width + 5
					offset := 3
					if ps < 0 {
						offset += aps * (width - 1)
					}
					mem := handle.NewMemory(nil)
					band, err := raster.NewFloatingRawBand(width, height, mem, raster.VirtualHandle, false,
						uint64(offset), ps, lineStride, dtype, native)
					Expect(err).To(BeNil())

					want := make([]byte, width*size)
					for i := range want {
						want[i] = byte(7*i + 1)
					}
					Expect(band.WriteBlock(0, 1, want)).To(Succeed())
					got := make([]byte, len(want))
					Expect(band.ReadBlock(0, 1, got)).To(Succeed())
					Expect(got).To(Equal(want))
					Expect(band.FlushCache()).To(Succeed())

					reader, err := raster.NewFloatingRawBand(width, height, mem, raster.VirtualHandle, false,
						uint64(offset), ps, lineStride, dtype, native, raster.WithAccess(raster.ReadOnly))
					Expect(err).To(BeNil())
					got = make([]byte, len(want))
					Expect(reader.ReadBlock(0, 1, got)).To(Succeed())
					Expect(got).To(Equal(want))
				})
			}
		}
	}
})
