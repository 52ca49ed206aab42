package raster_test

import (
	"bytes"

	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/internal/raster"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Overviews", func() {

	var (
		base, ov4, ov2 *raster.RawBand

		newU8Band = func(size int, data []byte) *raster.RawBand {
			b, err := raster.NewFloatingRawBand(size, size, handle.NewMemory(data), raster.VirtualHandle, false,
				0, 1, size, raster.DTypeUINT8, true)
			Expect(err).To(BeNil())
			return b
		}
		read = func(x, y, w, h, bufW, bufH int) []byte {
			buf := make([]byte, bufW*bufH)
			Expect(base.Read(x, y, buf, bufW, bufH, raster.Window(w, h))).To(Succeed())
			return buf
		}
	)

	BeforeEach(func() {
		base = newU8Band(8, bytes.Repeat([]byte{1}, 64))
		ovData := make([]byte, 16)
		for i := range ovData {
			ovData[i] = byte(100 + i)
		}
		ov4 = newU8Band(4, ovData)
		ov2 = newU8Band(2, bytes.Repeat([]byte{3}, 4))
		Expect(base.AddOverview(ov2)).To(Succeed())
		Expect(base.AddOverview(ov4)).To(Succeed())
	})

	It("it should sort the overviews from the largest", func() {
		Expect(base.Overviews()).To(Equal([]raster.Band{ov4, ov2}))
	})

	It("it should read from the best overview", func() {
		Expect(read(0, 0, 8, 8, 4, 4)).To(Equal([]byte{
			100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115}))
		Expect(read(0, 0, 8, 8, 2, 2)).To(Equal(bytes.Repeat([]byte{3}, 4)))
		Expect(read(0, 0, 8, 8, 3, 3)).To(Equal([]byte{100, 102, 103, 108, 110, 111, 112, 114, 115}))
	})

	It("it should map the window on the overview", func() {
		Expect(read(4, 4, 4, 4, 2, 2)).To(Equal([]byte{110, 111, 114, 115}))
	})

	It("it should read the band when no overview is close enough", func() {
		Expect(read(0, 0, 8, 8, 6, 6)).To(Equal(bytes.Repeat([]byte{1}, 36)))
		Expect(read(0, 0, 8, 8, 8, 8)).To(Equal(bytes.Repeat([]byte{1}, 64)))
	})

	It("it should not write to the overviews", func() {
		Expect(base.Write(0, 0, bytes.Repeat([]byte{9}, 16), 4, 4, raster.Window(8, 8))).To(Succeed())
		got := make([]byte, 16)
		Expect(ov4.Read(0, 0, got, 4, 4)).To(Succeed())
		Expect(got[0]).To(Equal(byte(100)))
	})

	It("it should reject overviews that are not smaller", func() {
		Expect(raster.IsError(base.AddOverview(nil), raster.IllegalArgument)).To(BeTrue())
		Expect(raster.IsError(base.AddOverview(newU8Band(8, make([]byte, 64))), raster.IllegalArgument)).To(BeTrue())
		Expect(raster.IsError(base.AddOverview(newU8Band(9, make([]byte, 81))), raster.IllegalArgument)).To(BeTrue())
	})
})
