package raster_test

import (
	"errors"
	"fmt"
	"io"

	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/interface/handle/mocks"
	"github.com/airbusgeo/rawraster/internal/raster"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("RawBand", func() {

	var (
		// args
		data          []byte
		access        raster.Access
		width, height int
		imageOffset   uint64
		pixelStride   int
		lineStride    int
		dtype         raster.DType
		nativeOrder   bool

		mem           *handle.Memory
		band          *raster.RawBand
		returnedError error
	)

	BeforeEach(func() {
		data = u16Bytes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
		access = raster.ReadOnly
		width, height = 4, 3
		imageOffset = 0
		pixelStride, lineStride = 2, 8
		dtype = raster.DTypeUINT16
		nativeOrder = true
	})

	JustBeforeEach(func() {
		mem = handle.NewMemory(data)
		band, returnedError = raster.NewFloatingRawBand(width, height, mem, raster.VirtualHandle, true,
			imageOffset, pixelStride, lineStride, dtype, nativeOrder, raster.WithAccess(access))
	})

	var (
		readRows = func() [][]uint16 {
			rows := make([][]uint16, height)
			for y := range rows {
				buf := make([]byte, width*dtype.Size())
				Expect(band.ReadBlock(0, y, buf)).To(Succeed())
				rows[y] = toU16(buf)
			}
			return rows
		}

		itShouldNotReturnAnError = func() {
			It("it should not return an error", func() {
				Expect(returnedError).To(BeNil())
			})
		}
		itShouldFailConstruction = func() {
			It("it should return a construction error and no band", func() {
				Expect(raster.IsError(returnedError, raster.ConstructionError)).To(BeTrue(), fmt.Sprint(returnedError))
				Expect(band).To(BeNil())
			})
		}
		itShouldReadRows = func(rows ...[]uint16) {
			It("it should read the rows", func() {
				Expect(readRows()).To(Equal(rows))
			})
		}
	)

	Describe("ReadBlock", func() {
		Context("contiguous band", func() {
			itShouldNotReturnAnError()
			itShouldReadRows([]uint16{1, 2, 3, 4}, []uint16{5, 6, 7, 8}, []uint16{9, 10, 11, 12})
			It("it should expose its geometry", func() {
				bw, bh := band.BlockSize()
				Expect([]int{bw, bh}).To(Equal([]int{4, 1}))
				Expect(band.PixelStride()).To(Equal(2))
				Expect(band.LineStride()).To(Equal(8))
				Expect(band.LineSize()).To(Equal(8))
				Expect(band.ImageOffset()).To(BeEquivalentTo(0))
				Expect(band.NativeOrder()).To(BeTrue())
				Expect(band.OwnsHandle()).To(BeTrue())
				h, kind := band.Handle()
				Expect(h).To(Equal(mem))
				Expect(kind).To(Equal(raster.VirtualHandle))
			})
		})

		Context("mirrored band", func() {
			BeforeEach(func() {
				pixelStride = -2
				imageOffset = 6
			})
			itShouldNotReturnAnError()
			itShouldReadRows([]uint16{4, 3, 2, 1}, []uint16{8, 7, 6, 5}, []uint16{12, 11, 10, 9})
			It("it should report the signed stride", func() {
				Expect(band.PixelStride()).To(Equal(-2))
			})
		})

		Context("foreign byte order", func() {
			BeforeEach(func() {
				data = swapped16(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
				nativeOrder = false
			})
			itShouldReadRows([]uint16{1, 2, 3, 4}, []uint16{5, 6, 7, 8}, []uint16{9, 10, 11, 12})
		})

		Context("bottom-up band", func() {
			BeforeEach(func() {
				imageOffset = 16
				lineStride = -8
			})
			itShouldReadRows([]uint16{9, 10, 11, 12}, []uint16{5, 6, 7, 8}, []uint16{1, 2, 3, 4})
		})

		Context("file truncated mid-scanline", func() {
			BeforeEach(func() {
				data = data[:20]
			})
			Context("read-only", func() {
				It("it should fail on the incomplete line", func() {
					buf := make([]byte, 8)
					err := band.ReadBlock(0, 2, buf)
					Expect(raster.IsError(err, raster.ShortRead)).To(BeTrue(), fmt.Sprint(err))
					Expect(err.Error()).To(ContainSubstring("8 bytes requested, 4 read"))
				})
				It("it should stay usable after the failure", func() {
					buf := make([]byte, 8)
					Expect(band.ReadBlock(0, 2, buf)).NotTo(Succeed())
					Expect(band.ReadBlock(0, 1, buf)).To(Succeed())
					Expect(toU16(buf)).To(Equal([]uint16{5, 6, 7, 8}))
					Expect(band.AccessLine(2)).NotTo(Succeed())
				})
			})
			Context("update", func() {
				BeforeEach(func() {
					access = raster.Update
				})
				itShouldReadRows([]uint16{1, 2, 3, 4}, []uint16{5, 6, 7, 8}, []uint16{9, 10, 0, 0})
			})
		})

		Context("scanline past the end of the file", func() {
			BeforeEach(func() {
				data = data[:8]
				access = raster.Update
			})
			itShouldReadRows([]uint16{1, 2, 3, 4}, []uint16{0, 0, 0, 0}, []uint16{0, 0, 0, 0})
		})

		Context("illegal block", func() {
			It("it should reject it", func() {
				buf := make([]byte, 8)
				Expect(raster.IsError(band.ReadBlock(1, 0, buf), raster.IllegalArgument)).To(BeTrue())
				Expect(raster.IsError(band.ReadBlock(0, 3, buf), raster.IllegalArgument)).To(BeTrue())
				Expect(raster.IsError(band.ReadBlock(0, 0, buf[:6]), raster.IllegalArgument)).To(BeTrue())
			})
		})
	})

	Describe("construction", func() {
		Context("empty raster", func() {
			BeforeEach(func() {
				width = 0
			})
			itShouldFailConstruction()
		})
		Context("stride smaller than the data type", func() {
			BeforeEach(func() {
				pixelStride = 1
			})
			itShouldFailConstruction()
		})
		Context("stride overflow", func() {
			BeforeEach(func() {
				pixelStride = 1 << 30
			})
			itShouldFailConstruction()
		})
		Context("mirrored band starting before the image", func() {
			BeforeEach(func() {
				pixelStride = -2
				imageOffset = 2
			})
			itShouldFailConstruction()
		})
		Context("undefined data type", func() {
			BeforeEach(func() {
				dtype = raster.DTypeUNDEFINED
			})
			itShouldFailConstruction()
		})
		Context("band attached to a nil dataset", func() {
			It("it should fail", func() {
				_, err := raster.NewRawBand(nil, 1, mem, raster.VirtualHandle, false, 0, 2, 8, raster.DTypeUINT16, true)
				Expect(raster.IsError(err, raster.ConstructionError)).To(BeTrue())
			})
		})
	})

	Describe("WriteBlock", func() {
		BeforeEach(func() {
			access = raster.Update
		})

		Context("read-only band", func() {
			BeforeEach(func() {
				access = raster.ReadOnly
			})
			It("it should reject the write", func() {
				err := band.WriteBlock(0, 0, u16Bytes(1, 1, 1, 1))
				Expect(raster.IsError(err, raster.NotSupported)).To(BeTrue())
			})
		})

		Context("mirrored band", func() {
			BeforeEach(func() {
				data = nil
				width, height = 5, 1
				pixelStride, lineStride = -2, 10
				imageOffset = 8
			})
			It("it should store the pixels in reverse order", func() {
				Expect(band.WriteBlock(0, 0, u16Bytes(0, 1, 2, 3, 4))).To(Succeed())
				Expect(readRows()).To(Equal([][]uint16{{0, 1, 2, 3, 4}}))
				Expect(toU16(mem.Bytes())).To(Equal([]uint16{4, 3, 2, 1, 0}))
			})
		})

		Context("foreign byte order", func() {
			BeforeEach(func() {
				data = nil
				nativeOrder = false
			})
			It("it should swap the bytes on disk only", func() {
				Expect(band.WriteBlock(0, 1, u16Bytes(1, 2, 3, 4))).To(Succeed())
				Expect(mem.Bytes()[8:16]).To(Equal(swapped16(1, 2, 3, 4)))
				buf := make([]byte, 8)
				Expect(band.ReadBlock(0, 1, buf)).To(Succeed())
				Expect(toU16(buf)).To(Equal([]uint16{1, 2, 3, 4}))
				Expect(toU16(mem.Bytes()[0:8])).To(Equal([]uint16{0, 0, 0, 0}))
			})
		})

		Context("interleaved band", func() {
			BeforeEach(func() {
				// two u8 bands, pixel interleaved
				data = []byte{1, 101, 2, 102, 3, 103, 4, 104}
				width, height = 4, 1
				pixelStride, lineStride = 2, 8
				dtype = raster.DTypeUINT8
			})
			It("it should preserve the bytes of the other band", func() {
				Expect(band.WriteBlock(0, 0, []byte{11, 12, 13, 14})).To(Succeed())
				Expect(mem.Bytes()).To(Equal([]byte{11, 101, 12, 102, 13, 103, 14, 104}))
			})
		})
	})

	Describe("Close", func() {
		It("it should release the buffer and close the owned handle once", func() {
			Expect(band.Close()).To(Succeed())
			Expect(band.Close()).To(Succeed())
			buf := make([]byte, 8)
			Expect(raster.IsError(band.ReadBlock(0, 0, buf), raster.NoBuffer)).To(BeTrue())
			Expect(raster.IsError(band.WriteBlock(0, 0, buf), raster.NoBuffer)).To(BeTrue())
			Expect(raster.IsError(band.AccessLine(0), raster.NoBuffer)).To(BeTrue())
			err := band.RasterIO(raster.IORead, 0, 0, 4, 1, buf, 4, 1, raster.DTypeUINT16, 0, 0)
			Expect(raster.IsError(err, raster.NoBuffer)).To(BeTrue())
			_, err = mem.Read(buf)
			Expect(err).To(MatchError(handle.ErrClosed))
		})
	})

	Describe("NoData", func() {
		It("it should store the value without changing the pixels", func() {
			_, ok := band.NoData()
			Expect(ok).To(BeFalse())
			band.SetNoData(2)
			nd, ok := band.NoData()
			Expect(ok).To(BeTrue())
			Expect(nd).To(Equal(2.0))
			Expect(readRows()[0]).To(Equal([]uint16{1, 2, 3, 4}))
		})
	})
})

var _ = Describe("RawBand IO calls", func() {

	var (
		mh   *mocks.Handle
		band *raster.RawBand
		line = u16Bytes(1, 2, 3, 4)
	)

	BeforeEach(func() {
		mh = &mocks.Handle{}
		mh.On("Seek", mock.AnythingOfType("int64"), io.SeekStart).Return(func(off int64, _ int) int64 { return off }, nil)
		mh.On("Read", mock.Anything).Return(func(p []byte) int { return copy(p, line) }, nil)
		mh.On("Write", mock.Anything).Return(func(p []byte) int { return len(p) }, nil)
		mh.On("Flush").Return(nil)
		mh.On("Close").Return(nil)
		var err error
		band, err = raster.NewFloatingRawBand(4, 3, mh, raster.BufferedHandle, true, 0, 2, 8, raster.DTypeUINT16, true)
		Expect(err).To(BeNil())
	})

	It("it should read a cached scanline once", func() {
		Expect(band.AccessLine(1)).To(Succeed())
		Expect(band.AccessLine(1)).To(Succeed())
		buf := make([]byte, 8)
		Expect(band.ReadBlock(0, 1, buf)).To(Succeed())
		Expect(toU16(buf)).To(Equal([]uint16{1, 2, 3, 4}))
		mh.AssertNumberOfCalls(GinkgoT(), "Read", 1)
		mh.AssertCalled(GinkgoT(), "Seek", int64(8), io.SeekStart)

		Expect(band.AccessLine(2)).To(Succeed())
		mh.AssertNumberOfCalls(GinkgoT(), "Read", 2)
	})

	It("it should serve a written scanline from the cache", func() {
		Expect(band.WriteBlock(0, 2, u16Bytes(5, 6, 7, 8))).To(Succeed())
		buf := make([]byte, 8)
		Expect(band.ReadBlock(0, 2, buf)).To(Succeed())
		Expect(toU16(buf)).To(Equal([]uint16{5, 6, 7, 8}))
		mh.AssertNumberOfCalls(GinkgoT(), "Read", 0)
		mh.AssertNumberOfCalls(GinkgoT(), "Write", 1)
	})

	It("it should flush the handle only when dirty", func() {
		Expect(band.FlushCache()).To(Succeed())
		mh.AssertNumberOfCalls(GinkgoT(), "Flush", 0)
		Expect(band.WriteBlock(0, 0, line)).To(Succeed())
		Expect(band.FlushCache()).To(Succeed())
		Expect(band.FlushCache()).To(Succeed())
		mh.AssertNumberOfCalls(GinkgoT(), "Flush", 1)
		Expect(band.Close()).To(Succeed())
		Expect(band.Close()).To(Succeed())
		mh.AssertNumberOfCalls(GinkgoT(), "Close", 1)
	})
})

var _ = Describe("RawBand IO failures", func() {

	var (
		mh     *mocks.Handle
		access raster.Access
		band   *raster.RawBand
		errIO  = errors.New("device error")
	)

	BeforeEach(func() {
		access = raster.ReadOnly
	})

	JustBeforeEach(func() {
		mh = &mocks.Handle{}
		mh.On("Seek", mock.AnythingOfType("int64"), io.SeekStart).Return(int64(0), errIO)
		mh.On("Write", mock.Anything).Return(0, errIO)
		var err error
		band, err = raster.NewFloatingRawBand(4, 3, mh, raster.VirtualHandle, false, 0, 2, 8, raster.DTypeUINT16, true,
			raster.WithAccess(access))
		Expect(err).To(BeNil())
	})

	Context("read-only", func() {
		It("it should report the seek failure with the offset", func() {
			err := band.ReadBlock(0, 2, make([]byte, 8))
			Expect(raster.IsError(err, raster.SeekFailure)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("@ 16"))
			Expect(err.Error()).To(ContainSubstring("device error"))
		})
	})

	Context("update", func() {
		BeforeEach(func() {
			access = raster.Update
		})
		It("it should read zeros", func() {
			buf := u16Bytes(9, 9, 9, 9)
			Expect(band.ReadBlock(0, 2, buf)).To(Succeed())
			Expect(toU16(buf)).To(Equal([]uint16{0, 0, 0, 0}))
		})
		It("it should fail to write", func() {
			err := band.WriteBlock(0, 2, u16Bytes(1, 2, 3, 4))
			Expect(raster.IsError(err, raster.SeekFailure)).To(BeTrue())
		})
	})
})
