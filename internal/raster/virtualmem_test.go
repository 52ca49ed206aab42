package raster_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/interface/handle/mocks"
	"github.com/airbusgeo/rawraster/internal/raster"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// unseekable is a memory file that can only be read through its mapping
type unseekable struct {
	*handle.Memory
}

func (unseekable) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek not allowed")
}

var _ = Describe("VirtualMem", func() {

	var (
		data []byte
		mem  *handle.Memory
		ds   *raster.Dataset
		mode raster.DirectIOMode
	)

	BeforeEach(func() {
		// two u8 bands of 3x2, pixel interleaved
		data = []byte{1, 10, 2, 20, 3, 30, 4, 40, 5, 50, 6, 60}
		mode = raster.DirectIONever
	})

	JustBeforeEach(func() {
		mem = handle.NewMemory(data)
		var err error
		ds, err = raster.NewDatasetFromLayout(mem, raster.VirtualHandle,
			raster.Layout{Interleave: raster.PixelInterleaved, Bands: 2, Width: 3, Height: 2, DType: raster.DTypeUINT8},
			raster.WithIOConfig(ioConfig(mode)))
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		Expect(ds.Close()).To(Succeed())
	})

	It("it should address the pixels of each band in the memory of the handle", func() {
		vm1, err := ds.Band(1).(*raster.RawBand).VirtualMem()
		Expect(err).To(BeNil())
		Expect(vm1.Offset).To(Equal(0))
		Expect(vm1.PixelStride).To(Equal(2))
		Expect(vm1.LineStride).To(Equal(6))
		Expect(vm1.At(2, 1, 1)).To(Equal([]byte{6}))

		vm2, err := ds.Band(2).(*raster.RawBand).VirtualMem()
		Expect(err).To(BeNil())
		Expect(vm2.At(1, 0, 1)).To(Equal([]byte{20}))
		Expect(vm2.At(0, 1, 1)).To(Equal([]byte{40}))
	})

	It("it should flush the pending writes first", func() {
		b := ds.Band(1).(*raster.RawBand)
		Expect(b.Write(0, 0, []uint8{7, 8, 9}, 3, 1)).To(Succeed())
		vm, err := b.VirtualMem()
		Expect(err).To(BeNil())
		Expect([]byte{vm.At(0, 0, 1)[0], vm.At(1, 0, 1)[0], vm.At(2, 0, 1)[0]}).To(Equal([]byte{7, 8, 9}))
		Expect(mem.Bytes()[:6]).To(Equal([]byte{7, 10, 8, 20, 9, 30}))
	})

	It("it should read the modifications made through the view", func() {
		b := ds.Band(1).(*raster.RawBand)
		px := make([]uint8, 6)
		Expect(b.Read(0, 0, px, 3, 2)).To(Succeed())
		Expect(px).To(Equal([]uint8{1, 2, 3, 4, 5, 6}))

		vm, err := b.VirtualMem()
		Expect(err).To(BeNil())
		vm.At(1, 1, 1)[0] = 99
		Expect(b.Read(0, 0, px, 3, 2)).To(Succeed())
		Expect(px).To(Equal([]uint8{1, 2, 3, 4, 99, 6}))
	})

	Context("truncated handle", func() {
		BeforeEach(func() {
			data = data[:11]
		})
		It("it should refuse the view", func() {
			_, err := ds.Band(2).(*raster.RawBand).VirtualMem()
			Expect(raster.IsError(err, raster.NotSupported)).To(BeTrue())
			_, err = ds.Band(1).(*raster.RawBand).VirtualMem()
			Expect(err).To(BeNil())
		})
	})

	It("it should refuse unmapped handles and swapped data", func() {
		b, err := raster.NewFloatingRawBand(3, 2, &mocks.Handle{}, raster.VirtualHandle, false, 0, 1, 3, raster.DTypeUINT8, true)
		Expect(err).To(BeNil())
		_, err = b.VirtualMem()
		Expect(raster.IsError(err, raster.NotSupported)).To(BeTrue())

		b, err = raster.NewFloatingRawBand(3, 2, handle.NewMemory(make([]byte, 12)), raster.VirtualHandle, false, 0, 2, 6, raster.DTypeUINT16, false)
		Expect(err).To(BeNil())
		_, err = b.VirtualMem()
		Expect(raster.IsError(err, raster.NotSupported)).To(BeTrue())

		Expect(b.Close()).To(Succeed())
		_, err = b.VirtualMem()
		Expect(raster.IsError(err, raster.NoBuffer)).To(BeTrue())
	})

	It("it should map a mirrored band", func() {
		b, err := raster.NewFloatingRawBand(3, 1, handle.NewMemory([]byte{1, 2, 3}), raster.VirtualHandle, false, 2, -1, 3, raster.DTypeUINT8, true)
		Expect(err).To(BeNil())
		vm, err := b.VirtualMem()
		Expect(err).To(BeNil())
		Expect(vm.Offset).To(Equal(2))
		Expect(vm.PixelStride).To(Equal(-1))
		Expect(vm.At(0, 0, 1)).To(Equal([]byte{3}))
		Expect(vm.At(2, 0, 1)).To(Equal([]byte{1}))
		px := make([]uint8, 3)
		Expect(b.Read(0, 0, px, 3, 1)).To(Succeed())
		Expect(px).To(Equal([]uint8{3, 2, 1}))
	})
})

var _ = Describe("Mapped handles", func() {

	content := u16Bytes(1, 2, 3, 4, 5, 6, 7, 8)

	for _, mode := range []raster.DirectIOMode{raster.DirectIOAlways, raster.DirectIONever} {
		mode := mode
		It("it should read without seeking the handle ("+mode.String()+")", func() {
			b, err := raster.NewFloatingRawBand(4, 2, unseekable{handle.NewMemory(content)}, raster.VirtualHandle, false,
				0, 2, 8, raster.DTypeUINT16, true, raster.WithAccess(raster.ReadOnly), raster.WithIOConfig(ioConfig(mode)))
			Expect(err).To(BeNil())
			got := make([]uint16, 8)
			Expect(b.Read(0, 0, got, 4, 2)).To(Succeed())
			Expect(got).To(Equal([]uint16{1, 2, 3, 4, 5, 6, 7, 8}))
			dec := make([]uint16, 2)
			Expect(b.Read(0, 0, dec, 2, 1, raster.Window(4, 2))).To(Succeed())
			Expect(dec).To(Equal([]uint16{6, 8}))
		})
	}

	It("it should report the short reads of a mapping like the other handles", func() {
		b, err := raster.NewFloatingRawBand(4, 2, unseekable{handle.NewMemory(content[:12])}, raster.VirtualHandle, false,
			0, 2, 8, raster.DTypeUINT16, true, raster.WithAccess(raster.ReadOnly))
		Expect(err).To(BeNil())
		got := make([]uint16, 8)
		Expect(raster.IsError(b.Read(0, 0, got, 4, 2), raster.ShortRead)).To(BeTrue())

		b, err = raster.NewFloatingRawBand(4, 2, unseekable{handle.NewMemory(content[:12])}, raster.VirtualHandle, false,
			0, 2, 8, raster.DTypeUINT16, true, raster.WithAccess(raster.Update))
		Expect(err).To(BeNil())
		Expect(b.Read(0, 0, got, 4, 2)).To(Succeed())
		Expect(got).To(Equal([]uint16{1, 2, 3, 4, 5, 6, 0, 0}))
	})

	Describe("memory-mapped local file", func() {
		var path string

		BeforeEach(func() {
			if runtime.GOOS == "windows" {
				Skip("memory mapping is only available on unix")
			}
			dir, err := os.MkdirTemp("", "mapped")
			Expect(err).To(BeNil())
			path = filepath.Join(dir, "bsq.raw")
			Expect(os.WriteFile(path, content, 0644)).To(Succeed())
		})

		AfterEach(func() {
			os.RemoveAll(filepath.Dir(path))
		})

		layout := raster.Layout{Interleave: raster.BandSequential, Bands: 2, Width: 2, Height: 2, DType: raster.DTypeUINT16}

		It("it should read the file through its mapping", func() {
			mf, err := handle.OpenMapped(path, false)
			Expect(err).To(BeNil())
			ds, err := raster.NewDatasetFromLayout(mf, raster.VirtualHandle, layout, raster.WithAccess(raster.ReadOnly))
			Expect(err).To(BeNil())

			got := make([]uint16, 8)
			Expect(ds.Read(0, 0, got, 2, 2)).To(Succeed())
			Expect(got).To(Equal([]uint16{1, 2, 3, 4, 5, 6, 7, 8}))

			vm, err := ds.Band(2).(*raster.RawBand).VirtualMem()
			Expect(err).To(BeNil())
			Expect(binary.NativeEndian.Uint16(vm.At(1, 1, 2))).To(Equal(uint16(8)))

			err = ds.Write(0, 0, got, 2, 2)
			Expect(raster.IsError(err, raster.NotSupported)).To(BeTrue())

			Expect(ds.Close()).To(Succeed())
			Expect(mf.Bytes()).To(BeNil())
		})

		It("it should write the file through its mapping", func() {
			mf, err := handle.OpenMapped(path, true)
			Expect(err).To(BeNil())
			ds, err := raster.NewDatasetFromLayout(mf, raster.VirtualHandle, layout)
			Expect(err).To(BeNil())

			Expect(ds.Write(0, 1, []uint16{30, 40, 70, 80}, 2, 1)).To(Succeed())
			Expect(ds.Close()).To(Succeed())

			written, err := os.ReadFile(path)
			Expect(err).To(BeNil())
			Expect(toU16(written)).To(Equal([]uint16{1, 2, 30, 40, 5, 6, 70, 80}))
		})
	})
})
