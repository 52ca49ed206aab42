package raster_test

import (
	"math/rand"

	"github.com/airbusgeo/rawraster/internal/raster"
	"github.com/airbusgeo/rawraster/internal/utils"
)

func u16Bytes(vals ...uint16) []byte {
	return append([]byte(nil), utils.SliceToByte(vals)...)
}

func toU16(b []byte) []uint16 {
	return append([]uint16(nil), utils.SliceByteToGeneric[uint16](b)...)
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func ioConfig(mode raster.DirectIOMode) raster.IOConfig {
	cfg := raster.DefaultIOConfig()
	cfg.DirectIO = mode
	return cfg
}

func swapped16(vals ...uint16) []byte {
	b := u16Bytes(vals...)
	raster.SwapWords(b, 2, len(vals), 2)
	return b
}
