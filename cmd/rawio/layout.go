package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/airbusgeo/rawraster/cmd"
	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/internal/log"
	"github.com/airbusgeo/rawraster/internal/raster"
)

func layoutFlags(prefix string) []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: prefix + "interleave", Value: "BSQ", Usage: "BSQ, BIL or BIP"},
		cli.IntFlag{Name: prefix + "bands", Value: 1, Usage: "number of bands"},
		cli.IntFlag{Name: prefix + "width", Usage: "number of columns"},
		cli.IntFlag{Name: prefix + "height", Usage: "number of lines"},
		cli.StringFlag{Name: prefix + "dtype", Value: "uint8", Usage: "data type of the pixels (uint8, int16, float32, cint16...)"},
		cli.Int64Flag{Name: prefix + "header", Usage: "number of bytes before the first pixel"},
		cli.Int64Flag{Name: prefix + "band-gap", Usage: "number of bytes after each band (BSQ) or band row (BIL)"},
		cli.Int64Flag{Name: prefix + "line-gap", Usage: "number of bytes after each line"},
		cli.StringFlag{Name: prefix + "byte-order", Value: "native", Usage: "native, little or big"},
	}
}

func convertFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "to-interleave", Usage: "interleaving of the output (default: same as the input)"},
		cli.StringFlag{Name: "to-dtype", Usage: "data type of the output (default: same as the input)"},
		cli.StringFlag{Name: "to-byte-order", Usage: "byte order of the output (default: same as the input)"},
	}
}

func parseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return nil, nil
	case "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", s)
}

func byteOrderName(o binary.ByteOrder) string {
	if o == nil {
		return "native"
	}
	return o.String()
}

func parseDType(s string) (raster.DType, error) {
	dtype := raster.DTypeFromString(s)
	if dtype == raster.DTypeUNDEFINED {
		return dtype, fmt.Errorf("unknown data type %q", s)
	}
	return dtype, nil
}

func layoutFromContext(c *cli.Context, prefix string) (raster.Layout, error) {
	var err error
	l := raster.Layout{
		Bands:        c.Int(prefix + "bands"),
		Width:        c.Int(prefix + "width"),
		Height:       c.Int(prefix + "height"),
		HeaderBytes:  c.Int64(prefix + "header"),
		BandGapBytes: c.Int64(prefix + "band-gap"),
		LineGapBytes: c.Int64(prefix + "line-gap"),
	}
	if l.Interleave, err = raster.ParseInterleaving(c.String(prefix + "interleave")); err != nil {
		return l, err
	}
	if l.DType, err = parseDType(c.String(prefix + "dtype")); err != nil {
		return l, err
	}
	if l.ByteOrder, err = parseByteOrder(c.String(prefix + "byte-order")); err != nil {
		return l, err
	}
	if l.Width <= 0 || l.Height <= 0 {
		return l, fmt.Errorf("--%swidth and --%sheight are required", prefix, prefix)
	}
	return l, nil
}

// openDataset opens the raster stored at uri, laid out as l
func openDataset(ctx context.Context, c *cli.Context, uri string, l raster.Layout, update bool) (*raster.Dataset, error) {
	opts := []handle.OpenOption{}
	u, err := handle.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if u.IsLocal() && !update && c.GlobalBool("mmap") {
		opts = append(opts, handle.MemoryMapped())
	}
	if !u.IsLocal() {
		store, err := cmd.InitStorage(ctx, cmd.StorageConfigFromContext(c))
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		opts = append(opts, handle.WithObjectStore(store))
	}
	h, kind, err := handle.Open(ctx, uri, update, opts...)
	if err != nil {
		return nil, err
	}
	access := raster.ReadOnly
	if update {
		access = raster.Update
	}
	ds, err := raster.NewDatasetFromLayout(h, kind, l,
		raster.WithAccess(access),
		raster.WithIOConfig(cmd.IOConfig(c.GlobalString(cmd.DirectIOFlag))),
		raster.WithLogger(log.Logger(log.With(ctx, "uri", uri))))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return ds, nil
}
