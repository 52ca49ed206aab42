package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/rawraster/internal/log"
	"github.com/airbusgeo/rawraster/internal/raster"
)

func oneArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s: expected 1 argument, got %d", c.Command.Name, c.NArg())
	}
	return c.Args().First(), nil
}

func cliInfo(ctx context.Context, c *cli.Context) error {
	uri, err := oneArg(c)
	if err != nil {
		return err
	}
	l, err := layoutFromContext(c, "")
	if err != nil {
		return err
	}
	ds, err := openDataset(ctx, c, uri, l, false)
	if err != nil {
		return err
	}
	defer ds.Close()

	size, err := l.Size()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %dx%d, %d band(s) of %s, %s, %s byte order\n",
		uri, l.Width, l.Height, l.Bands, l.DType, l.Interleave, byteOrderName(l.ByteOrder))
	fmt.Printf("expected size: %d bytes\n", size)
	if rb, ok := ds.Band(1).(*raster.RawBand); ok {
		h, _ := rb.Handle()
		if actual, err := h.Seek(0, io.SeekEnd); err == nil && actual < size {
			fmt.Printf("actual size: %d bytes (truncated)\n", actual)
		}
	}
	for _, b := range ds.Bands() {
		rb := b.(*raster.RawBand)
		fmt.Printf("band %d: offset=%d pixelStride=%d lineStride=%d lineSize=%d directIO=%v\n",
			rb.Index(), rb.ImageOffset(), rb.PixelStride(), rb.LineStride(), rb.LineSize(),
			rb.CanUseDirectIO(0, 0, 1, l.Height))
	}
	r, err := ds.RawBinaryLayout()
	if err != nil {
		return err
	}
	fmt.Printf("raw binary layout: %s, imageOffset=%d pixelOffset=%d lineOffset=%d bandOffset=%d\n",
		r.Interleave, r.ImageOffset, r.PixelOffset, r.LineOffset, r.BandOffset)
	if _, err := ds.Band(1).(*raster.RawBand).VirtualMem(); err == nil {
		fmt.Println("memory mapped: yes")
	}
	return nil
}

func bandsFromContext(c *cli.Context) []int {
	bands := c.IntSlice("band")
	if len(bands) == 0 {
		return nil
	}
	return bands
}

func cliRead(ctx context.Context, c *cli.Context) error {
	uri, err := oneArg(c)
	if err != nil {
		return err
	}
	l, err := layoutFromContext(c, "")
	if err != nil {
		return err
	}
	x, y, w, h := c.Int("x"), c.Int("y"), c.Int("win-width"), c.Int("win-height")
	if w == 0 {
		w = l.Width - x
	}
	if h == 0 {
		h = l.Height - y
	}
	outW, outH := c.Int("out-width"), c.Int("out-height")
	if outW == 0 {
		outW = w
	}
	if outH == 0 {
		outH = h
	}
	bands := bandsFromContext(c)
	nBands := len(bands)
	if bands == nil {
		nBands = l.Bands
	}

	ds, err := openDataset(ctx, c, uri, l, false)
	if err != nil {
		return err
	}
	defer ds.Close()

	if output := c.String("output"); output != "" {
		size := l.DType.Size()
		buf := make([]byte, nBands*outW*outH*size)
		if err := ds.RasterIO(raster.IORead, x, y, w, h, buf, outW, outH, l.DType, bands,
			nBands*size, nBands*size*outW, size); err != nil {
			return fmt.Errorf("read %s: %w", uri, err)
		}
		return os.WriteFile(output, buf, 0644)
	}

	buf := make([]float64, nBands*outW*outH)
	if err := ds.Read(x, y, buf, outW, outH, raster.Window(w, h), raster.Bands(bands...)); err != nil {
		return fmt.Errorf("read %s: %w", uri, err)
	}
	for j := 0; j < outH; j++ {
		for b := 0; b < nBands; b++ {
			vals := make([]string, outW)
			for i := range vals {
				vals[i] = fmt.Sprint(buf[(j*outW+i)*nBands+b])
			}
			fmt.Printf("band %d line %d: %s\n", b+1, j, strings.Join(vals, " "))
		}
	}
	return nil
}

type bandStats struct {
	Min, Max, Mean float64
	Count          int64
}

// rasterStats computes the statistics of each band of ds, ignoring the nodata pixels
func rasterStats(ctx context.Context, ds *raster.Dataset, nodata *float64) ([]bandStats, error) {
	nBands, width := ds.RasterCount(), ds.Width()
	stats := make([]bandStats, nBands)
	sums := make([]float64, nBands)
	for i := range stats {
		stats[i].Min, stats[i].Max = math.Inf(1), math.Inf(-1)
	}
	line := make([]float64, nBands*width)
	for y := 0; y < ds.Height(); y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ds.Read(0, y, line, width, 1); err != nil {
			return nil, err
		}
		for i, v := range line {
			if nodata != nil && v == *nodata {
				continue
			}
			s := &stats[i%nBands]
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
			s.Count++
			sums[i%nBands] += v
		}
	}
	for i := range stats {
		if stats[i].Count > 0 {
			stats[i].Mean = sums[i] / float64(stats[i].Count)
		}
	}
	return stats, nil
}

func cliStats(ctx context.Context, c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("stats: expected at least 1 argument")
	}
	l, err := layoutFromContext(c, "")
	if err != nil {
		return err
	}
	var nodata *float64
	if c.IsSet("nodata") {
		v := c.Float64("nodata")
		nodata = &v
	}
	uris := c.Args()
	results := make([][]bandStats, len(uris))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Int("workers")))
	for i, uri := range uris {
		g.Go(func() error {
			ds, err := openDataset(gctx, c, uri, l, false)
			if err != nil {
				return err
			}
			if results[i], err = rasterStats(gctx, ds, nodata); err != nil {
				ds.Close()
				return fmt.Errorf("%s: %w", uri, err)
			}
			log.Logger(gctx).Debug("stats computed", zap.String("uri", uri))
			return ds.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, uri := range uris {
		for b, s := range results[i] {
			fmt.Printf("%s band %d: min=%g max=%g mean=%g count=%d\n", uri, b+1, s.Min, s.Max, s.Mean, s.Count)
		}
	}
	return nil
}

// copyLines copies src into dst line by line, converting the pixels
func copyLines(src, dst *raster.Dataset, complexValues bool) error {
	n := src.RasterCount() * src.Width()
	var line interface{} = make([]float64, n)
	if complexValues {
		line = make([]complex128, n)
	}
	for y := 0; y < src.Height(); y++ {
		if err := src.Read(0, y, line, src.Width(), 1); err != nil {
			return fmt.Errorf("read line %d: %w", y, err)
		}
		if err := dst.Write(0, y, line, src.Width(), 1); err != nil {
			return fmt.Errorf("write line %d: %w", y, err)
		}
	}
	return nil
}

func cliConvert(ctx context.Context, c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("convert: expected 2 arguments, got %d", c.NArg())
	}
	in, out := c.Args().Get(0), c.Args().Get(1)
	l, err := layoutFromContext(c, "")
	if err != nil {
		return err
	}
	outLayout := raster.Layout{
		Interleave: l.Interleave,
		Bands:      l.Bands,
		Width:      l.Width,
		Height:     l.Height,
		DType:      l.DType,
		ByteOrder:  l.ByteOrder,
	}
	if s := c.String("to-interleave"); s != "" {
		if outLayout.Interleave, err = raster.ParseInterleaving(s); err != nil {
			return err
		}
	}
	if s := c.String("to-dtype"); s != "" {
		if outLayout.DType, err = parseDType(s); err != nil {
			return err
		}
	}
	if s := c.String("to-byte-order"); s != "" {
		if outLayout.ByteOrder, err = parseByteOrder(s); err != nil {
			return err
		}
	}

	src, err := openDataset(ctx, c, in, l, false)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := openDataset(ctx, c, out, outLayout, true)
	if err != nil {
		return err
	}
	if err := copyLines(src, dst, l.DType.IsComplex() || outLayout.DType.IsComplex()); err != nil {
		dst.Close()
		return err
	}
	log.Logger(ctx).Info("converted", zap.String("input", in), zap.String("output", out),
		zap.Stringer("interleave", outLayout.Interleave), zap.Stringer("dtype", outLayout.DType))
	return dst.Close()
}

func cliFill(ctx context.Context, c *cli.Context) error {
	uri, err := oneArg(c)
	if err != nil {
		return err
	}
	l, err := layoutFromContext(c, "")
	if err != nil {
		return err
	}
	ds, err := openDataset(ctx, c, uri, l, true)
	if err != nil {
		return err
	}
	line := make([]float64, l.Bands*l.Width)
	for i := range line {
		line[i] = c.Float64("value")
	}
	for y := 0; y < l.Height; y++ {
		if err := ds.Write(0, y, line, l.Width, 1); err != nil {
			ds.Close()
			return fmt.Errorf("write line %d: %w", y, err)
		}
	}
	return ds.Close()
}
