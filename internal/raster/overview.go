package raster

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// overviewTolerance is how much an overview may exceed the requested reduction factor
const overviewTolerance = 1.2

// Overviews returns the reduced resolution versions of the band, from the largest to the smallest
func (b *bandBase) Overviews() []Band {
	return b.overviews
}

// AddOverview registers ov as a reduced resolution version of the band.
// ov must be strictly smaller than the band in at least one dimension and not larger in the other.
func (b *bandBase) AddOverview(ov Band) error {
	if ov == nil {
		return newError(IllegalArgument, "band %d: nil overview", b.index)
	}
	if ov.Width() > b.width || ov.Height() > b.height || (ov.Width() == b.width && ov.Height() == b.height) {
		return newError(IllegalArgument, "band %d: overview %dx%d is not smaller than the band %dx%d",
			b.index, ov.Width(), ov.Height(), b.width, b.height)
	}
	b.overviews = append(b.overviews, ov)
	sort.SliceStable(b.overviews, func(i, j int) bool {
		return b.overviews[i].Width() > b.overviews[j].Width()
	})
	return nil
}

// bestOverview returns the overview with the largest reduction factor that does not exceed
// factor by more than overviewTolerance, or nil
func (b *bandBase) bestOverview(factor float64) (Band, float64) {
	var best Band
	bestFactor := 1.0
	for _, ov := range b.overviews {
		f := float64(b.width) / float64(ov.Width())
		if f > bestFactor && f <= factor*overviewTolerance {
			best, bestFactor = ov, f
		}
	}
	return best, bestFactor
}

// overviewRasterIO serves a decimated read with an overview. It returns false if no overview fits.
func (b *bandBase) overviewRasterIO(x, y, w, h int, buf []byte, bufW, bufH int, bufType DType, pixelSpace, lineSpace int) (bool, error) {
	if len(b.overviews) == 0 {
		return false, nil
	}
	factor := math.Min(float64(w)/float64(bufW), float64(h)/float64(bufH))
	ov, fx := b.bestOverview(factor)
	if ov == nil {
		return false, nil
	}
	fy := float64(b.height) / float64(ov.Height())
	ox, ow := scaleWindow(x, w, fx, ov.Width())
	oy, oh := scaleWindow(y, h, fy, ov.Height())
	b.logger.Debug("read from overview", zap.Float64("factor", fx), zap.Int("width", ov.Width()))
	return true, ov.RasterIO(IORead, ox, oy, ow, oh, buf, bufW, bufH, bufType, pixelSpace, lineSpace)
}

// scaleWindow maps [off, off+size) of the full resolution to a resolution reduced by factor
// and clamps it to [0, limit)
func scaleWindow(off, size int, factor float64, limit int) (int, int) {
	o := int(math.Round(float64(off) / factor))
	s := int(math.Round(float64(size) / factor))
	o = min(max(o, 0), limit-1)
	s = min(max(s, 1), limit-o)
	return o, s
}
