package render

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
)

// Percentile clip bounds for display normalization. Concentration fields are
// long-tailed; normalizing to the raw min/max would let a handful of extreme
// pixels compress the visible range to near-uniform color.
const (
	ClipLowPercentile  = 2.0
	ClipHighPercentile = 98.0
)

// rangeEpsilon widens a degenerate (vmin == vmax) interval.
const rangeEpsilon = 1e-12

// ComputeRange returns the percentile-clipped display range of a grid.
// Non-finite cells and exact zeros are excluded first; zero is the
// visualization layer's "no signal" sentinel, distinct from the extraction
// no-data conventions. An empty remainder yields the default unit range
// [0,1]; a zero-width range is widened by an infinitesimal epsilon so the
// normalization interval is never degenerate.
func ComputeRange(g *raster.Grid, lowPct, highPct float64) (vmin, vmax float64) {
	values := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return 0, 1
	}
	sort.Float64s(values)
	vmin = stat.Quantile(lowPct/100, stat.LinInterp, values, nil)
	vmax = stat.Quantile(highPct/100, stat.LinInterp, values, nil)
	if vmax == vmin {
		vmax = vmin + rangeEpsilon
	}
	return vmin, vmax
}

// Normalize linearly maps every cell into [0,1], clamping values outside
// [vmin, vmax]. The result is a new array; the grid is not touched.
func Normalize(g *raster.Grid, vmin, vmax float64) []float64 {
	out := make([]float64, len(g.Data))
	span := vmax - vmin
	for i, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		t := (v - vmin) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		out[i] = t
	}
	return out
}

// Colorize maps a normalized array through the ramp to an RGBA image of the
// grid's dimensions.
func Colorize(norm []float64, width, height int, ramp Ramp) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			img.SetRGBA(col, row, ramp.At(norm[row*width+col]))
		}
	}
	return img
}
