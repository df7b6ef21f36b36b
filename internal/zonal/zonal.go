// Package zonal extracts raster cell values inside a polygon footprint and
// reduces them to a per-pollutant display statistic.
package zonal

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/NeverSmile666/AIR-Monitoring/internal/gas"
	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
)

// fillThreshold is the secondary no-data convention: some archives encode
// missing cells as a huge positive fill value instead of a formal sentinel.
const fillThreshold = 1e20

// Extract returns the raster values usable for statistics. With a polygon it
// keeps the cells whose center lies inside (or on the edge of) the polygon,
// found by testing every cell center within the polygon's bounding box in
// pixel space. With a nil polygon it keeps every cell. Either way, non-finite values, the
// grid's declared no-data sentinel, and fill magnitudes at or above 1e20
// are excluded. The polygon must already be in the raster's reference system.
func Extract(g *raster.Grid, poly geom.Polygonal) []float64 {
	if poly == nil {
		return extractAll(g)
	}

	rowLo, rowHi, colLo, colHi := pixelBounds(g, poly.Bounds())
	var values []float64
	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			x, y := g.CellCenter(row, col)
			if (geom.Point{X: x, Y: y}).Within(poly) == geom.Outside {
				continue
			}
			if v := g.At(row, col); usable(g, v) {
				values = append(values, v)
			}
		}
	}
	return values
}

// Statistic reduces extracted values to the pollutant's display statistic:
// the arithmetic mean, converted by the pollutant's scale factor and rounded
// to three decimals. An empty extraction yields exactly 0.0, the "no signal"
// default, rather than an error.
func Statistic(gasCode string, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return round3(mean * gas.Lookup(gasCode).Scale)
}

func extractAll(g *raster.Grid) []float64 {
	values := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if usable(g, v) {
			values = append(values, v)
		}
	}
	return values
}

func usable(g *raster.Grid, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if g.IsNoData(v) {
		return false
	}
	return math.Abs(v) < fillThreshold
}

// pixelBounds clamps a georeferenced bounding box to the grid's pixel
// extent. The returned range is inclusive and may be empty (hi < lo) when
// the box misses the grid entirely.
func pixelBounds(g *raster.Grid, b *geom.Bounds) (rowLo, rowHi, colLo, colHi int) {
	inv, err := g.Transform.Invert()
	if err != nil {
		return 0, g.Height - 1, 0, g.Width - 1
	}
	c0, r0 := inv.Apply(b.Min.X, b.Min.Y)
	c1, r1 := inv.Apply(b.Max.X, b.Max.Y)

	colLo = clamp(int(math.Floor(math.Min(c0, c1))), 0, g.Width-1)
	colHi = clamp(int(math.Ceil(math.Max(c0, c1))), 0, g.Width-1)
	rowLo = clamp(int(math.Floor(math.Min(r0, r1))), 0, g.Height-1)
	rowHi = clamp(int(math.Ceil(math.Max(r0, r1))), 0, g.Height-1)
	return rowLo, rowHi, colLo, colHi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round3 rounds half away from zero at the third decimal.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
