package raster

import "math"

// Grid is a single-band 2D raster: Width×Height float64 samples in row-major
// order, an affine geotransform, the EPSG code of its coordinate reference
// system (0 when the file carries none), and an optional no-data sentinel.
// A Grid is read once from disk and never mutated; derived arrays are copies.
type Grid struct {
	Width, Height int
	Data          []float64
	Transform     Geotransform
	EPSG          int
	NoData        float64
	HasNoData     bool
}

// At returns the sample at (row, col). Rows run top to bottom.
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Width+col]
}

// IsNoData reports whether v is the grid's declared no-data sentinel.
// NaN sentinels compare by IsNaN since NaN != NaN.
func (g *Grid) IsNoData(v float64) bool {
	if !g.HasNoData {
		return false
	}
	if math.IsNaN(g.NoData) {
		return math.IsNaN(v)
	}
	return v == g.NoData
}

// CellCenter returns the georeferenced coordinates of the center of cell
// (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	return g.Transform.Apply(float64(col)+0.5, float64(row)+0.5)
}
