package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/ctessum/geom"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/NeverSmile666/AIR-Monitoring/internal/boundary"
	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
	"github.com/NeverSmile666/AIR-Monitoring/internal/gas"
	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
)

// Mode selects which of the two fixed map views to compose.
type Mode int

const (
	// ModeFeature zooms to one region, outlines it with the highlight
	// color, and draws neighboring districts at a thinner weight.
	ModeFeature Mode = iota
	// ModeLayer zooms to the full boundary layer extent and draws all
	// districts at a heavier uniform weight, with no highlight.
	ModeLayer
)

// Drawing constants shared by both modes.
const (
	zoomPad = 0.10 // fractional padding around the zoom extent

	baseOutlineColor  = "#111111"
	featureBaseWeight = 0.5
	layerBaseWeight   = 1.0

	highlightColor  = "#FFFFFF"
	highlightWeight = 2.0

	noDataColor = "#ff00ff"
	legendTicks = 3
)

// Renderer composes pollutant map images: a percentile-normalized color
// layer, a no-data overlay, district outlines, an optional highlighted
// region, and a legend strip.
type Renderer struct {
	// Districts are the fine-grained sub-units outlined in both modes.
	Districts *boundary.Catalog
	// Regions provide the whole-layer zoom extent for ModeLayer.
	Regions *boundary.Catalog
	Ramp    Ramp

	// MapWidth/MapHeight are the map canvas dimensions; the legend strip
	// adds LegendHeight below.
	MapWidth, MapHeight, LegendHeight int
}

// NewRenderer returns a Renderer with the default canvas geometry.
func NewRenderer(districts, regions *boundary.Catalog) *Renderer {
	return &Renderer{
		Districts:    districts,
		Regions:      regions,
		Ramp:         Spectrum(),
		MapWidth:     1000,
		MapHeight:    800,
		LegendHeight: 110,
	}
}

// Render composes one map image. The grid is the raster to display, srs its
// resolved reference system, and highlight the (already reprojected) region
// polygon. The highlight is required for ModeFeature and ignored for ModeLayer.
func (r *Renderer) Render(mode Mode, grid *raster.Grid, srs *crs.SRS, gasCode string, highlight geom.Polygonal) (image.Image, error) {
	vmin, vmax := ComputeRange(grid, ClipLowPercentile, ClipHighPercentile)
	norm := Normalize(grid, vmin, vmax)
	colorized := Colorize(norm, grid.Width, grid.Height, r.Ramp)
	overlayNoData(colorized, grid)

	inv, err := grid.Transform.Invert()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	extent, err := r.zoomExtent(mode, srs, highlight)
	if err != nil {
		return nil, err
	}
	c0, c1, r0, r1 := r.viewRect(grid, inv, extent)

	dc := gg.NewContext(r.MapWidth, r.MapHeight+r.LegendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Map the pixel-space view rectangle onto the map canvas.
	dc.Push()
	dc.Scale(float64(r.MapWidth)/(c1-c0), float64(r.MapHeight)/(r1-r0))
	dc.Translate(-c0, -r0)
	dc.DrawImage(colorized, 0, 0)

	baseWeight := layerBaseWeight
	if mode == ModeFeature {
		baseWeight = featureBaseWeight
	}
	if err := r.drawDistricts(dc, srs, inv, baseWeight); err != nil {
		dc.Pop()
		return nil, err
	}
	if mode == ModeFeature && highlight != nil {
		// Double stroke: a wider pass under the nominal one reads as a halo
		// against busy color fields.
		strokePolygonal(dc, highlight, inv, highlightColor, highlightWeight*1.6)
		strokePolygonal(dc, highlight, inv, highlightColor, highlightWeight)
	}
	dc.Pop()

	r.drawLegend(dc, gasCode, vmin, vmax)
	return dc.Image(), nil
}

// SavePNG writes an image to path.
func SavePNG(path string, img image.Image) error {
	return gg.SavePNG(path, img)
}

// EncodePNG writes an image to w.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// overlayNoData paints the no-data color above the color layer wherever the
// raw sample is zero or equals the grid's no-data sentinel.
func overlayNoData(img *image.RGBA, grid *raster.Grid) {
	c := color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff} // noDataColor
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			v := grid.At(row, col)
			if v == 0 || grid.IsNoData(v) {
				img.SetRGBA(col, row, c)
			}
		}
	}
}

// zoomExtent returns the georeferenced bounds (in the raster's reference
// system) the view should cover before padding.
func (r *Renderer) zoomExtent(mode Mode, srs *crs.SRS, highlight geom.Polygonal) (*geom.Bounds, error) {
	if mode == ModeFeature {
		if highlight == nil {
			return nil, fmt.Errorf("render: feature mode needs a highlight polygon")
		}
		return highlight.Bounds(), nil
	}

	next, err := r.Regions.Features(srs)
	if err != nil {
		return nil, err
	}
	bounds := geom.NewBounds()
	for {
		g, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		bounds.Extend(g.Bounds())
	}
	return bounds, nil
}

// viewRect converts a padded geographic extent to a pixel-space rectangle
// clamped to the grid. A degenerate clamp along either axis falls back to
// that full axis, so the view never extends past the available grid.
func (r *Renderer) viewRect(grid *raster.Grid, inv raster.Geotransform, extent *geom.Bounds) (c0, c1, r0, r1 float64) {
	padX := (extent.Max.X - extent.Min.X) * zoomPad
	padY := (extent.Max.Y - extent.Min.Y) * zoomPad
	xa, ya := extent.Min.X-padX, extent.Min.Y-padY
	xb, yb := extent.Max.X+padX, extent.Max.Y+padY

	ca, ra := inv.Apply(xa, ya)
	cb, rb := inv.Apply(xb, yb)

	c0 = math.Max(0, math.Min(ca, cb))
	c1 = math.Min(float64(grid.Width), math.Max(ca, cb))
	r0 = math.Max(0, math.Min(ra, rb))
	r1 = math.Min(float64(grid.Height), math.Max(ra, rb))
	if c1 <= c0 {
		c0, c1 = 0, float64(grid.Width)
	}
	if r1 <= r0 {
		r0, r1 = 0, float64(grid.Height)
	}
	return c0, c1, r0, r1
}

// drawDistricts strokes every district outline, reprojected into the
// raster's reference system, one feature at a time.
func (r *Renderer) drawDistricts(dc *gg.Context, srs *crs.SRS, inv raster.Geotransform, weight float64) error {
	next, err := r.Districts.Features(srs)
	if err != nil {
		return err
	}
	for {
		g, err := next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		strokePolygonal(dc, g, inv, baseOutlineColor, weight)
	}
}

// strokePolygonal strokes each ring of a polygon or multi-polygon, mapping
// georeferenced vertices into pixel space through the inverse geotransform.
func strokePolygonal(dc *gg.Context, p geom.Polygonal, inv raster.Geotransform, hex string, weight float64) {
	dc.SetHexColor(hex)
	dc.SetLineWidth(weight)
	for _, poly := range p.Polygons() {
		for _, ring := range poly {
			if len(ring) < 2 {
				continue
			}
			dc.NewSubPath()
			for i, pt := range ring {
				col, row := inv.Apply(pt.X, pt.Y)
				if i == 0 {
					dc.MoveTo(col, row)
				} else {
					dc.LineTo(col, row)
				}
			}
			dc.ClosePath()
		}
	}
	dc.Stroke()
}

// drawLegend renders the gradient bar, tick labels reconverted through the
// pollutant's legend scale, and the no-data swatch, in the strip below the
// map.
func (r *Renderer) drawLegend(dc *gg.Context, gasCode string, vmin, vmax float64) {
	spec := gas.Lookup(gasCode)
	top := float64(r.MapHeight)
	barX, barY := 40.0, top+50.0
	barW, barH := 260.0, 18.0

	dc.SetFontFace(basicfont.Face7x13)

	// Gradient bar, one ramp sample per column.
	for i := 0.0; i < barW; i++ {
		dc.SetColor(r.Ramp.At(i / (barW - 1)))
		dc.DrawRectangle(barX+i, barY, 1, barH)
		dc.Fill()
	}

	dc.SetHexColor("#111111")
	title := fmt.Sprintf("%s concentration (%s)", gasCode, spec.Unit)
	dc.DrawStringAnchored(title, barX+barW/2, barY-14, 0.5, 0.5)

	for i := 0; i < legendTicks; i++ {
		f := float64(i) / float64(legendTicks-1)
		v := (vmin + (vmax-vmin)*f) * spec.LegendScale
		dc.DrawStringAnchored(fmt.Sprintf("%.6g", v), barX+barW*f, barY+barH+12, 0.5, 0.5)
	}

	swatchX := barX + barW + 24
	dc.SetHexColor(noDataColor)
	dc.DrawRectangle(swatchX, barY, barH, barH)
	dc.Fill()
	dc.SetHexColor("#111111")
	dc.DrawStringAnchored("NoData", swatchX+barH+8, barY+barH/2, 0, 0.5)
}
