// Package chart renders a region's daily series as a PNG line chart with
// date-aware tick formatting.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/NeverSmile666/AIR-Monitoring/internal/gas"
	"github.com/NeverSmile666/AIR-Monitoring/internal/series"
)

// tickFormat renders tick dates as month.day, e.g. "12.20".
const tickFormat = "01.02"

// Renderer draws time-series charts at a fixed figure size.
type Renderer struct {
	Width, Height vg.Length
}

// NewRenderer returns a Renderer with the default figure size.
func NewRenderer() *Renderer {
	return &Renderer{Width: 12 * vg.Inch, Height: 5.5 * vg.Inch}
}

// Render plots the smoothed curve with the raw daily points overlaid and
// returns the encoded PNG. The smoothed xs are unix seconds, as produced by
// SmoothInput.
func (r *Renderer) Render(s series.Series, smoothXs, smoothYs []float64) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s %d", s.Gas, s.RegionName, s.End.Year())
	p.Y.Label.Text = fmt.Sprintf("Mean (%s)", gas.Lookup(s.Gas).Unit)
	p.X.Tick.Marker = dayTicker{interval: tickInterval(s.Window)}
	p.Add(plotter.NewGrid())

	curve := make(plotter.XYs, len(smoothXs))
	for i := range smoothXs {
		curve[i] = plotter.XY{X: smoothXs[i], Y: smoothYs[i]}
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, fmt.Errorf("chart: line: %w", err)
	}
	line.Width = vg.Points(2)
	p.Add(line)

	raw := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		raw[i] = plotter.XY{X: float64(pt.Date.Unix()), Y: pt.Value}
	}
	scatter, err := plotter.NewScatter(raw)
	if err != nil {
		return nil, fmt.Errorf("chart: points: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	var buf bytes.Buffer
	wt, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("chart: encode: %w", err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart: write: %w", err)
	}
	return buf.Bytes(), nil
}

// SmoothInput converts series points to the float64 (x, y) pairs the curve
// smoother consumes, with x as unix seconds.
func SmoothInput(points []series.Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Date.Unix())
		ys[i] = p.Value
	}
	return xs, ys
}

// tickInterval applies the tick density policy: a 7-day window labels every
// day, a 15-day window every second day, and anything else targets between
// 6 and 15 labels.
func tickInterval(windowDays int) int {
	switch windowDays {
	case 7:
		return 1
	case 15:
		return 2
	default:
		interval := int(math.Ceil(float64(windowDays) / 15))
		if interval < 1 {
			interval = 1
		}
		for interval > 1 && windowDays/interval < 6 {
			interval--
		}
		return interval
	}
}

// dayTicker emits one labeled tick per interval days at UTC midnights.
type dayTicker struct {
	interval int
}

func (t dayTicker) Ticks(min, max float64) []plot.Tick {
	if max < min {
		return nil
	}
	first := time.Unix(int64(min), 0).UTC()
	first = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	if float64(first.Unix()) < min {
		first = first.AddDate(0, 0, 1)
	}

	var ticks []plot.Tick
	for d := first; float64(d.Unix()) <= max; d = d.AddDate(0, 0, t.interval) {
		ticks = append(ticks, plot.Tick{
			Value: float64(d.Unix()),
			Label: d.Format(tickFormat),
		})
	}
	return ticks
}
