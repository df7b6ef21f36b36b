// Package series assembles a region's daily zonal statistic over a bounded
// lookback window ending at a reference date.
package series

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ctessum/geom"

	"github.com/NeverSmile666/AIR-Monitoring/internal/boundary"
	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
	"github.com/NeverSmile666/AIR-Monitoring/internal/zonal"
)

// ErrEmpty is returned when the lookback window contains zero usable dates.
var ErrEmpty = errors.New("series: no rasters in lookback window")

// DefaultWindow is the lookback length applied when a caller asks for a
// window outside the fixed menu.
const DefaultWindow = 30

// windowMenu is the fixed set of supported lookback lengths in days.
var windowMenu = map[int]bool{7: true, 15: true, 30: true}

// Point is one (date, statistic) pair.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is the ordered output of one assembly: strictly increasing dates,
// at most one entry per calendar day, all inside [End-(Window-1), End].
type Series struct {
	Gas        string  `json:"gas"`
	RegionKey  int     `json:"region_key"`
	RegionName string  `json:"region_name"`
	Window     int     `json:"window_days"`
	End        time.Time `json:"end"`
	Points     []Point `json:"points"`
}

// Assembler collects per-date zonal statistics for a region.
type Assembler struct {
	RastersRoot string
	Regions     *boundary.Catalog
	Logger      *slog.Logger
}

// CoerceWindow maps any requested lookback length onto the supported menu.
func CoerceWindow(days int) int {
	if windowMenu[days] {
		return days
	}
	return DefaultWindow
}

// Assemble builds the series for one pollutant and region. A zero end time
// means "today" per the package clock. The window is coerced to the fixed
// menu. Candidate files whose names carry no parseable date are silently
// skipped; several files mapping to the same calendar day collapse to the
// lexicographically last path, an arbitrary but deterministic tie-break.
func (a *Assembler) Assemble(gasCode string, regionKey int, end time.Time, windowDays int) (Series, error) {
	windowDays = CoerceWindow(windowDays)
	if end.IsZero() {
		end = clock.Now()
	}
	end = midnightUTC(end)
	start := end.AddDate(0, 0, -(windowDays - 1))

	feature, err := a.Regions.FindByKey(regionKey)
	if err != nil {
		return Series{}, err
	}

	days := a.selectDays(gasCode, start, end)
	if len(days) == 0 {
		return Series{}, fmt.Errorf("%w: %s %s..%s", ErrEmpty, gasCode,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	out := Series{
		Gas:        gasCode,
		RegionKey:  regionKey,
		RegionName: feature.Name,
		Window:     windowDays,
		End:        end,
	}

	// The region geometry is reprojected once per raster reference system
	// and reused; in practice every file in a pollutant directory shares
	// one CRS, so this is a single transform for the whole window.
	reprojected := map[int]geom.Polygonal{}
	for _, d := range days {
		grid, err := raster.Open(d.path)
		if err != nil {
			return Series{}, err
		}
		poly, ok := reprojected[grid.EPSG]
		if !ok {
			srs, err := crs.ForRaster(grid.EPSG)
			if err != nil {
				return Series{}, err
			}
			g, err := crs.Reproject(feature.Geom, a.Regions.SRS(), srs)
			if err != nil {
				return Series{}, err
			}
			poly = g.(geom.Polygonal)
			reprojected[grid.EPSG] = poly
		}

		value := zonal.Statistic(gasCode, zonal.Extract(grid, poly))
		out.Points = append(out.Points, Point{Date: d.day, Value: value})
		if a.Logger != nil {
			a.Logger.Debug("zonal statistic",
				"gas", gasCode, "date", d.day.Format("2006-01-02"), "value", value)
		}
	}
	return out, nil
}

type candidate struct {
	day  time.Time
	path string
}

// selectDays lists the pollutant's raster files, keeps those dated inside
// [start, end], and collapses same-day duplicates. Paths arrive sorted, so
// overwriting the map entry keeps the lexicographically last one.
func (a *Assembler) selectDays(gasCode string, start, end time.Time) []candidate {
	byDay := map[time.Time]string{}
	for _, path := range raster.List(a.RastersRoot, gasCode) {
		day, err := raster.DateFromFilename(path)
		if err != nil {
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		byDay[day] = path
	}

	days := make([]candidate, 0, len(byDay))
	for day, path := range byDay {
		days = append(days, candidate{day: day, path: path})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })
	return days
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
