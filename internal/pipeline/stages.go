package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ctessum/geom"

	"github.com/NeverSmile666/AIR-Monitoring/internal/boundary"
	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
	"github.com/NeverSmile666/AIR-Monitoring/internal/observability"
	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
	"github.com/NeverSmile666/AIR-Monitoring/internal/render"
)

// Maps is the disk-backed MapStage: it locates the pollutant's daily raster,
// decodes it, and writes the feature and layer views as PNG files.
type Maps struct {
	RastersRoot string
	OutDir      string
	RegionKey   int
	Regions     *boundary.Catalog
	Renderer    *render.Renderer
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// RenderMaps implements MapStage. It returns the feature map path followed
// by the layer map path.
func (m *Maps) RenderMaps(ctx context.Context, gasCode string, day time.Time) ([]string, error) {
	path, err := raster.Find(m.RastersRoot, gasCode, day)
	if err != nil {
		return nil, fmt.Errorf("maps: %s: %w", gasCode, err)
	}

	decodeStart := time.Now()
	grid, err := raster.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maps: %s: %w", gasCode, err)
	}
	m.Metrics.RasterDecodeMS.Observe(time.Since(decodeStart).Seconds())

	srs, err := crs.ForRaster(grid.EPSG)
	if err != nil {
		return nil, fmt.Errorf("maps: %s: %w", gasCode, err)
	}

	feat, err := m.Regions.FindByKey(m.RegionKey)
	if err != nil {
		return nil, fmt.Errorf("maps: %s: %w", gasCode, err)
	}
	reproj, err := crs.Reproject(feat.Geom, m.Regions.SRS(), srs)
	if err != nil {
		return nil, fmt.Errorf("maps: %s: %w", gasCode, err)
	}
	highlight, ok := reproj.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("maps: %s: reprojected boundary is not polygonal", gasCode)
	}

	views := []struct {
		mode   render.Mode
		suffix string
	}{
		{render.ModeFeature, "feature"},
		{render.ModeLayer, "layer"},
	}

	paths := make([]string, 0, len(views))
	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := m.Renderer.Render(v.mode, grid, srs, gasCode, highlight)
		if err != nil {
			return nil, fmt.Errorf("maps: %s %s: %w", gasCode, v.suffix, err)
		}
		out := filepath.Join(m.OutDir, fmt.Sprintf("%s_map_%s_%s.png", gasCode, day.Format("2006-01-02"), v.suffix))
		if err := render.SavePNG(out, img); err != nil {
			return nil, fmt.Errorf("maps: %s %s: %w", gasCode, v.suffix, err)
		}
		m.Metrics.MapsRendered.WithLabelValues(v.suffix).Inc()
		m.Logger.Debug("map rendered", "gas", gasCode, "mode", v.suffix, "path", out)
		paths = append(paths, out)
	}
	return paths, nil
}
