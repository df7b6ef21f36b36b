// Package pipeline orchestrates the per-pollutant report units: map
// rendering, series assembly, and chart rendering for a fixed region and
// report date.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NeverSmile666/AIR-Monitoring/internal/chart"
	"github.com/NeverSmile666/AIR-Monitoring/internal/observability"
	"github.com/NeverSmile666/AIR-Monitoring/internal/series"
	"github.com/NeverSmile666/AIR-Monitoring/internal/smooth"
)

// smoothSamples is the resolution of the resampled chart curve.
const smoothSamples = 200

// MapStage renders the two fixed map views for one pollutant's daily raster
// and returns the written artifact paths.
type MapStage interface {
	RenderMaps(ctx context.Context, gasCode string, day time.Time) ([]string, error)
}

// SeriesStage assembles the daily mean series for one pollutant.
type SeriesStage interface {
	Assemble(gasCode string, regionKey int, end time.Time, windowDays int) (series.Series, error)
}

// ChartStage renders the assembled series as an encoded PNG.
type ChartStage interface {
	Render(s series.Series, smoothXs, smoothYs []float64) ([]byte, error)
}

// Result captures the outcome of one pollutant unit. Err is set when the
// unit failed; sibling units are unaffected.
type Result struct {
	Gas        string         `json:"gas"`
	RegionKey  int            `json:"region_key"`
	RegionName string         `json:"region_name,omitempty"`
	Date       string         `json:"date"`
	MapPaths   []string       `json:"map_paths,omitempty"`
	ChartPath  string         `json:"chart_path,omitempty"`
	Points     []series.Point `json:"points,omitempty"`

	Err error `json:"-"`
}

// Options fixes the report parameters shared by all units of a run.
type Options struct {
	OutDir    string
	Gases     []string
	RegionKey int
	Date      time.Time
	Window    int
	Workers   int
}

// Pipeline fans the configured pollutants out over a bounded worker pool.
type Pipeline struct {
	maps    MapStage
	series  SeriesStage
	charts  ChartStage
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	mu      sync.RWMutex
	results []Result
}

// New creates a Pipeline with the given stages and observability.
func New(maps MapStage, s SeriesStage, charts ChartStage, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	opts.Window = series.CoerceWindow(opts.Window)
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		maps:    maps,
		series:  s,
		charts:  charts,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one unit has completed, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any units yet")
	}
	return nil
}

// Run processes every configured pollutant and returns one Result per gas,
// in configuration order. A unit failure is recorded on its Result and does
// not stop the siblings. Run itself errs only when the output directory
// cannot be created or every unit failed.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	p.logger.Info("pipeline started",
		"gases", p.opts.Gases,
		"region_key", p.opts.RegionKey,
		"date", p.opts.Date.Format("2006-01-02"),
		"window_days", p.opts.Window,
		"workers", p.opts.Workers,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if err := os.MkdirAll(p.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}

	results := make([]Result, len(p.opts.Gases))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, gasCode := range p.opts.Gases {
		i, gasCode := i, gasCode
		g.Go(func() error {
			results[i] = p.runUnit(ctx, gasCode)
			return nil
		})
	}
	// Worker funcs never return errors; failures live on the Results.
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.mu.Lock()
	p.results = results
	p.mu.Unlock()

	p.logger.Info("pipeline finished", "units", len(results), "failed", failed)
	if failed == len(results) && len(results) > 0 {
		return results, errors.New("pipeline: all units failed")
	}
	return results, nil
}

// Results returns the results of the most recent completed run, or nil when
// no run has finished yet.
func (p *Pipeline) Results() []Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.results
}

// runUnit executes one pollutant unit end to end.
func (p *Pipeline) runUnit(ctx context.Context, gasCode string) Result {
	start := time.Now()
	res := Result{
		Gas:       gasCode,
		RegionKey: p.opts.RegionKey,
		Date:      p.opts.Date.Format("2006-01-02"),
	}

	if err := ctx.Err(); err != nil {
		return p.failUnit(res, err)
	}

	mapPaths, err := p.maps.RenderMaps(ctx, gasCode, p.opts.Date)
	if err != nil {
		return p.failUnit(res, err)
	}
	res.MapPaths = mapPaths

	s, err := p.series.Assemble(gasCode, p.opts.RegionKey, p.opts.Date, p.opts.Window)
	if err != nil {
		return p.failUnit(res, err)
	}
	res.RegionName = s.RegionName
	res.Points = s.Points
	p.metrics.SeriesPoints.Observe(float64(len(s.Points)))

	xs, ys := chart.SmoothInput(s.Points)
	sx, sy := smooth.Smooth(xs, ys, smoothSamples)
	png, err := p.charts.Render(s, sx, sy)
	if err != nil {
		return p.failUnit(res, err)
	}
	chartPath := filepath.Join(p.opts.OutDir, fmt.Sprintf("%s_chart_%s.png", gasCode, res.Date))
	if err := os.WriteFile(chartPath, png, 0o644); err != nil {
		return p.failUnit(res, fmt.Errorf("write chart: %w", err))
	}
	res.ChartPath = chartPath
	p.metrics.ChartsRendered.Inc()

	p.metrics.UnitsProcessed.Inc()
	p.metrics.UnitDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("unit completed",
		"gas", gasCode,
		"region", s.RegionName,
		"points", len(s.Points),
		"duration", time.Since(start),
	)
	return res
}

func (p *Pipeline) failUnit(res Result, err error) Result {
	res.Err = err
	p.metrics.UnitErrors.Inc()
	p.logger.Error("unit failed", "gas", res.Gas, "error", err)
	return res
}
