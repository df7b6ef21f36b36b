package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeverSmile666/AIR-Monitoring/internal/observability"
	"github.com/NeverSmile666/AIR-Monitoring/internal/pipeline"
	"github.com/NeverSmile666/AIR-Monitoring/internal/series"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var reportDate = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

// stubMaps records rendered gases and can fail selectively.
type stubMaps struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
}

func (s *stubMaps) RenderMaps(_ context.Context, gasCode string, _ time.Time) ([]string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, gasCode)
	s.mu.Unlock()
	if err := s.failFor[gasCode]; err != nil {
		return nil, err
	}
	return []string{gasCode + "_feature.png", gasCode + "_layer.png"}, nil
}

type stubSeries struct {
	failFor map[string]error
}

func (s *stubSeries) Assemble(gasCode string, regionKey int, end time.Time, windowDays int) (series.Series, error) {
	if err := s.failFor[gasCode]; err != nil {
		return series.Series{}, err
	}
	return series.Series{
		Gas:        gasCode,
		RegionKey:  regionKey,
		RegionName: "Western Region",
		Window:     windowDays,
		End:        end,
		Points: []series.Point{
			{Date: end.AddDate(0, 0, -1), Value: 1.5},
			{Date: end, Value: 2.5},
		},
	}, nil
}

type stubCharts struct{}

func (stubCharts) Render(series.Series, []float64, []float64) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func newPipeline(t *testing.T, maps *stubMaps, s *stubSeries, opts pipeline.Options) *pipeline.Pipeline {
	t.Helper()
	if opts.OutDir == "" {
		opts.OutDir = t.TempDir()
	}
	if opts.Date.IsZero() {
		opts.Date = reportDate
	}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	return pipeline.New(maps, s, stubCharts{}, discardLogger(), observability.NewMetricsForTesting(), opts)
}

func TestRun_AllUnitsSucceed(t *testing.T) {
	maps := &stubMaps{}
	p := newPipeline(t, maps, &stubSeries{}, pipeline.Options{
		Gases:     []string{"CH4", "NO2", "O3"},
		RegionKey: 100,
		Window:    7,
	})

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, gasCode := range []string{"CH4", "NO2", "O3"} {
		r := results[i]
		assert.NoError(t, r.Err)
		assert.Equal(t, gasCode, r.Gas)
		assert.Equal(t, "Western Region", r.RegionName)
		assert.Equal(t, "2026-08-30", r.Date)
		assert.Len(t, r.MapPaths, 2)
		assert.Len(t, r.Points, 2)
		assert.FileExists(t, r.ChartPath)
	}
	assert.ElementsMatch(t, []string{"CH4", "NO2", "O3"}, maps.calls)
}

func TestRun_UnitFailureDoesNotStopSiblings(t *testing.T) {
	maps := &stubMaps{failFor: map[string]error{"NO2": errors.New("raster missing")}}
	p := newPipeline(t, maps, &stubSeries{}, pipeline.Options{
		Gases: []string{"CH4", "NO2", "O3"},
	})

	results, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "raster missing")
	assert.NoError(t, results[2].Err)
}

func TestRun_SeriesFailureRecordedOnResult(t *testing.T) {
	s := &stubSeries{failFor: map[string]error{"CH4": series.ErrEmpty}}
	p := newPipeline(t, &stubMaps{}, s, pipeline.Options{Gases: []string{"CH4"}})

	results, err := p.Run(context.Background())
	require.Error(t, err, "every unit failed")
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, series.ErrEmpty)
}

func TestRun_ChartWrittenToOutDir(t *testing.T) {
	out := t.TempDir()
	p := newPipeline(t, &stubMaps{}, &stubSeries{}, pipeline.Options{
		Gases:  []string{"SO2"},
		OutDir: out,
	})

	results, err := p.Run(context.Background())
	require.NoError(t, err)

	want := filepath.Join(out, "SO2_chart_2026-08-30.png")
	assert.Equal(t, want, results[0].ChartPath)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestCheckReadiness(t *testing.T) {
	p := newPipeline(t, &stubMaps{}, &stubSeries{}, pipeline.Options{Gases: []string{"CO"}})

	require.Error(t, p.CheckReadiness(context.Background()), "not ready before any unit completes")

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestResults_StoredAfterRun(t *testing.T) {
	p := newPipeline(t, &stubMaps{}, &stubSeries{}, pipeline.Options{Gases: []string{"CO", "O3"}})

	assert.Nil(t, p.Results())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.Results(), 2)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, &stubMaps{}, &stubSeries{}, pipeline.Options{Gases: []string{"CO"}})
	results, err := p.Run(ctx)
	require.Error(t, err, "the lone unit fails on the dead context")
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
