package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// pollutant report pipeline.
type Metrics struct {
	UnitsProcessed  prometheus.Counter
	UnitErrors      prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-unit processing metrics.
	UnitDuration   prometheus.Histogram
	RasterDecodeMS prometheus.Histogram
	SeriesPoints   prometheus.Histogram

	// Artifact metrics.
	MapsRendered     *prometheus.CounterVec // labels: mode={feature,layer}
	ChartsRendered   prometheus.Counter
	ResultsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.UnitsProcessed,
		m.UnitErrors,
		m.PipelineRunning,
		m.UnitDuration,
		m.RasterDecodeMS,
		m.SeriesPoints,
		m.MapsRendered,
		m.ChartsRendered,
		m.ResultsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UnitsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_monitoring",
			Name:      "units_processed_total",
			Help:      "Total pollutant report units completed successfully.",
		}),
		UnitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_monitoring",
			Name:      "unit_errors_total",
			Help:      "Total pollutant report units that failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "air_monitoring",
			Name:      "pipeline_running",
			Help:      "1 while a report run is active, 0 otherwise.",
		}),
		UnitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "air_monitoring",
			Name:      "unit_duration_seconds",
			Help:      "Duration of a complete per-pollutant unit (maps, series, chart).",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RasterDecodeMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "air_monitoring",
			Name:      "raster_decode_duration_seconds",
			Help:      "Duration of decoding a single daily raster.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SeriesPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "air_monitoring",
			Name:      "series_points",
			Help:      "Number of daily points contributing to an assembled series.",
			Buckets:   []float64{1, 3, 5, 7, 10, 15, 20, 30},
		}),
		MapsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "air_monitoring",
			Name:      "maps_rendered_total",
			Help:      "Rendered map images by mode.",
		}, []string{"mode"}),
		ChartsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_monitoring",
			Name:      "charts_rendered_total",
			Help:      "Rendered time-series charts.",
		}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_monitoring",
			Name:      "results_published_total",
			Help:      "Unit results published to the report topic.",
		}),
	}
}
