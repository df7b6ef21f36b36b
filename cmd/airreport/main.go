package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/NeverSmile666/AIR-Monitoring/internal/adapter/http"
	kafkaadapter "github.com/NeverSmile666/AIR-Monitoring/internal/adapter/kafka"
	"github.com/NeverSmile666/AIR-Monitoring/internal/boundary"
	"github.com/NeverSmile666/AIR-Monitoring/internal/chart"
	"github.com/NeverSmile666/AIR-Monitoring/internal/config"
	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
	"github.com/NeverSmile666/AIR-Monitoring/internal/observability"
	"github.com/NeverSmile666/AIR-Monitoring/internal/pipeline"
	"github.com/NeverSmile666/AIR-Monitoring/internal/render"
	"github.com/NeverSmile666/AIR-Monitoring/internal/series"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reportDate, err := resolveReportDate(cfg.ReportDate)
	if err != nil {
		logger.Error("invalid REPORT_DATE", "error", err)
		os.Exit(1)
	}

	regions, districts, err := openBoundaries(cfg)
	if err != nil {
		logger.Error("failed to open boundary layers", "error", err)
		os.Exit(1)
	}

	maps := &pipeline.Maps{
		RastersRoot: cfg.RastersRoot,
		OutDir:      cfg.OutDir,
		RegionKey:   cfg.ParentCod,
		Regions:     regions,
		Renderer:    render.NewRenderer(districts, regions),
		Logger:      logger,
		Metrics:     metrics,
	}
	assembler := &series.Assembler{
		RastersRoot: cfg.RastersRoot,
		Regions:     regions,
		Logger:      logger,
	}

	p := pipeline.New(maps, assembler, chart.NewRenderer(), logger, metrics, pipeline.Options{
		OutDir:    cfg.OutDir,
		Gases:     cfg.Gases,
		RegionKey: cfg.ParentCod,
		Date:      reportDate,
		Window:    cfg.LookbackDays,
		Workers:   cfg.Workers,
	})

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the report pipeline; results stay served until shutdown.
	go func() {
		results, err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline error", "error", err)
			return
		}
		if writer != nil {
			if err := writer.PublishResults(ctx, results); err != nil {
				logger.Error("publish results failed", "error", err)
				return
			}
			for _, r := range results {
				if r.Err == nil {
					metrics.ResultsPublished.Inc()
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// resolveReportDate parses REPORT_DATE, defaulting to today when unset.
func resolveReportDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range []string{"2006-01-02", "20060102", "02-01-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format: " + s)
}

func openBoundaries(cfg *config.Config) (regions, districts *boundary.Catalog, err error) {
	regionSRS, err := crs.ForBoundary(boundary.PrjPath(cfg.RegionShp), cfg.FallbackEPSG)
	if err != nil {
		return nil, nil, err
	}
	regions, err = boundary.Open(cfg.RegionShp, regionSRS)
	if err != nil {
		return nil, nil, err
	}

	districtSRS, err := crs.ForBoundary(boundary.PrjPath(cfg.DistrictShp), cfg.FallbackEPSG)
	if err != nil {
		return nil, nil, err
	}
	districts, err = boundary.Open(cfg.DistrictShp, districtSRS)
	if err != nil {
		return nil, nil, err
	}
	return regions, districts, nil
}
