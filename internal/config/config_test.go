package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired fills the env vars without which Load refuses to start.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RASTERS_ROOT", "/data/rasters")
	t.Setenv("REGION_SHP", "/data/boundaries/regions.shp")
	t.Setenv("DISTRICT_SHP", "/data/boundaries/districts.shp")
	t.Setenv("PARENT_COD", "100")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/rasters", cfg.RastersRoot)
	assert.Equal(t, "out", cfg.OutDir)
	assert.Equal(t, []string{"CH4", "CO", "NO2", "SO2", "O3", "HCHO", "AERAI"}, cfg.Gases)
	assert.Empty(t, cfg.ReportDate)
	assert.Equal(t, 100, cfg.ParentCod)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 3857, cfg.FallbackEPSG)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "pollutant-reports", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("OUT_DIR", "/tmp/report")
	t.Setenv("GASES", "CH4, NO2")
	t.Setenv("REPORT_DATE", "2026-08-30")
	t.Setenv("PARENT_COD", "100")
	t.Setenv("LOOKBACK_DAYS", "15")
	t.Setenv("FALLBACK_EPSG", "4326")
	t.Setenv("WORKERS", "2")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-reports")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/report", cfg.OutDir)
	assert.Equal(t, []string{"CH4", "NO2"}, cfg.Gases)
	assert.Equal(t, "2026-08-30", cfg.ReportDate)
	assert.Equal(t, 100, cfg.ParentCod)
	assert.Equal(t, 15, cfg.LookbackDays)
	assert.Equal(t, 4326, cfg.FallbackEPSG)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-reports", cfg.KafkaTopic)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{"rasters root", "RASTERS_ROOT"},
		{"region shapefile", "REGION_SHP"},
		{"district shapefile", "DISTRICT_SHP"},
		{"parent code", "PARENT_COD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.omit, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.omit)
		})
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PARENT_COD", "not-a-number"},
		{"LOOKBACK_DAYS", "thirty"},
		{"LOOKBACK_DAYS", "0"},
		{"WORKERS", "-1"},
		{"FALLBACK_EPSG", "webmercator"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_EmptyGasList(t *testing.T) {
	setRequired(t)
	t.Setenv("GASES", " , ,")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GASES")
}
