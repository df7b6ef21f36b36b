// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	RastersRoot string
	RegionShp   string
	DistrictShp string
	OutDir      string

	Gases        []string
	ReportDate   string
	ParentCod    int
	LookbackDays int
	FallbackEPSG int
	Workers      int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka result publishing configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	parentCod, err := parseInt("PARENT_COD", 0)
	if err != nil {
		return nil, err
	}
	lookback, err := parseInt("LOOKBACK_DAYS", 30)
	if err != nil {
		return nil, err
	}
	fallbackEPSG, err := parseInt("FALLBACK_EPSG", 3857)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		RastersRoot: os.Getenv("RASTERS_ROOT"),
		RegionShp:   os.Getenv("REGION_SHP"),
		DistrictShp: os.Getenv("DISTRICT_SHP"),
		OutDir:      envOrDefault("OUT_DIR", "out"),

		Gases:        splitList(envOrDefault("GASES", "CH4,CO,NO2,SO2,O3,HCHO,AERAI")),
		ReportDate:   os.Getenv("REPORT_DATE"),
		ParentCod:    parentCod,
		LookbackDays: lookback,
		FallbackEPSG: fallbackEPSG,
		Workers:      workers,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "pollutant-reports"),
	}

	if cfg.RastersRoot == "" {
		return nil, errors.New("RASTERS_ROOT is required")
	}
	if cfg.RegionShp == "" {
		return nil, errors.New("REGION_SHP is required")
	}
	if cfg.DistrictShp == "" {
		return nil, errors.New("DISTRICT_SHP is required")
	}
	if cfg.ParentCod == 0 {
		return nil, errors.New("PARENT_COD is required")
	}
	if len(cfg.Gases) == 0 {
		return nil, errors.New("GASES must name at least one pollutant")
	}
	if cfg.LookbackDays <= 0 {
		return nil, errors.New("LOOKBACK_DAYS must be positive")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("WORKERS must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
