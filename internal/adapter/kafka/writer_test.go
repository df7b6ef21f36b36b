package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeverSmile666/AIR-Monitoring/internal/config"
	"github.com/NeverSmile666/AIR-Monitoring/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSerializeToMessage(t *testing.T) {
	r := pipeline.Result{
		Gas:        "NO2",
		RegionKey:  100,
		RegionName: "Western Region",
		Date:       "2026-08-30",
		ChartPath:  "out/NO2_chart_2026-08-30.png",
		MapPaths:   []string{"out/NO2_map_2026-08-30_region.png", "out/NO2_map_2026-08-30_full.png"},
	}

	msg, err := serializeToMessage(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("NO2"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "100", headers["region_key"])
	assert.Equal(t, "2026-08-30", headers["report_date"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "NO2", decoded["gas"])
	assert.Equal(t, "Western Region", decoded["region_name"])
	assert.Equal(t, "2026-08-30", decoded["date"])
	assert.Len(t, decoded["map_paths"], 2)
	assert.NotContains(t, decoded, "Err")
}

func TestPublishResults_AllFailedIsNoOp(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "pollutant-reports"}
	w := NewWriter(cfg, discardLogger())
	t.Cleanup(func() { w.Close() })

	results := []pipeline.Result{
		{Gas: "CO", Date: "2026-08-30", Err: errors.New("raster missing")},
		{Gas: "O3", Date: "2026-08-30", Err: errors.New("no usable pixels")},
	}

	// All units failed, so no message is ever handed to the underlying
	// writer and no broker connection is attempted.
	err := w.PublishResults(context.Background(), results)
	assert.NoError(t, err)
}

func TestPublishResults_EmptySliceIsNoOp(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "pollutant-reports"}
	w := NewWriter(cfg, discardLogger())
	t.Cleanup(func() { w.Close() })

	assert.NoError(t, w.PublishResults(context.Background(), nil))
}
