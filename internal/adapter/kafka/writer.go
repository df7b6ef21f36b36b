// Package kafka publishes completed report results to the downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/NeverSmile666/AIR-Monitoring/internal/config"
	"github.com/NeverSmile666/AIR-Monitoring/internal/pipeline"
)

// Writer produces unit results to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishResults serializes the successful unit results and publishes them in
// a single WriteMessages call. Failed units are logged and skipped.
func (w *Writer) PublishResults(ctx context.Context, results []pipeline.Result) error {
	msgs := make([]kafkago.Message, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			w.logger.Warn("skipping failed unit", "gas", r.Gas, "error", r.Err)
			continue
		}
		msg, err := serializeToMessage(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a unit result into a Kafka message keyed by gas.
func serializeToMessage(r pipeline.Result) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Gas),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region_key", Value: []byte(strconv.Itoa(r.RegionKey))},
			{Key: "report_date", Value: []byte(r.Date)},
		},
	}, nil
}
