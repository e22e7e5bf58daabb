// Package kafka implements the optional downstream sink: when KAFKA_BROKERS
// is configured, every row of the combined dataset is also published as JSON
// so consumers (the dashboard's ingest, notebooks) can follow runs without
// polling the output file.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vfurtado/inmet-station-etl/internal/domain"
)

// Writer produces combined records to a Kafka topic.
// It implements pipeline.RecordSink.
type Writer struct {
	writer  *kafkago.Writer
	station domain.Station
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(brokers []string, topic string, station domain.Station, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, station: station, logger: logger}
}

// PublishRecords serializes and publishes the combined rows in a single
// WriteMessages call, keyed by timestamp so replays of the same range
// compact cleanly.
func (w *Writer) PublishRecords(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], w.station)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	w.logger.Info("publishing combined records", "count", len(msgs), "topic", w.writer.Topic)
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Record into a Kafka message.
func serializeToMessage(rec domain.Record, station domain.Station) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	key, err := rec.Data.MarshalCSV()
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record key: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(station.Slug())},
		},
	}, nil
}
