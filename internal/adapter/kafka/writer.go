package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/event-points-etl/internal/config"
	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/feature"
)

// Writer publishes expanded features to a Kafka topic as Esri JSON, one
// message per feature. It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	fields feature.FieldMap
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, fields: feature.DefaultFieldMap(), runID: runID, logger: logger}
}

// Publish writes all rows in a single WriteMessages call. Per-message
// failures are reported, not returned; any other write error is returned.
func (w *Writer) Publish(ctx context.Context, rows []domain.ExpandedRow) (domain.PublishReport, error) {
	if len(rows) == 0 {
		return domain.PublishReport{}, nil
	}

	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], w.fields, w.runID)
		if err != nil {
			return domain.PublishReport{}, err
		}
		msgs[i] = msg
	}

	err := w.writer.WriteMessages(ctx, msgs...)
	var writeErrs kafkago.WriteErrors
	switch {
	case err == nil:
		return domain.PublishReport{Queued: len(rows), Succeeded: len(rows)}, nil
	case errors.As(err, &writeErrs):
		report := reportWriteErrors(rows, writeErrs)
		w.logger.Warn("kafka rejected messages", "topic", w.writer.Topic, "failed", report.Failed)
		return report, nil
	default:
		return domain.PublishReport{}, fmt.Errorf("write features: %w", err)
	}
}

// Close flushes pending writes and closes the underlying writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// reportWriteErrors turns kafka-go's per-message errors (nil on success) into a report.
func reportWriteErrors(rows []domain.ExpandedRow, errs kafkago.WriteErrors) domain.PublishReport {
	report := domain.PublishReport{Queued: len(rows)}
	for i, err := range errs {
		if err == nil {
			report.Succeeded++
			continue
		}
		report.Failed++
		f := domain.FeatureFailure{Index: i, Message: err.Error()}
		if i < len(rows) {
			f.SourceLine = rows[i].SourceLine
			f.Unit = rows[i].Unit
		}
		report.Failures = append(report.Failures, f)
	}
	return report
}

// serializeToMessage marshals an expanded row into a Kafka message keyed by
// source line and unit, so reruns of the same dataset produce the same keys.
func serializeToMessage(row domain.ExpandedRow, fields feature.FieldMap, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(feature.New(row, fields))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "source_line", Value: []byte(strconv.Itoa(row.SourceLine))},
		},
	}, nil
}

func messageKey(row domain.ExpandedRow) string {
	return strconv.Itoa(row.SourceLine) + "-" + strconv.Itoa(row.Unit)
}
