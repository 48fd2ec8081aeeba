package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-points-etl/internal/adapter/arcgis"
	kafkaadapter "github.com/couchcryptid/event-points-etl/internal/adapter/kafka"
	"github.com/couchcryptid/event-points-etl/internal/adapter/source"
	"github.com/couchcryptid/event-points-etl/internal/config"
	"github.com/couchcryptid/event-points-etl/internal/observability"
	"github.com/couchcryptid/event-points-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher pipeline.Publisher
	switch cfg.FeatureSink {
	case config.SinkKafka:
		writer := kafkaadapter.NewWriter(cfg, runID, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("publishing to kafka", "topic", cfg.KafkaSinkTopic)
	default:
		publisher = arcgis.NewClient(cfg, logger)
		logger.Info("publishing to arcgis", "portal", cfg.ArcGISPortalURL, "item", cfg.ArcGISItemID)
	}

	p := pipeline.New(source.NewFetcher(cfg, logger), publisher, logger, metrics, clockwork.NewRealClock())
	sum, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, cfg.MetricsJob); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		logger.Error("job failed", "error", runErr, "duration", sum.Duration)
		return 1
	}

	logger.Info("job finished",
		"rows_read", sum.Stats.RowsRead,
		"features", sum.Stats.Features,
		"published", sum.Report.Succeeded,
		"rejected", sum.Report.Failed,
		"duration", sum.Duration,
	)
	return 0
}
