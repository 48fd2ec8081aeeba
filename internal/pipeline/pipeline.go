package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/observability"
)

// Fetcher reads the whole source dataset.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.SourceRow, error)
}

// Publisher submits expanded rows to a feature store as one batch.
type Publisher interface {
	Publish(ctx context.Context, rows []domain.ExpandedRow) (domain.PublishReport, error)
}

// Summary describes a completed run.
type Summary struct {
	Stats    Stats
	Report   domain.PublishReport
	Duration time.Duration
}

// Pipeline runs fetch, transform and publish once, in that order.
type Pipeline struct {
	fetcher     Fetcher
	transformer *DatasetTransformer
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, p Publisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		fetcher:     f,
		transformer: NewTransformer(logger),
		publisher:   p,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
	}
}

// Run executes one fetch-transform-publish cycle. Fetch and publish failures
// are fatal and returned; row-level problems only show up in the summary.
func (p *Pipeline) Run(ctx context.Context) (sum Summary, err error) {
	start := p.clock.Now()
	defer func() {
		sum.Duration = p.clock.Since(start)
		p.metrics.RunDuration.Set(sum.Duration.Seconds())
	}()

	p.logger.Info("fetching dataset")
	rows, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return sum, fmt.Errorf("fetch dataset: %w", err)
	}
	p.logger.Info("dataset fetched", "rows", len(rows))

	res := p.transformer.Transform(rows)
	sum.Stats = res.Stats
	p.recordTransform(res.Stats)
	p.logger.Info("transformation done",
		"rows_read", res.Stats.RowsRead,
		"rows_expanded", res.Stats.RowsExpanded,
		"skipped_shape", res.Stats.SkippedShape,
		"skipped_coordinates", res.Stats.SkippedCoordinates,
		"skipped_empty", res.Stats.SkippedEmpty,
		"features", res.Stats.Features,
	)

	if len(res.Rows) == 0 {
		p.logger.Info("no features to publish")
		p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
		return sum, nil
	}

	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("publish features: %w", err)
	}

	p.logger.Info("publishing features", "count", len(res.Rows))
	report, err := p.publisher.Publish(ctx, res.Rows)
	if err != nil {
		return sum, fmt.Errorf("publish features: %w", err)
	}
	sum.Report = report
	p.metrics.FeaturesPublished.WithLabelValues("success").Add(float64(report.Succeeded))
	p.metrics.FeaturesPublished.WithLabelValues("failure").Add(float64(report.Failed))

	if report.Failed > 0 {
		p.logger.Warn("feature store rejected features",
			"queued", report.Queued,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
		)
		for _, f := range report.Failures {
			p.logger.Debug("rejected feature",
				"index", f.Index,
				"line", f.SourceLine,
				"unit", f.Unit,
				"code", f.Code,
				"error", f.Message,
			)
		}
	} else {
		p.logger.Info("features published", "queued", report.Queued, "succeeded", report.Succeeded)
	}

	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
	return sum, nil
}

func (p *Pipeline) recordTransform(s Stats) {
	p.metrics.RowsRead.Add(float64(s.RowsRead))
	p.metrics.RowsSkipped.WithLabelValues(observability.SkipShape).Add(float64(s.SkippedShape))
	p.metrics.RowsSkipped.WithLabelValues(observability.SkipCoordinates).Add(float64(s.SkippedCoordinates))
	p.metrics.RowsSkipped.WithLabelValues(observability.SkipEmpty).Add(float64(s.SkippedEmpty))
	p.metrics.FeaturesExpanded.Add(float64(s.Features))
}
