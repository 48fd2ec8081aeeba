package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Skip reasons used as the "reason" label of RowsSkipped.
const (
	SkipShape       = "shape"
	SkipCoordinates = "coordinates"
	SkipEmpty       = "empty"
)

// Metrics holds the Prometheus counters and gauges for one job run.
type Metrics struct {
	RowsRead          prometheus.Counter
	RowsSkipped       *prometheus.CounterVec // labels: reason={shape,coordinates,empty}
	FeaturesExpanded  prometheus.Counter
	FeaturesPublished *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration       prometheus.Gauge
	LastSuccess       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the job metrics on a dedicated registry. Batch jobs push
// their registry instead of being scraped, so the default registry is not used.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_points",
			Name:      "rows_read_total",
			Help:      "Source rows read from the dataset.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_points",
			Name:      "rows_skipped_total",
			Help:      "Source rows that produced no features, by reason.",
		}, []string{"reason"}),
		FeaturesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_points",
			Name:      "features_expanded_total",
			Help:      "Expanded point features produced by the transform.",
		}),
		FeaturesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_points",
			Name:      "features_published_total",
			Help:      "Features reported by the feature store, by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_points",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last fetch-transform-publish run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_points",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without a fatal error.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RowsRead,
		m.RowsSkipped,
		m.FeaturesExpanded,
		m.FeaturesPublished,
		m.RunDuration,
		m.LastSuccess,
	)

	return m
}

// Registry exposes the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Push sends the current metric values to a Prometheus Pushgateway,
// replacing earlier pushes for the same job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
