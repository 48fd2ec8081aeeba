package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/observability"
	"github.com/couchcryptid/event-points-etl/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	rows    []domain.SourceRow
	err     error
	clock   *clockwork.FakeClock
	advance time.Duration
}

func (m *mockFetcher) Fetch(_ context.Context) ([]domain.SourceRow, error) {
	if m.clock != nil {
		m.clock.Advance(m.advance)
	}
	return m.rows, m.err
}

type mockPublisher struct {
	calls  int
	rows   []domain.ExpandedRow
	report *domain.PublishReport
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, rows []domain.ExpandedRow) (domain.PublishReport, error) {
	m.calls++
	m.rows = rows
	if m.err != nil {
		return domain.PublishReport{}, m.err
	}
	if m.report != nil {
		return *m.report, nil
	}
	return domain.PublishReport{Queued: len(rows), Succeeded: len(rows)}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(line int, lon string, values ...string) domain.SourceRow {
	for len(values) < domain.ValueSlots {
		values = append(values, "0")
	}
	return domain.SourceRow{
		Line:      line,
		Date:      domain.EventDate{Raw: "01.01.2024"},
		Region:    "X",
		City:      "Y",
		Longitude: lon,
		Latitude:  "50,4",
		Values:    values,
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &mockFetcher{
		rows:    []domain.SourceRow{row(2, "30,5", "3", "0", "1"), row(3, "31", "1")},
		clock:   clock,
		advance: 2 * time.Second,
	}
	pub := &mockPublisher{}
	metrics := observability.NewMetrics()

	p := pipeline.New(fetcher, pub, discardLogger(), metrics, clock)
	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, pub.calls)
	require.Len(t, pub.rows, 4)
	assert.Equal(t, 2, pub.rows[0].SourceLine)
	assert.Equal(t, 3, pub.rows[3].SourceLine)

	assert.Equal(t, 4, sum.Stats.Features)
	assert.Equal(t, 4, sum.Report.Succeeded)
	assert.Equal(t, 2*time.Second, sum.Duration)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsRead), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.FeaturesExpanded), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.FeaturesPublished.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RunDuration), 0)
	assert.InDelta(t, float64(clock.Now().Unix()), testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestPipeline_Run_FetchErrorIsFatal(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("connection refused")}
	pub := &mockPublisher{}
	metrics := observability.NewMetrics()

	p := pipeline.New(fetcher, pub, discardLogger(), metrics, clockwork.NewFakeClock())
	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch dataset")
	assert.Equal(t, 0, pub.calls)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestPipeline_Run_PublishErrorIsFatal(t *testing.T) {
	fetcher := &mockFetcher{rows: []domain.SourceRow{row(2, "30", "1")}}
	pub := &mockPublisher{err: errors.New("layer not found")}
	metrics := observability.NewMetrics()

	p := pipeline.New(fetcher, pub, discardLogger(), metrics, clockwork.NewFakeClock())
	sum, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish features")
	assert.Equal(t, 1, sum.Stats.Features)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestPipeline_Run_NothingToPublish(t *testing.T) {
	fetcher := &mockFetcher{rows: []domain.SourceRow{row(2, "30"), row(3, "30", "", "")}}
	pub := &mockPublisher{}
	metrics := observability.NewMetrics()

	p := pipeline.New(fetcher, pub, discardLogger(), metrics, clockwork.NewFakeClock())
	sum, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, pub.calls)
	assert.Equal(t, 2, sum.Stats.SkippedEmpty)
	assert.Equal(t, 0, sum.Report.Queued)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues(observability.SkipEmpty)), 0)
}

func TestPipeline_Run_PartialPublishIsNotFatal(t *testing.T) {
	fetcher := &mockFetcher{rows: []domain.SourceRow{row(2, "30", "3")}}
	pub := &mockPublisher{report: &domain.PublishReport{
		Queued:    3,
		Succeeded: 2,
		Failed:    1,
		Failures:  []domain.FeatureFailure{{Index: 2, SourceLine: 2, Unit: 2, Code: 1000, Message: "bad field"}},
	}}
	metrics := observability.NewMetrics()

	p := pipeline.New(fetcher, pub, discardLogger(), metrics, clockwork.NewFakeClock())
	sum, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Report.Failed)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.FeaturesPublished.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FeaturesPublished.WithLabelValues("failure")), 0)
}

func TestPipeline_Run_CancelledBeforePublish(t *testing.T) {
	fetcher := &mockFetcher{rows: []domain.SourceRow{row(2, "30", "1")}}
	pub := &mockPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New(fetcher, pub, discardLogger(), observability.NewMetrics(), clockwork.NewFakeClock())
	_, err := p.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, pub.calls)
}
