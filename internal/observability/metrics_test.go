package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	m := NewMetrics()
	m.RowsRead.Add(3)
	m.RowsSkipped.WithLabelValues(SkipCoordinates).Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsSkipped.WithLabelValues(SkipCoordinates)), 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// A second instance must not collide.
	assert.NotPanics(t, func() { NewMetrics() })
}

func TestMetrics_Push(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.FeaturesExpanded.Add(5)

	require.NoError(t, m.Push(context.Background(), srv.URL, "event-points-etl"))
	assert.Equal(t, "/metrics/job/event-points-etl", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestMetrics_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
