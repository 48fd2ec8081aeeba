//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/event-points-etl/internal/adapter/kafka"
	"github.com/couchcryptid/event-points-etl/internal/adapter/source"
	"github.com/couchcryptid/event-points-etl/internal/config"
	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/feature"
	"github.com/couchcryptid/event-points-etl/internal/observability"
	"github.com/couchcryptid/event-points-etl/internal/pipeline"
)

const testSinkTopic = "test-expanded-features"

const testCSV = "Дата,Область,Місто,long,lat,Значення 1,Значення 2,Значення 3,Значення 4,Значення 5,Значення 6,Значення 7,Значення 8,Значення 9,Значення 10\n" +
	`01.01.2024,X,Y,"30,5","50,4",3,0,1,0,0,0,0,0,0,0` + "\n" +
	`02.01.2024,X,Z,abc,"50,4",9,0,0,0,0,0,0,0,0,0` + "\n" +
	`03.01.2024,X,W,31,50,0,,,,,,,,,` + "\n"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// TestPipeline_FileToKafka runs the whole job against a local CSV and a real
// broker and checks the expanded features that land on the topic.
func TestPipeline_FileToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	path := filepath.Join(t.TempDir(), "reports.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))

	cfg := &config.Config{
		SourceURL:      path,
		SourceTimeout:  5 * time.Second,
		Schema:         domain.DefaultSchema(),
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runID := uuid.NewString()

	writer := kafka.NewWriter(cfg, runID, logger)
	defer writer.Close()

	p := pipeline.New(source.NewFetcher(cfg, logger), writer, logger, observability.NewMetrics(), clockwork.NewRealClock())
	sum, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Stats.RowsRead)
	assert.Equal(t, 1, sum.Stats.SkippedCoordinates)
	assert.Equal(t, 1, sum.Stats.SkippedEmpty)
	assert.Equal(t, domain.PublishReport{Queued: 3, Succeeded: 3}, sum.Report)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSinkTopic,
		Partition: 0,
		MaxWait:   time.Second,
	})
	defer reader.Close()

	wantIndicators := []map[string]float64{
		{"value_1": 1, "value_2": 0, "value_3": 1},
		{"value_1": 1, "value_2": 0, "value_3": 0},
		{"value_1": 1, "value_2": 0, "value_3": 0},
	}
	for i, want := range wantIndicators {
		msg, err := reader.ReadMessage(ctx)
		require.NoError(t, err, "read message %d", i)

		assert.Equal(t, "2-"+strconv.Itoa(i), string(msg.Key))
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, runID, headers["run_id"])

		var f feature.Feature
		require.NoError(t, json.Unmarshal(msg.Value, &f))
		assert.InDelta(t, 30.5, f.Geometry.X, 1e-9)
		assert.InDelta(t, 50.4, f.Geometry.Y, 1e-9)
		assert.Equal(t, feature.WGS84, f.Geometry.SpatialReference.WKID)
		for field, v := range want {
			assert.InDeltaf(t, v, f.Attributes[field], 0, "message %d field %s", i, field)
		}
	}
}
