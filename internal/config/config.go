package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/event-points-etl/internal/domain"
)

// Feature sinks selectable with FEATURE_SINK.
const (
	SinkArcGIS = "arcgis"
	SinkKafka  = "kafka"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	SourceURL         string
	SourceTimeout     time.Duration
	SourceRetries     int
	SourceDateLayouts []string
	Schema            domain.Schema

	FeatureSink string

	// ArcGIS feature store configuration.
	ArcGISPortalURL         string
	ArcGISUsername          string
	ArcGISPassword          string
	ArcGISClientID          string
	ArcGISClientSecret      string
	ArcGISItemID            string
	ArcGISLayerIndex        int
	ArcGISTimeout           time.Duration
	ArcGISRollbackOnFailure bool

	KafkaBrokers   []string
	KafkaSinkTopic string

	LogLevel        string
	LogFormat       string
	PushgatewayURL  string
	MetricsJob      string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := parsePositiveDuration("ARCGIS_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	sourceRetries, err := parseNonNegativeInt("SOURCE_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	layerIndex, err := parseNonNegativeInt("ARCGIS_LAYER_INDEX", 0)
	if err != nil {
		return nil, err
	}

	rollback := true
	if v := os.Getenv("ARCGIS_ROLLBACK_ON_FAILURE"); v != "" {
		rollback, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid ARCGIS_ROLLBACK_ON_FAILURE")
		}
	}

	defaults := domain.DefaultSchema()
	cfg := &Config{
		SourceURL:         strings.TrimSpace(os.Getenv("SOURCE_URL")),
		SourceTimeout:     sourceTimeout,
		SourceRetries:     sourceRetries,
		SourceDateLayouts: splitList(os.Getenv("SOURCE_DATE_LAYOUTS")),
		Schema: domain.Schema{
			Date:              sharedcfg.EnvOrDefault("SOURCE_COLUMN_DATE", defaults.Date),
			Region:            sharedcfg.EnvOrDefault("SOURCE_COLUMN_REGION", defaults.Region),
			City:              sharedcfg.EnvOrDefault("SOURCE_COLUMN_CITY", defaults.City),
			Longitude:         sharedcfg.EnvOrDefault("SOURCE_COLUMN_LONGITUDE", defaults.Longitude),
			Latitude:          sharedcfg.EnvOrDefault("SOURCE_COLUMN_LATITUDE", defaults.Latitude),
			ValueColumnPrefix: sharedcfg.EnvOrDefault("SOURCE_VALUE_COLUMN_PREFIX", defaults.ValueColumnPrefix),
		},

		FeatureSink: strings.ToLower(sharedcfg.EnvOrDefault("FEATURE_SINK", SinkArcGIS)),

		ArcGISPortalURL:         strings.TrimRight(sharedcfg.EnvOrDefault("ARCGIS_PORTAL_URL", "https://www.arcgis.com"), "/"),
		ArcGISUsername:          os.Getenv("ARCGIS_USERNAME"),
		ArcGISPassword:          os.Getenv("ARCGIS_PASSWORD"),
		ArcGISClientID:          os.Getenv("ARCGIS_CLIENT_ID"),
		ArcGISClientSecret:      os.Getenv("ARCGIS_CLIENT_SECRET"),
		ArcGISItemID:            os.Getenv("ARCGIS_ITEM_ID"),
		ArcGISLayerIndex:        layerIndex,
		ArcGISTimeout:           arcgisTimeout,
		ArcGISRollbackOnFailure: rollback,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "expanded-features"),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		MetricsJob:      sharedcfg.EnvOrDefault("METRICS_JOB", "event-points-etl"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceURL == "" {
		return errors.New("SOURCE_URL is required")
	}
	for _, col := range c.Schema.Columns() {
		if strings.TrimSpace(col) == "" {
			return errors.New("SOURCE_COLUMN_* names must not be empty")
		}
	}

	switch c.FeatureSink {
	case SinkArcGIS:
		if c.ArcGISItemID == "" {
			return errors.New("ARCGIS_ITEM_ID is required")
		}
		if c.ArcGISClientID == "" && c.ArcGISUsername == "" {
			return errors.New("ARCGIS_CLIENT_ID or ARCGIS_USERNAME is required")
		}
		if c.ArcGISClientID != "" && c.ArcGISClientSecret == "" {
			return errors.New("ARCGIS_CLIENT_ID is set but ARCGIS_CLIENT_SECRET is not")
		}
		if c.ArcGISClientID == "" && c.ArcGISPassword == "" {
			return errors.New("ARCGIS_USERNAME is set but ARCGIS_PASSWORD is not")
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	default:
		return fmt.Errorf("unknown FEATURE_SINK %q", c.FeatureSink)
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
