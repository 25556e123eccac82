package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Version is reported by the root, health, and ingest responses.
const Version = "2.0.0"

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Warehouse layout.
	ProjectID     string
	DatasetID     string
	MetersTable   string
	ReadingsTable string
	StatusView    string

	// Ingestion.
	IngestSecret   string
	RawPayloadJSON bool
	DeviceMap      map[string]string

	// Calibration read-through cache.
	CalibrationCacheSize int
	CalibrationCacheTTL  time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka readings mirror (feature-flagged).
	KafkaMirrorEnabled bool
	KafkaBrokers       []string
	KafkaReadingsTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. INGEST_SECRET has no default on purpose.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("CALIBRATION_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CALIBRATION_CACHE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	deviceMap, err := parseDeviceMap(envOrDefault("DEVICE_MAP", "nivell_gasoil_escola=gasoil_escola"))
	if err != nil {
		return nil, err
	}

	rawPayloadMode := strings.ToLower(strings.TrimSpace(envOrDefault("RAW_PAYLOAD_MODE", "off")))
	if rawPayloadMode != "off" && rawPayloadMode != "json" {
		return nil, fmt.Errorf("invalid RAW_PAYLOAD_MODE %q: must be \"off\" or \"json\"", rawPayloadMode)
	}

	cfg := &Config{
		ProjectID:     envOrDefault("PROJECT_ID", "mesuradors-mdc"),
		DatasetID:     envOrDefault("DATASET_ID", "mesuradors"),
		MetersTable:   envOrDefault("TABLE_METERS", "meters"),
		ReadingsTable: envOrDefault("TABLE_READINGS", "readings"),
		StatusView:    envOrDefault("VIEW_DEVICE_STATUS", "v_estat_scada"),

		IngestSecret:   os.Getenv("INGEST_SECRET"),
		RawPayloadJSON: rawPayloadMode == "json",
		DeviceMap:      deviceMap,

		CalibrationCacheSize: cacheSize,
		CalibrationCacheTTL:  cacheTTL,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaMirrorEnabled: os.Getenv("KAFKA_MIRROR_ENABLED") == "true",
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReadingsTopic: envOrDefault("KAFKA_READINGS_TOPIC", "tank-readings"),
	}

	if cfg.IngestSecret == "" {
		return nil, errors.New("INGEST_SECRET is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("PROJECT_ID is required")
	}
	if cfg.KafkaMirrorEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_MIRROR_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaMirrorEnabled && cfg.KafkaReadingsTopic == "" {
		return nil, errors.New("KAFKA_MIRROR_ENABLED is true but KAFKA_READINGS_TOPIC is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parseDeviceMap reads comma-separated "externalName=deviceID" pairs. The map
// is an open override table: names absent from it pass through unchanged.
func parseDeviceMap(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, id, ok := strings.Cut(pair, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid DEVICE_MAP entry %q: want externalName=deviceID", pair)
		}
		m[name] = id
	}
	return m, nil
}
