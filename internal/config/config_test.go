package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "prou-secret"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mesuradors-mdc", cfg.ProjectID)
	assert.Equal(t, "mesuradors", cfg.DatasetID)
	assert.Equal(t, "meters", cfg.MetersTable)
	assert.Equal(t, "readings", cfg.ReadingsTable)
	assert.Equal(t, "v_estat_scada", cfg.StatusView)
	assert.Equal(t, testSecret, cfg.IngestSecret)
	assert.False(t, cfg.RawPayloadJSON)
	assert.Equal(t, map[string]string{"nivell_gasoil_escola": "gasoil_escola"}, cfg.DeviceMap)
	assert.Equal(t, 100, cfg.CalibrationCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.CalibrationCacheTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaMirrorEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "tank-readings", cfg.KafkaReadingsTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("PROJECT_ID", "custom-project")
	t.Setenv("DATASET_ID", "custom-dataset")
	t.Setenv("TABLE_METERS", "custom_meters")
	t.Setenv("TABLE_READINGS", "custom_readings")
	t.Setenv("VIEW_DEVICE_STATUS", "v_custom")
	t.Setenv("RAW_PAYLOAD_MODE", "json")
	t.Setenv("DEVICE_MAP", "ext_a=dev_a, ext_b=dev_b")
	t.Setenv("CALIBRATION_CACHE_SIZE", "25")
	t.Setenv("CALIBRATION_CACHE_TTL", "90s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_MIRROR_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_READINGS_TOPIC", "custom-readings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "custom-project", cfg.ProjectID)
	assert.Equal(t, "custom-dataset", cfg.DatasetID)
	assert.Equal(t, "custom_meters", cfg.MetersTable)
	assert.Equal(t, "custom_readings", cfg.ReadingsTable)
	assert.Equal(t, "v_custom", cfg.StatusView)
	assert.True(t, cfg.RawPayloadJSON)
	assert.Equal(t, map[string]string{"ext_a": "dev_a", "ext_b": "dev_b"}, cfg.DeviceMap)
	assert.Equal(t, 25, cfg.CalibrationCacheSize)
	assert.Equal(t, 90*time.Second, cfg.CalibrationCacheTTL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaMirrorEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-readings", cfg.KafkaReadingsTopic)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_SECRET")
}

func TestLoad_InvalidRawPayloadMode(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("RAW_PAYLOAD_MODE", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAW_PAYLOAD_MODE")
}

func TestLoad_InvalidDeviceMap(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("DEVICE_MAP", "missing-separator")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVICE_MAP")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeCacheTTL(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("CALIBRATION_CACHE_TTL", "-1m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CALIBRATION_CACHE_TTL")
}

func TestLoad_MirrorRequiresBrokers(t *testing.T) {
	t.Setenv("INGEST_SECRET", testSecret)
	t.Setenv("KAFKA_MIRROR_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
