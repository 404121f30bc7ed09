package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
	testDatabaseURL = "postgres://tz:tz@localhost:5432/chemicals"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "release-scenarios", cfg.KafkaSourceTopic)
	assert.Equal(t, "threat-zones", cfg.KafkaSinkTopic)
	assert.Equal(t, "threat-zone-service", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.False(t, cfg.CatalogEnabled)
	assert.Equal(t, 256, cfg.CatalogCacheSize)
	assert.Empty(t, cfg.ReceptorsFile)
	assert.Equal(t, dispersion.GridSpec{XMin: 10, XMax: 2000, YMin: -800, YMax: 800, NX: 500, NY: 500}, cfg.Grid)
	assert.Equal(t, 1.5, cfg.ReceptorHeight)
	assert.Equal(t, 10.0, cfg.ReferenceHeight)
	assert.Equal(t, dispersion.Urban, cfg.Roughness)
	assert.Equal(t, meteo.PowerLaw, cfg.ProfileMethod)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("DATABASE_URL", testDatabaseURL)
	t.Setenv("CATALOG_CACHE_SIZE", "64")
	t.Setenv("RECEPTORS_FILE", "/etc/threat-zone/receptors.json")
	t.Setenv("GRID_X_MIN", "5")
	t.Setenv("GRID_X_MAX", "5000")
	t.Setenv("GRID_Y_HALF_WIDTH", "1500")
	t.Setenv("GRID_NX", "300")
	t.Setenv("GRID_NY", "200")
	t.Setenv("RECEPTOR_HEIGHT", "2")
	t.Setenv("REFERENCE_HEIGHT", "30")
	t.Setenv("ROUGHNESS", "rural")
	t.Setenv("WIND_PROFILE_METHOD", "monin_obukhov")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.True(t, cfg.CatalogEnabled)
	assert.Equal(t, testDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, 64, cfg.CatalogCacheSize)
	assert.Equal(t, "/etc/threat-zone/receptors.json", cfg.ReceptorsFile)
	assert.Equal(t, dispersion.GridSpec{XMin: 5, XMax: 5000, YMin: -1500, YMax: 1500, NX: 300, NY: 200}, cfg.Grid)
	assert.Equal(t, 2.0, cfg.ReceptorHeight)
	assert.Equal(t, 30.0, cfg.ReferenceHeight)
	assert.Equal(t, dispersion.Rural, cfg.Roughness)
	assert.Equal(t, meteo.MoninObukhov, cfg.ProfileMethod)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidMapboxTimeout(t *testing.T) {
	t.Setenv("MAPBOX_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TIMEOUT")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_CatalogEnabledWithoutDatabase(t *testing.T) {
	t.Setenv("CATALOG_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_CatalogExplicitlyDisabled(t *testing.T) {
	t.Setenv("DATABASE_URL", testDatabaseURL)
	t.Setenv("CATALOG_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.CatalogEnabled)
}

func TestLoad_InvalidEngineSettings(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"GRID_X_MIN", "abc", "GRID_X_MIN"},
		{"GRID_X_MAX", "1", "GRID_"},
		{"GRID_Y_HALF_WIDTH", "-10", "GRID_"},
		{"RECEPTOR_HEIGHT", "-1", "RECEPTOR_HEIGHT"},
		{"REFERENCE_HEIGHT", "0", "REFERENCE_HEIGHT"},
		{"ROUGHNESS", "SWAMP", "ROUGHNESS"},
		{"WIND_PROFILE_METHOD", "cubic", "WIND_PROFILE_METHOD"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidGridCountsFallBack(t *testing.T) {
	t.Setenv("GRID_NX", "zero")
	t.Setenv("GRID_NY", "-4")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Grid.NX)
	assert.Equal(t, 500, cfg.Grid.NY)
}
