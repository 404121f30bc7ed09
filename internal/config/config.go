package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/threat-zone-service/internal/dispersion"
	"github.com/couchcryptid/threat-zone-service/internal/meteo"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Chemical catalog (Postgres).
	DatabaseURL      string
	CatalogEnabled   bool
	CatalogCacheSize int

	// Sensitive receptors loaded at startup; empty disables receptor lookup.
	ReceptorsFile string

	// Engine defaults applied when a scenario leaves them unset.
	Grid            dispersion.GridSpec
	ReceptorHeight  float64
	ReferenceHeight float64
	Roughness       dispersion.Roughness
	ProfileMethod   meteo.ProfileMethod
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	catalogEnabled := databaseURL != ""
	if v := os.Getenv("CATALOG_ENABLED"); v != "" {
		catalogEnabled = v == "true"
	}

	grid, err := parseGrid()
	if err != nil {
		return nil, err
	}

	receptorHeight, err := parseFloat("RECEPTOR_HEIGHT", 1.5)
	if err != nil {
		return nil, err
	}
	referenceHeight, err := parseFloat("REFERENCE_HEIGHT", 10)
	if err != nil {
		return nil, err
	}

	roughness, err := dispersion.ParseRoughness(sharedcfg.EnvOrDefault("ROUGHNESS", string(dispersion.Urban)))
	if err != nil {
		return nil, fmt.Errorf("invalid ROUGHNESS: %w", err)
	}
	method, err := meteo.ParseProfileMethod(sharedcfg.EnvOrDefault("WIND_PROFILE_METHOD", string(meteo.PowerLaw)))
	if err != nil {
		return nil, fmt.Errorf("invalid WIND_PROFILE_METHOD: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "release-scenarios"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "threat-zones"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "threat-zone-service"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),

		DatabaseURL:      databaseURL,
		CatalogEnabled:   catalogEnabled,
		CatalogCacheSize: parsePositiveInt("CATALOG_CACHE_SIZE", 256),

		ReceptorsFile: os.Getenv("RECEPTORS_FILE"),

		Grid:            grid,
		ReceptorHeight:  receptorHeight,
		ReferenceHeight: referenceHeight,
		Roughness:       roughness,
		ProfileMethod:   method,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.CatalogEnabled && cfg.DatabaseURL == "" {
		return nil, errors.New("CATALOG_ENABLED is true but DATABASE_URL is not set")
	}
	if cfg.ReceptorHeight < 0 {
		return nil, errors.New("RECEPTOR_HEIGHT must not be negative")
	}
	if cfg.ReferenceHeight <= 0 {
		return nil, errors.New("REFERENCE_HEIGHT must be positive")
	}

	return cfg, nil
}

// parseGrid reads the default evaluation grid. The crosswind extent is
// symmetric about the plume axis.
func parseGrid() (dispersion.GridSpec, error) {
	xMin, err := parseFloat("GRID_X_MIN", 10)
	if err != nil {
		return dispersion.GridSpec{}, err
	}
	xMax, err := parseFloat("GRID_X_MAX", 2000)
	if err != nil {
		return dispersion.GridSpec{}, err
	}
	halfWidth, err := parseFloat("GRID_Y_HALF_WIDTH", 800)
	if err != nil {
		return dispersion.GridSpec{}, err
	}

	spec := dispersion.GridSpec{
		XMin: xMin,
		XMax: xMax,
		YMin: -halfWidth,
		YMax: halfWidth,
		NX:   parsePositiveInt("GRID_NX", 500),
		NY:   parsePositiveInt("GRID_NY", 500),
	}
	if err := spec.Validate(); err != nil {
		return dispersion.GridSpec{}, fmt.Errorf("invalid GRID_*: %w", err)
	}
	return spec, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
