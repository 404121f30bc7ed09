package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/threat-zone-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/threat-zone-service/internal/adapter/kafka"
	"github.com/couchcryptid/threat-zone-service/internal/adapter/mapbox"
	"github.com/couchcryptid/threat-zone-service/internal/adapter/postgres"
	"github.com/couchcryptid/threat-zone-service/internal/config"
	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
	"github.com/couchcryptid/threat-zone-service/internal/pipeline"
	"github.com/couchcryptid/threat-zone-service/internal/receptor"
)

func main() {
	if err := run(); err != nil {
		slog.Error("threat-zone service failed", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Initialize chemical catalog (feature-flagged via CATALOG_ENABLED / DATABASE_URL).
	var catalog domain.ChemicalCatalog
	if cfg.CatalogEnabled {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect catalog database: %w", err)
		}
		defer pool.Close()

		pg := postgres.NewCatalog(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare catalog schema: %w", err)
		}
		catalog = postgres.NewCachedCatalog(pg, cfg.CatalogCacheSize, metrics)
		logger.Info("chemical catalog enabled", "cache_size", cfg.CatalogCacheSize)
	} else {
		logger.Info("chemical catalog disabled")
	}

	// Load sensitive receptors (optional).
	var receptors domain.ReceptorFinder
	if cfg.ReceptorsFile != "" {
		list, err := receptor.LoadFile(cfg.ReceptorsFile)
		if err != nil {
			return fmt.Errorf("load receptors %s: %w", cfg.ReceptorsFile, err)
		}
		receptors = receptor.NewIndex(list)
		logger.Info("receptors loaded", "path", cfg.ReceptorsFile, "count", len(list))
	}

	engine := domain.NewEngine(engineDefaults(cfg), receptors, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(engine, catalog, geocoder, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start assessment pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// engineDefaults maps configuration onto the engine's fallback values.
func engineDefaults(cfg *config.Config) domain.Defaults {
	d := domain.DefaultDefaults()
	d.Grid = cfg.Grid
	d.ReceptorHeight = cfg.ReceptorHeight
	d.ReferenceHeight = cfg.ReferenceHeight
	d.Roughness = cfg.Roughness
	d.ProfileMethod = cfg.ProfileMethod
	return d
}
