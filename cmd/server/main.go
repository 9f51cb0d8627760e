// Package main provides the entry point for the scholarscout HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/config"
	"github.com/okarvonen/scholarscout/internal/database"
	"github.com/okarvonen/scholarscout/internal/observability"
	"github.com/okarvonen/scholarscout/internal/ranking"
	"github.com/okarvonen/scholarscout/internal/search"
	httpserver "github.com/okarvonen/scholarscout/internal/server/http"
	"github.com/okarvonen/scholarscout/internal/sources/crossref"
	"github.com/okarvonen/scholarscout/internal/sources/jufo"
	"github.com/okarvonen/scholarscout/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scholarscout server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("scholarscout")
	}

	// Open the blob store backend.
	blobs, cleanup, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Upstream clients.
	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.Crossref.BaseURL,
		MailTo:    cfg.Crossref.MailTo,
		Timeout:   cfg.Crossref.Timeout,
		RateLimit: cfg.Crossref.RateLimit,
		BurstSize: cfg.Crossref.BurstSize,
	})
	jufoClient := jufo.New(jufo.Config{
		BaseURL:       cfg.Jufo.BaseURL,
		SearchTimeout: cfg.Jufo.SearchTimeout,
		DetailTimeout: cfg.Jufo.DetailTimeout,
		RateLimit:     cfg.Jufo.RateLimit,
		BurstSize:     cfg.Jufo.BurstSize,
	})

	// Ranking enrichment with a write-behind blob-backed cache.
	cache := ranking.NewCache(blobs, cfg.Search.CacheWriteQueue, logger, metrics)
	defer cache.Close()
	resolver := ranking.NewResolver(jufoClient, cache, logger, metrics)

	// Search pipeline.
	searcher := search.NewSearcher(crossrefClient, cfg.Search.SearchTimeout, logger)
	processor := search.NewProcessor(
		searcher,
		resolver,
		cfg.Search.EnrichBatchSize,
		cfg.Search.EnrichItemTimeout,
		logger,
		metrics,
	)

	// Persistence over the blob store.
	resultStore := store.NewResultStore(blobs, logger)
	projectStore := store.NewProjectStore(blobs, logger)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RequestBudget:   cfg.Search.RequestBudget,
		InitialPageSize: cfg.Search.InitialPageSize,
		MorePageSize:    cfg.Search.MorePageSize,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		processor,
		resultStore,
		projectStore,
		blobs,
		crossrefClient,
		metrics,
		logger,
	)

	// Channel to collect server errors.
	errCh := make(chan error, 1)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Str("blob_backend", cfg.BlobStore.Backend).
		Msg("scholarscout is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down scholarscout")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Drain pending ranking cache writes before the store closes.
	cache.Close()

	logger.Info().Msg("scholarscout shutdown complete")
	return nil
}

// openBlobStore opens the configured blob storage backend. The returned
// cleanup function releases backend resources and is safe to call once.
func openBlobStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (blobstore.Store, func(), error) {
	switch cfg.BlobStore.Backend {
	case config.BackendFile:
		fileStore := blobstore.NewFileStore(cfg.BlobStore.FileRoot, logger)
		logger.Info().Str("root", cfg.BlobStore.FileRoot).Msg("using file blob store")
		return fileStore, func() {}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, &cfg.BlobStore.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		if cfg.BlobStore.Database.MigrationAutoRun {
			migrator, err := database.NewMigrator(db, cfg.BlobStore.Database.MigrationPath, logger)
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("create migrator: %w", err)
			}
			if err := migrator.Up(); err != nil {
				_ = migrator.Close()
				db.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
			if err := migrator.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close migrator")
			}
		}

		logger.Info().Msg("using postgres blob store")
		return blobstore.NewPgStore(db.Pool(), logger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown blobstore backend: %q", cfg.BlobStore.Backend)
	}
}
