//	@title			Gallery API
//	@version		1.0
//	@description	Image gallery with private spaces, quotas, cached listings and colour search.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/radif/gallery/internal/asset"
	"github.com/radif/gallery/internal/batch"
	"github.com/radif/gallery/internal/catalog"
	"github.com/radif/gallery/internal/config"
	"github.com/radif/gallery/internal/db"
	"github.com/radif/gallery/internal/logging"
	"github.com/radif/gallery/internal/metrics"
	appMiddleware "github.com/radif/gallery/internal/middleware"
	"github.com/radif/gallery/internal/similarity"
	"github.com/radif/gallery/internal/space"
	"github.com/radif/gallery/internal/storage"
	"github.com/radif/gallery/internal/worker"

	_ "github.com/radif/gallery/docs/swagger"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		return fmt.Errorf("database migration: %w", err)
	}

	backend, err := newBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("object storage init: %w", err)
	}
	objects := storage.NewGateway(backend, log)

	var remote catalog.Remote
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, catalog reads will fall through to the database", zap.Error(err))
		}
		remote = catalog.NewRedisCache(rdb)
	}

	cleanup := worker.NewPool(cfg.CleanupWorkers, cfg.CleanupQueueSize, log,
		worker.WithErrorHook(func(e *worker.TaskError) {
			metrics.BackgroundTaskFailures.WithLabelValues(e.Task).Inc()
		}),
	)
	defer cleanup.Close()

	// Wire dependencies: repository → service → handler
	txm := db.NewTxManager(pool)

	spaceRepo := space.NewRepository(pool)
	ledger := space.NewLedger(spaceRepo, log)
	spaceSvc := space.NewService(spaceRepo, txm, ledger, log)
	spaceHandler := space.NewHandler(spaceSvc, log)

	fetchClient := &http.Client{}
	assetRepo := asset.NewRepository(pool)
	assetSvc := asset.NewService(asset.Deps{
		Store:   assetRepo,
		Spaces:  spaceSvc,
		Quota:   ledger,
		Objects: objects,
		Tx:      txm,
		Cleanup: cleanup,
		TempDir: cfg.UploadTempDir,
		Log:     log,

		Finder:       asset.NewSearchPageFinder(cfg.ImageSearchURL, fetchClient),
		Client:       fetchClient,
		FetchTimeout: cfg.RemoteFetchTimeout,
	})
	assetHandler := asset.NewHandler(assetSvc, fetchClient, cfg.RemoteFetchTimeout, log)

	catalogSvc := catalog.NewService(assetRepo, spaceSvc, remote, catalog.Options{
		LocalSize: cfg.LocalCacheSize,
		LocalTTL:  cfg.LocalCacheTTL,
	}, log)
	catalogHandler := catalog.NewHandler(catalogSvc, cfg.CatalogRateLimitRPM, log)

	batchHandler := batch.NewHandler(batch.NewExecutor(assetRepo, spaceSvc, txm, cfg.BatchWorkers, log), log)
	similarityHandler := similarity.NewHandler(similarity.NewRanker(assetRepo, spaceSvc, log), log)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/assets/tag-categories", assetHandler.TagCategories)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Route("/spaces", spaceHandler.Routes)
			r.Route("/assets", assetHandler.Routes)
			r.Route("/catalog", catalogHandler.Routes)
			r.Route("/batch", batchHandler.Routes)
			r.Route("/similarity", similarityHandler.Routes)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case "minio":
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		}, log)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.StorageRegion, cfg.StorageBucket, cfg.StorageEndpoint, cfg.StoragePublicBase)
	case "memory":
		log.Warn("using in-memory object storage; objects are lost on restart")
		return storage.NewMemoryBackend(cfg.StoragePublicBase), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
