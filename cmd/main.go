package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/livescore/config"
	"github.com/Dosada05/livescore/db"
	"github.com/Dosada05/livescore/handlers"
	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/middleware"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	api "github.com/Dosada05/livescore/routes"
	"github.com/Dosada05/livescore/services"
	"github.com/Dosada05/livescore/standings"
	"github.com/Dosada05/livescore/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("dispatch_workers", cfg.DispatchWorkers),
		slog.Bool("archive", cfg.ArchiveEnabled()),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := live.NewMetrics(registry)

	var machine *live.Machine
	hub := live.NewHub(live.SnapshotFunc(func(ctx context.Context, matchID string) (*models.Match, error) {
		return machine.Snapshot(ctx, matchID)
	}), logger, metrics)
	dispatcher := live.NewDispatcher(hub, cfg.DispatchWorkers, live.DefaultQueueSize, logger)
	machine = live.NewMachine(store, dispatcher, logger, metrics)

	engine := standings.NewEngine(store, logger)
	refresher := standings.NewRefresher(engine, logger)

	var archiver *storage.Archiver
	var matchArchiver services.MatchArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewR2Uploader(ctx, storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("initialize R2 uploader: %w", err)
		}
		archiver = storage.NewArchiver(uploader, logger, storage.DefaultArchiveQueue)
		matchArchiver = archiver
		logger.Info("match archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	matchService := services.NewMatchService(machine, store, engine, refresher, matchArchiver, logger)
	leagueService := services.NewLeagueService(store, engine)

	matchHandler := handlers.NewMatchHandler(matchService)
	leagueHandler := handlers.NewLeagueHandler(leagueService)
	webSocketHandler := handlers.NewWebSocketHandler(ctx, hub, metrics, handlers.WebSocketOptions{
		SessionBuffer:  cfg.SessionBufferSize,
		AllowedOrigins: cfg.AllowedOrigins,
		Conn:           live.ConnOptions{MessageRate: rate.Limit(cfg.WriteRatePerSec), MessageBurst: cfg.WriteBurst},
	}, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		WriteLimiter:   middleware.NewIPRateLimiter(rate.Limit(cfg.WriteRatePerSec), cfg.WriteBurst),
		Gatherer:       registry,
		Logger:         logger,
	}, matchHandler, leagueHandler, webSocketHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return refresher.Run(gctx) })
	if archiver != nil {
		g.Go(func() error { return archiver.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		logger.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		mem := repositories.NewMemoryStore()
		repositories.SeedDemo(mem, time.Now())
		logger.Warn("DATABASE_URL not set, using in-memory store with demo data")
		return repositories.NewMemoryBackedStore(mem), func() {}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return nil, nil, err
	}
	logger.Info("database connection established")

	return repositories.NewPostgresStore(dbConn), func() { closeDB(dbConn, logger) }, nil
}

func closeDB(dbConn *sql.DB, logger *slog.Logger) {
	if err := dbConn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.Any("error", err))
		return
	}
	logger.Info("database connection closed")
}
