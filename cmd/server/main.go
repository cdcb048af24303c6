package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpadapter "portlens/internal/adapter/http"
	repo "portlens/internal/adapter/repository"
	"portlens/internal/adapter/ws"
	"portlens/internal/config"
	"portlens/internal/extractor"
	"portlens/internal/infrastructure/migration"
	"portlens/internal/scoring"
	"portlens/internal/usecase"
	infra "portlens/pkg/infrastructure"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewJobsPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("jobs DB not available", zap.Error(err))
	}
	defer pool.Close()

	if err := infra.HealthCheck(ctx, pool, 3*time.Second); err != nil {
		logger.Fatal("DB health check failed", zap.Error(err))
	}
	if err := migration.RunMigrations(ctx, pool, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	store := repo.NewJobsRepo(pool)
	ex := extractor.New(cfg.FetchTimeout, cfg.MaxFetchBytes, logger)
	engine := scoring.NewEngine()

	processor := usecase.NewProcessor(store, ex, engine, cfg.WorkerDeadline, logger)
	dispatcher := usecase.NewDispatcher(store, processor, cfg.PollInterval, cfg.MaxWorkers, logger)
	sweeper := usecase.NewSweeper(store, cfg.LivenessThreshold, cfg.SweepInterval, cfg.MaxRetries, logger)
	sweeper.SetOnRequeue(dispatcher.Wake)

	feed := ws.NewManager(store, logger)
	processor.SetOnUpdate(feed.Broadcast)

	// The sweeper runs detached so intake is available immediately; the
	// first sweep repairs anything a previous process left in processing.
	go sweeper.Run(ctx)
	go dispatcher.Run(ctx)

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", feed)
	wsServer := &http.Server{Addr: ":" + cfg.WSPort, Handler: wsMux}
	go func() {
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ws server failed", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h := httpadapter.NewHandler(store, ex, engine, dispatcher.Wake, cfg.UploadDir, logger)
	h.Register(app)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)
}
