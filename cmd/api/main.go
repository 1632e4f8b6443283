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

	"github.com/timmy/fitetl/internal/api"
	"github.com/timmy/fitetl/internal/bootstrap"
	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/repository"
	"github.com/timmy/fitetl/internal/service"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH selects the config file in deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	if err := bootstrap.Migrate(ctx, cfg); err != nil {
		appLogger.WithError(err).Fatal("Failed to prepare warehouse tables")
	}

	// The API keeps its own connection for reading the job log; each pipeline
	// run opens and closes another one.
	db, err := repository.OpenDB(cfg.Warehouse)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to warehouse")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get warehouse handle")
	}
	defer sqlDB.Close()

	jobs := repository.NewJobLogRepository(db, repository.JobLogTable(cfg.Warehouse.Driver, cfg.Layers.Metadata.Schema))

	factory, err := bootstrap.NewPipelineFactory(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}
	runner := service.NewRunner(factory)

	router := api.SetupRouter(api.RouterDeps{
		Jobs:   jobs,
		Runner: runner,
		Ping:   sqlDB.PingContext,
		Logger: appLogger,
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// Let an in-flight run close its connection and write its audit entries.
	runner.Wait()

	appLogger.Info("Server exited")
}
