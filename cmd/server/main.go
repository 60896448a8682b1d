// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/api"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/app"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stock-rotation/backend-go/migrations"
	"github.com/andresuchdata/stock-rotation/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := migrations.Apply(ctx, db.DB.DB); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// Initialize services
	application, err := app.Build(cfg, db)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to release application resources")
		}
	}()

	router := api.NewRouter(&api.Services{
		RotationService: application.Rotation,
		ProposalService: application.Proposals,
		SalesService:    application.Sales,
	}, cfg.Server.AllowedOrigins)

	// Initialize HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	go refreshLoop(ctx, application, cfg.Analysis.RefreshInterval)

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// refreshLoop triggers an analysis at startup and then on every tick.
// Ticks that land on a running analysis are skipped.
func refreshLoop(ctx context.Context, application *app.App, interval time.Duration) {
	trigger := func() {
		err := application.Rotation.TriggerAnalysis()
		switch {
		case err == nil:
			logger.Log.Info().Msg("Scheduled analysis started")
		case errors.Is(err, domain.ErrAnalysisInProgress):
			logger.Log.Debug().Msg("Scheduled analysis skipped, run in progress")
		default:
			logger.Log.Error().Err(err).Msg("Scheduled analysis failed to start")
		}
	}

	trigger()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trigger()
		}
	}
}
