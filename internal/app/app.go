// Package app wires repositories, caches, the analysis pipeline and the
// services on top of an open Postgres pool.
package app

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/cache"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/notify"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/proposal"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/seasonality"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/service"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/warehouse"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config       *config.Config
	Warehouse    *warehouse.MSSQLSource
	Orchestrator *pipeline.Orchestrator
	Rotation     *service.RotationService
	Proposals    *service.ProposalService
	Sales        *service.SalesService
	Publisher    notify.Publisher
}

// Build assembles the application. Redis falls back to in-process or no-op
// caches when it cannot be reached.
func Build(cfg *config.Config, db *postgres.DB) (*App, error) {
	// 1. Repositories
	rotationRepo := postgres.NewRotationRepository(db)
	productRepo := repository.NewProductRepository(db.DB)
	periodRepo := repository.NewStockPeriodRepository(db.DB)
	ignoredRepo := repository.NewIgnoredProductRepository(db.DB)
	runRepo := pipeline.NewRepository(db.DB)

	// 2. Caches
	deadStockCache, err := cache.NewDeadStockCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Redis dead-stock cache unavailable, using in-memory cache")
		deadStockCache = cache.NewMemoryDeadStockCache(cfg.Cache.DashboardTTLSeconds, nil)
	}
	proposalCache, err := cache.NewProposalCache(cfg.Cache, cfg.Proposals)
	if err != nil {
		log.Warn().Err(err).Msg("Redis proposal cache unavailable, using in-memory cache")
		proposalCache = cache.NewMemoryProposalCache(cfg.Proposals.CacheTTLSeconds, nil)
	}
	salesCache, err := cache.NewSalesCache(cfg.Cache, cfg.Sales)
	if err != nil {
		log.Warn().Err(err).Msg("Redis sales cache unavailable, using in-memory cache")
		salesCache = cache.NewMemorySalesCache(cfg.Sales.CacheTTLSeconds, nil)
	}

	// 3. Warehouse source and run publisher
	source, err := warehouse.NewMSSQLSource(cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	publisher := notify.NewPublisher(cfg.Kafka)

	// 4. Analysis pipeline
	orchestrator, err := pipeline.NewOrchestrator(pipeline.ConfigFromApp(cfg), pipeline.Deps{
		Source:    source,
		Products:  productRepo,
		Snapshot:  rotationRepo,
		Ignored:   ignoredRepo,
		Runs:      runRepo,
		Caches:    []pipeline.CacheInvalidator{deadStockCache, proposalCache},
		Publisher: publisher,
	})
	if err != nil {
		_ = source.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to build analysis pipeline: %w", err)
	}

	// 5. Services
	calculator, err := proposal.NewCalculator(service.ProposalSettings(cfg.Analysis, cfg.Proposals))
	if err != nil {
		_ = source.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("invalid proposal settings: %w", err)
	}
	seasons, err := seasonality.NewCalculator(service.SeasonalitySettings(cfg.Sales))
	if err != nil {
		_ = source.Close()
		_ = publisher.Close()
		return nil, err
	}

	return &App{
		Config:       cfg,
		Warehouse:    source,
		Orchestrator: orchestrator,
		Rotation:     service.NewRotationService(rotationRepo, ignoredRepo, orchestrator, deadStockCache),
		Proposals:    service.NewProposalService(productRepo, periodRepo, calculator, proposalCache, cfg.Proposals.CategoryTag),
		Sales:        service.NewSalesService(source, warehouse.QueryFromConfig(cfg.Analysis, cfg.Proposals), seasons, salesCache, cfg.Sales),
		Publisher:    publisher,
	}, nil
}

// Close releases the warehouse pool and the publisher.
func (a *App) Close() error {
	return errors.Join(a.Warehouse.Close(), a.Publisher.Close())
}
