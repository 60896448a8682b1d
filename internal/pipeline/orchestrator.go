package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/rotation"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/warehouse"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Deps wires the collaborators of an Orchestrator. Caches and Publisher
// are optional.
type Deps struct {
	Source    warehouse.Source
	Products  ProductMirror
	Snapshot  SnapshotWriter
	Ignored   IgnoredSymbols
	Runs      RunRecorder
	Caches    []CacheInvalidator
	Publisher RunPublisher
	Now       func() time.Time
	NewRunID  func() string
}

// Orchestrator runs the full analysis: extract, mirror, classify and
// publish a new snapshot. At most one run is in flight at a time.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	engine *rotation.Engine

	mu      sync.Mutex
	running atomic.Bool
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Source == nil || deps.Products == nil || deps.Snapshot == nil || deps.Ignored == nil || deps.Runs == nil {
		return nil, errors.New("orchestrator requires source, products, snapshot, ignored and runs dependencies")
	}
	if err := cfg.Query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction query: %w", err)
	}

	engine, err := rotation.NewEngine(cfg.Thresholds, cfg.Query.LookbackDays)
	if err != nil {
		return nil, err
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	return &Orchestrator{cfg: cfg, deps: deps, engine: engine}, nil
}

// Running reports whether an analysis is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// LatestRun returns the most recent run record, or nil before the first run.
func (o *Orchestrator) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	return o.deps.Runs.LatestRun(ctx)
}

// RunAnalysis executes one analysis run. A trigger arriving while another
// run is in flight is dropped with domain.ErrAnalysisInProgress. A failed
// run leaves the previous snapshot in place.
func (o *Orchestrator) RunAnalysis(ctx context.Context) (domain.RunSummary, error) {
	if !o.mu.TryLock() {
		return domain.RunSummary{}, domain.ErrAnalysisInProgress
	}
	o.running.Store(true)
	defer o.release()

	return o.run(ctx)
}

// StartAnalysis begins a run in the background. It returns
// domain.ErrAnalysisInProgress when a run already holds the lock.
func (o *Orchestrator) StartAnalysis(ctx context.Context) error {
	if !o.mu.TryLock() {
		return domain.ErrAnalysisInProgress
	}
	o.running.Store(true)

	go func() {
		defer o.release()
		_, _ = o.run(ctx)
	}()
	return nil
}

func (o *Orchestrator) release() {
	o.running.Store(false)
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context) (domain.RunSummary, error) {
	run := domain.RunSummary{
		RunID:           o.deps.NewRunID(),
		Status:          domain.RunStatusRunning,
		DeliveryMethods: make(map[domain.DeliveryMethod]int),
		StartedAt:       o.deps.Now(),
	}
	if err := o.deps.Runs.StartRun(ctx, run); err != nil {
		return run, err
	}

	logger := log.With().Str("run_id", run.RunID).Logger()
	logger.Info().Msg("Starting rotation analysis")

	records, err := o.analyze(ctx, &run)
	if err == nil {
		err = o.deps.Snapshot.ReplaceSnapshot(ctx, run.RunID, run.StartedAt, records)
	}

	completedAt := o.deps.Now()
	run.CompletedAt = &completedAt
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.FailureReason = err.Error()
		if ferr := o.deps.Runs.FinishRun(ctx, run); ferr != nil {
			logger.Error().Err(ferr).Msg("Failed to record failed analysis run")
		}
		logger.Error().Err(err).Msg("Rotation analysis failed, previous snapshot kept")
		return run, err
	}

	run.Status = domain.RunStatusCompleted
	if err := o.deps.Runs.FinishRun(ctx, run); err != nil {
		logger.Error().Err(err).Msg("Failed to record completed analysis run")
	}

	for _, c := range o.deps.Caches {
		if err := c.InvalidateAll(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to invalidate cache after analysis")
		}
	}

	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishRunCompleted(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish analysis completion")
		}
	}

	logger.Info().
		Int("analyzed", run.ProductsAnalyzed).
		Int("skipped", run.ProductsSkipped).
		Int("malformed_events", run.MalformedEvents).
		Dur("took", completedAt.Sub(run.StartedAt)).
		Msg("Rotation analysis completed")

	return run, nil
}

func (o *Orchestrator) analyze(ctx context.Context, run *domain.RunSummary) ([]domain.RotationRecord, error) {
	// 1. Ignored symbols
	ignored, err := o.deps.Ignored.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ignored products: %w", err)
	}

	// 2. Warehouse history
	history, err := o.deps.Source.FetchHistory(ctx, o.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("fetch warehouse history: %w", err)
	}

	// 3. Product mirror supplies first-seen and last stock change
	products, err := o.deps.Products.UpsertProducts(ctx, history.Products, history.RecentQty, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("update product mirror: %w", err)
	}

	// 4. Per-product simulation and classification
	records := make([]domain.RotationRecord, 0, len(products))
	for _, p := range products {
		if ignored[p.Symbol] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, malformed, err := o.engine.Analyze(rotation.Input{
			Product:        p,
			Aggregate:      history.Aggregates[p.Symbol],
			Sales:          history.Sales[p.Symbol],
			Deliveries:     history.Deliveries[p.Symbol],
			DeliveryMethod: history.DeliveryMethods[p.Symbol],
		}, run.StartedAt)

		for _, m := range malformed {
			log.Warn().Str("run_id", run.RunID).Err(m).Msg("Skipping malformed event")
		}
		run.MalformedEvents += len(malformed)

		if errors.Is(err, rotation.ErrNotInStock) {
			run.ProductsSkipped++
			continue
		}
		if err != nil {
			log.Warn().Str("run_id", run.RunID).Str("symbol", p.Symbol).Err(err).Msg("Skipping product")
			run.ProductsSkipped++
			continue
		}

		record.RunID = run.RunID
		records = append(records, record)
		run.ProductsAnalyzed++
		run.DeliveryMethods[record.DeliveryMethod]++
	}

	return records, nil
}
