package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/pipeline/rotation"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/warehouse"
)

// ProductMirror keeps the local copy of warehouse products current.
type ProductMirror interface {
	UpsertProducts(ctx context.Context, products []domain.Product, recentQty map[string]float64, now time.Time) ([]domain.Product, error)
}

// SnapshotWriter swaps the served dead-stock snapshot.
type SnapshotWriter interface {
	ReplaceSnapshot(ctx context.Context, runID string, analyzedAt time.Time, records []domain.RotationRecord) error
}

// IgnoredSymbols lists symbols excluded from analysis.
type IgnoredSymbols interface {
	Symbols(ctx context.Context) (map[string]bool, error)
}

// RunRecorder persists the history of analysis runs.
type RunRecorder interface {
	StartRun(ctx context.Context, run domain.RunSummary) error
	FinishRun(ctx context.Context, run domain.RunSummary) error
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
}

// CacheInvalidator drops cached reads derived from the previous snapshot.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// RunPublisher announces completed runs to downstream consumers.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, run domain.RunSummary) error
}

// Config holds the extraction query and classification thresholds of a run.
type Config struct {
	Query      warehouse.Query
	Thresholds rotation.Thresholds
}

// ConfigFromApp maps application config onto a run configuration.
func ConfigFromApp(cfg *config.Config) Config {
	a := cfg.Analysis
	return Config{
		Query: warehouse.QueryFromConfig(a, cfg.Proposals),
		Thresholds: rotation.Thresholds{
			NewProductDays:        a.NewProductDays,
			IntroPeriodDays:       a.IntroPeriodDays,
			NewSellingDays:        a.NewSellingDays,
			VeryFastDays:          a.VeryFastDays,
			FastDays:              a.FastDays,
			NormalDays:            a.NormalDays,
			SlowDays:              a.SlowDays,
			RepeatedMinDeliveries: a.RepeatedMinDeliveries,
		},
	}
}
