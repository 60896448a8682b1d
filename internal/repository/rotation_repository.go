package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// RotationRepository stores the dead-stock analysis snapshot.
type RotationRepository interface {
	// ReplaceSnapshot atomically swaps the served snapshot for records.
	ReplaceSnapshot(ctx context.Context, runID string, analyzedAt time.Time, records []domain.RotationRecord) error
	// Query returns one filtered page with totals and per-status counts.
	Query(ctx context.Context, filter domain.DeadStockFilter) (*domain.DeadStockPage, error)
	SnapshotInfo(ctx context.Context) (*domain.SnapshotInfo, error)
	// ValueSnapshot returns aggregates and top products read from one snapshot.
	ValueSnapshot(ctx context.Context, topPerStatus int) (*domain.ValueSnapshot, error)
	// ListAll returns every record matching filter, ignoring pagination.
	ListAll(ctx context.Context, filter domain.DeadStockFilter) ([]domain.RotationRecord, error)
}
