package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

// StockPeriodRepository stores per-product replenishment overrides.
type StockPeriodRepository interface {
	List(ctx context.Context) ([]domain.StockPeriodOverride, error)
	Get(ctx context.Context, symbol string) (*domain.StockPeriodOverride, error)
	Upsert(ctx context.Context, period domain.StockPeriodOverride) error
	UpsertMany(ctx context.Context, periods []domain.StockPeriodOverride) error
	Delete(ctx context.Context, symbol string) error
}

type stockPeriodRepository struct {
	db *sqlx.DB
}

func NewStockPeriodRepository(db *sqlx.DB) StockPeriodRepository {
	return &stockPeriodRepository{db: db}
}

const upsertStockPeriodQuery = `
	INSERT INTO custom_stock_periods (
		symbol, delivery_time_days, order_frequency_days, optimal_order_quantity, notes, updated_at
	) VALUES (:symbol, :delivery_time_days, :order_frequency_days, :optimal_order_quantity, :notes, :updated_at)
	ON CONFLICT (symbol) DO UPDATE SET
		delivery_time_days = EXCLUDED.delivery_time_days,
		order_frequency_days = EXCLUDED.order_frequency_days,
		optimal_order_quantity = EXCLUDED.optimal_order_quantity,
		notes = EXCLUDED.notes,
		updated_at = EXCLUDED.updated_at
`

func (r *stockPeriodRepository) List(ctx context.Context) ([]domain.StockPeriodOverride, error) {
	periods := []domain.StockPeriodOverride{}
	err := r.db.SelectContext(ctx, &periods, `
		SELECT symbol, delivery_time_days, order_frequency_days, optimal_order_quantity, notes, updated_at
		FROM custom_stock_periods
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing stock periods: %w", err)
	}
	return periods, nil
}

func (r *stockPeriodRepository) Get(ctx context.Context, symbol string) (*domain.StockPeriodOverride, error) {
	var period domain.StockPeriodOverride
	err := r.db.GetContext(ctx, &period, `
		SELECT symbol, delivery_time_days, order_frequency_days, optimal_order_quantity, notes, updated_at
		FROM custom_stock_periods
		WHERE symbol = $1
	`, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting stock period %s: %w", symbol, err)
	}
	return &period, nil
}

func (r *stockPeriodRepository) Upsert(ctx context.Context, period domain.StockPeriodOverride) error {
	if _, err := r.db.NamedExecContext(ctx, upsertStockPeriodQuery, period); err != nil {
		return fmt.Errorf("error saving stock period %s: %w", period.Symbol, err)
	}
	return nil
}

func (r *stockPeriodRepository) UpsertMany(ctx context.Context, periods []domain.StockPeriodOverride) error {
	if len(periods) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range periods {
		if _, err := tx.NamedExecContext(ctx, upsertStockPeriodQuery, p); err != nil {
			return fmt.Errorf("error saving stock period %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func (r *stockPeriodRepository) Delete(ctx context.Context, symbol string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM custom_stock_periods WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("error deleting stock period %s: %w", symbol, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
