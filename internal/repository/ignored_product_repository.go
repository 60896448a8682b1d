package repository

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

// IgnoredProductRepository manages symbols excluded from rotation analysis.
type IgnoredProductRepository interface {
	List(ctx context.Context) ([]domain.IgnoredProduct, error)
	Symbols(ctx context.Context) (map[string]bool, error)
	Add(ctx context.Context, item domain.IgnoredProduct) error
	Remove(ctx context.Context, symbol string) error
}

type ignoredProductRepository struct {
	db *sqlx.DB
}

func NewIgnoredProductRepository(db *sqlx.DB) IgnoredProductRepository {
	return &ignoredProductRepository{db: db}
}

func (r *ignoredProductRepository) List(ctx context.Context) ([]domain.IgnoredProduct, error) {
	items := []domain.IgnoredProduct{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT symbol, reason, created_at
		FROM ignored_products
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing ignored products: %w", err)
	}
	return items, nil
}

func (r *ignoredProductRepository) Symbols(ctx context.Context) (map[string]bool, error) {
	var symbols []string
	if err := r.db.SelectContext(ctx, &symbols, `SELECT symbol FROM ignored_products`); err != nil {
		return nil, fmt.Errorf("error loading ignored symbols: %w", err)
	}

	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set, nil
}

func (r *ignoredProductRepository) Add(ctx context.Context, item domain.IgnoredProduct) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO ignored_products (symbol, reason, created_at)
		VALUES (:symbol, :reason, :created_at)
		ON CONFLICT (symbol) DO UPDATE SET reason = EXCLUDED.reason
	`, item)
	if err != nil {
		return fmt.Errorf("error ignoring product %s: %w", item.Symbol, err)
	}
	return nil
}

func (r *ignoredProductRepository) Remove(ctx context.Context, symbol string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ignored_products WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("error removing ignored product %s: %w", symbol, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
