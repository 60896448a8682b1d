package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ProductRepository maintains the local mirror of warehouse products.
type ProductRepository interface {
	// UpsertProducts mirrors products and returns them with first-seen and
	// last-stock-change timestamps filled from the mirror. Mirrored symbols
	// absent from products are set to zero stock; recentQty refreshes the
	// proposal window for every mirrored symbol.
	UpsertProducts(ctx context.Context, products []domain.Product, recentQty map[string]float64, now time.Time) ([]domain.Product, error)
	ListByPurpose(ctx context.Context, purpose string) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

type mirrorState struct {
	Symbol          string     `db:"symbol"`
	LastStockChange *time.Time `db:"last_stock_change_at"`
	FirstSeen       *time.Time `db:"first_seen_at"`
}

func (r *productRepository) UpsertProducts(ctx context.Context, products []domain.Product, recentQty map[string]float64, now time.Time) ([]domain.Product, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// 1. Upsert every product; the stock change timestamp only moves when stock does
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO products (
			symbol, name, brand, category, purpose, size, color, season,
			stock, net_price, gross_price, purchase_cost, vat_rate,
			first_seen_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			purpose = EXCLUDED.purpose,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			season = EXCLUDED.season,
			last_stock_change_at = CASE
				WHEN products.stock IS DISTINCT FROM EXCLUDED.stock THEN EXCLUDED.updated_at
				ELSE products.last_stock_change_at
			END,
			stock = EXCLUDED.stock,
			net_price = EXCLUDED.net_price,
			gross_price = EXCLUDED.gross_price,
			purchase_cost = COALESCE(EXCLUDED.purchase_cost, products.purchase_cost),
			vat_rate = COALESCE(EXCLUDED.vat_rate, products.vat_rate),
			updated_at = EXCLUDED.updated_at
		RETURNING symbol, last_stock_change_at, first_seen_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare product upsert: %w", err)
	}
	defer stmt.Close()

	out := make([]domain.Product, len(products))
	symbols := make([]string, len(products))
	for i, p := range products {
		var state mirrorState
		err := stmt.GetContext(ctx, &state,
			p.Symbol, p.Name, p.Brand, p.Category, p.Purpose, p.Size, p.Color, p.Season,
			p.Stock, p.NetPrice, p.GrossPrice, p.PurchaseCost, p.VATRate, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert product %s: %w", p.Symbol, err)
		}
		p.LastStockChange = state.LastStockChange
		p.FirstSeen = state.FirstSeen
		p.UpdatedAt = now
		if qty, ok := recentQty[p.Symbol]; ok {
			p.RecentSalesQty = qty
		}
		out[i] = p
		symbols[i] = p.Symbol
	}

	// 2. Products that left every stock warehouse now hold nothing
	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET stock = 0, last_stock_change_at = $2, updated_at = $2
		WHERE stock <> 0 AND NOT (symbol = ANY($1))
	`, pq.Array(symbols), now)
	if err != nil {
		return nil, fmt.Errorf("failed to zero departed products: %w", err)
	}

	// 3. Refresh the proposal window for the whole mirror
	recentSymbols := make([]string, 0, len(recentQty))
	recentValues := make([]float64, 0, len(recentQty))
	for symbol, qty := range recentQty {
		recentSymbols = append(recentSymbols, symbol)
		recentValues = append(recentValues, qty)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE products p
		SET recent_sales_qty = COALESCE(r.qty, 0)
		FROM products p2
		LEFT JOIN (
			SELECT unnest($1::text[]) AS symbol, unnest($2::double precision[]) AS qty
		) r ON r.symbol = p2.symbol
		WHERE p.symbol = p2.symbol
			AND p.recent_sales_qty IS DISTINCT FROM COALESCE(r.qty, 0)
	`, pq.Array(recentSymbols), pq.Array(recentValues))
	if err != nil {
		return nil, fmt.Errorf("failed to refresh recent sales: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	return out, nil
}

func (r *productRepository) ListByPurpose(ctx context.Context, purpose string) ([]domain.Product, error) {
	query := `
		SELECT symbol, name, brand, category, purpose, size, color, season,
			stock, net_price, gross_price, purchase_cost, vat_rate, recent_sales_qty,
			last_stock_change_at, first_seen_at, updated_at
		FROM products
		WHERE UPPER(TRIM(purpose)) = UPPER(TRIM($1))
			AND stock >= 0
		ORDER BY symbol
	`

	products := []domain.Product{}
	if err := r.db.SelectContext(ctx, &products, query, purpose); err != nil {
		return nil, fmt.Errorf("error listing products for %s: %w", purpose, err)
	}

	return products, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, fmt.Errorf("error counting products: %w", err)
	}
	return n, nil
}
