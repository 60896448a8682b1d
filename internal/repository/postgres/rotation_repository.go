package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const snapshotInsertBatch = 500

var rotationColumns = []string{
	"symbol", "name", "brand", "category", "size", "color", "season",
	"stock", "net_price", "gross_price", "frozen_value",
	"yearly_quantity", "yearly_value", "avg_daily_sales", "days_of_stock",
	"days_no_movement", "last_sale_date", "last_stock_change", "product_age_days",
	"had_zero_stock", "zero_stock_signal", "last_zero_date", "days_since_last_zero",
	"total_deliveries", "delivery_method", "sales_after_last_delivery",
	"rotation_status", "recommendation", "first_seen", "run_id", "analyzed_at",
}

type rotationRepository struct {
	db *DB
}

func NewRotationRepository(db *DB) *rotationRepository {
	return &rotationRepository{db: db}
}

func selectRotationColumns(alias string) string {
	a := normalizeAlias(alias)
	cols := make([]string, len(rotationColumns))
	for i, c := range rotationColumns {
		cols[i] = a + c
	}
	return strings.Join(cols, ", ")
}

func insertRotationQuery() string {
	named := make([]string, len(rotationColumns))
	for i, c := range rotationColumns {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO dead_stock_analysis (%s) VALUES (%s)",
		strings.Join(rotationColumns, ", "), strings.Join(named, ", "))
}

// ReplaceSnapshot deletes the previous snapshot and inserts records in one
// transaction, so readers keep seeing the old rows until commit.
func (r *rotationRepository) ReplaceSnapshot(ctx context.Context, runID string, analyzedAt time.Time, records []domain.RotationRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Drop the previous snapshot
		if _, err := tx.ExecContext(ctx, `DELETE FROM dead_stock_analysis`); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		// 2. Insert the new rows in batches
		query := insertRotationQuery()
		for start := 0; start < len(records); start += snapshotInsertBatch {
			end := start + snapshotInsertBatch
			if end > len(records) {
				end = len(records)
			}
			batch := make([]domain.RotationRecord, end-start)
			copy(batch, records[start:end])
			for i := range batch {
				batch[i].RunID = runID
				batch[i].AnalyzedAt = analyzedAt
			}
			if _, err := tx.NamedExecContext(ctx, query, batch); err != nil {
				return fmt.Errorf("failed to insert snapshot rows %d-%d: %w", start, end, err)
			}
		}

		// 3. Point the snapshot metadata at this run
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_snapshots (id, run_id, analyzed_at, product_count)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				run_id = EXCLUDED.run_id,
				analyzed_at = EXCLUDED.analyzed_at,
				product_count = EXCLUDED.product_count
		`, runID, analyzedAt, len(records))
		if err != nil {
			return fmt.Errorf("failed to update snapshot metadata: %w", err)
		}

		return nil
	})
}

const snapshotInfoQuery = `
	SELECT run_id, analyzed_at, product_count
	FROM analysis_snapshots
	WHERE id = 1`

func (r *rotationRepository) SnapshotInfo(ctx context.Context) (*domain.SnapshotInfo, error) {
	var info *domain.SnapshotInfo
	err := r.db.WithConn(ctx, func() error {
		var err error
		info, err = snapshotInfo(ctx, r.db)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// snapshotInfo reads the snapshot metadata through q, which may be the pool
// or a transaction.
func snapshotInfo(ctx context.Context, q sqlx.QueryerContext) (*domain.SnapshotInfo, error) {
	var info domain.SnapshotInfo
	err := sqlx.GetContext(ctx, q, &info, snapshotInfoQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("error getting snapshot info: %w", err)
	}
	return &info, nil
}

type snapshotTotals struct {
	Total             int     `db:"total"`
	TotalFrozenValue  float64 `db:"total_frozen_value"`
	AvgDaysNoMovement float64 `db:"avg_days_no_movement"`
}

// Query reads the metadata and one page of the snapshot in a single read
// transaction, so the page never mixes rows from two runs.
func (r *rotationRepository) Query(ctx context.Context, filter domain.DeadStockFilter) (*domain.DeadStockPage, error) {
	page, pageSize := normalizePagination(filter.Page, filter.PageSize)
	where, args := buildRotationFilterClause(&filter, "", 1)

	result := &domain.DeadStockPage{
		Page:              page,
		PageSize:          pageSize,
		AnalysisCompleted: true,
	}

	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Metadata of the snapshot this transaction sees
		info, err := snapshotInfo(ctx, tx)
		if err != nil {
			return err
		}
		result.LastUpdate = &info.AnalyzedAt
		result.SnapshotRunID = info.RunID

		// 2. Totals over the filtered set
		var totals snapshotTotals
		totalsQuery := `
			SELECT
				COUNT(*) AS total,
				COALESCE(SUM(frozen_value), 0) AS total_frozen_value,
				COALESCE(AVG(days_no_movement), 0) AS avg_days_no_movement
			FROM dead_stock_analysis
			WHERE 1=1` + where
		if err := tx.GetContext(ctx, &totals, totalsQuery, args...); err != nil {
			return fmt.Errorf("error counting snapshot rows: %w", err)
		}
		result.Total = totals.Total
		result.TotalFrozenValue = totals.TotalFrozenValue
		result.AvgDaysNoMovement = totals.AvgDaysNoMovement

		// 3. Page of items
		itemsQuery := fmt.Sprintf(`
			SELECT %s
			FROM dead_stock_analysis
			WHERE 1=1%s%s
			LIMIT $%d OFFSET $%d`,
			selectRotationColumns(""), where,
			buildRotationOrderClause(filter.SortBy, filter.SortDir, ""),
			len(args)+1, len(args)+2)
		pageArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

		items := []domain.RotationRecord{}
		if err := tx.SelectContext(ctx, &items, itemsQuery, pageArgs...); err != nil {
			return fmt.Errorf("error getting snapshot items: %w", err)
		}
		result.Items = items

		// 4. Per-status counts ignore the status filter so every tab keeps its count
		statusFilter := filter
		statusFilter.RotationStatus = nil
		statsWhere, statsArgs := buildRotationFilterClause(&statusFilter, "", 1)

		var counts []domain.CategoryStat
		statsQuery := `
			SELECT rotation_status, COUNT(*) AS count
			FROM dead_stock_analysis
			WHERE 1=1` + statsWhere + `
			GROUP BY rotation_status`
		if err := tx.SelectContext(ctx, &counts, statsQuery, statsArgs...); err != nil {
			return fmt.Errorf("error getting category stats: %w", err)
		}
		result.CategoryStats = fillCategoryStats(counts)

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("total", result.Total).
		Int("page", page).
		Str("run_id", result.SnapshotRunID).
		Msg("rotation snapshot queried")

	return result, nil
}

// fillCategoryStats returns one entry per rotation status, zero when absent.
func fillCategoryStats(counts []domain.CategoryStat) []domain.CategoryStat {
	byStatus := make(map[domain.RotationStatus]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] += c.Count
	}

	stats := make([]domain.CategoryStat, len(domain.AllRotationStatuses))
	for i, s := range domain.AllRotationStatuses {
		stats[i] = domain.CategoryStat{Status: s, Label: s.Label(), Count: byStatus[s]}
	}
	return stats
}

// ValueSnapshot reads the metadata, the per-status aggregates and the most
// valuable products of every status from one consistent snapshot.
func (r *rotationRepository) ValueSnapshot(ctx context.Context, topPerStatus int) (*domain.ValueSnapshot, error) {
	if topPerStatus <= 0 {
		topPerStatus = 10
	}

	out := &domain.ValueSnapshot{
		TopProducts: map[domain.RotationStatus][]domain.RotationRecord{},
	}

	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Metadata
		info, err := snapshotInfo(ctx, tx)
		if err != nil {
			return err
		}
		out.Info = *info

		// 2. Per-status totals
		err = tx.SelectContext(ctx, &out.Aggregates, `
			SELECT
				rotation_status,
				COUNT(*) AS count,
				COALESCE(SUM(frozen_value), 0) AS total_value,
				COALESCE(SUM(stock), 0) AS total_quantity,
				COALESCE(AVG(days_no_movement), 0) AS avg_days_no_movement,
				AVG(days_of_stock) AS avg_days_of_stock
			FROM dead_stock_analysis
			GROUP BY rotation_status
			ORDER BY total_value DESC
		`)
		if err != nil {
			return fmt.Errorf("error getting rotation aggregates: %w", err)
		}

		// 3. Top products of each status present
		topQuery := fmt.Sprintf(`
			SELECT %s
			FROM dead_stock_analysis
			WHERE rotation_status = $1
			ORDER BY frozen_value DESC, symbol ASC
			LIMIT $2`, selectRotationColumns(""))
		for _, a := range out.Aggregates {
			items := []domain.RotationRecord{}
			if err := tx.SelectContext(ctx, &items, topQuery, string(a.Status), topPerStatus); err != nil {
				return fmt.Errorf("error getting top products for %s: %w", a.Status, err)
			}
			out.TopProducts[a.Status] = items
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rotationRepository) ListAll(ctx context.Context, filter domain.DeadStockFilter) ([]domain.RotationRecord, error) {
	where, args := buildRotationFilterClause(&filter, "", 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM dead_stock_analysis
		WHERE 1=1%s%s`,
		selectRotationColumns(""), where, buildRotationOrderClause(filter.SortBy, filter.SortDir, ""))

	items := []domain.RotationRecord{}
	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := snapshotInfo(ctx, tx); err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &items, query, args...); err != nil {
			return fmt.Errorf("error listing snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
