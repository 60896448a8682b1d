package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Repository tracks analysis runs in the analysis_runs table.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type runRow struct {
	RunID            string           `db:"run_id"`
	Status           domain.RunStatus `db:"status"`
	ProductsAnalyzed int              `db:"products_analyzed"`
	ProductsSkipped  int              `db:"products_skipped"`
	MalformedEvents  int              `db:"malformed_events"`
	DeliveryMethods  []byte           `db:"delivery_methods"`
	StartedAt        time.Time        `db:"started_at"`
	CompletedAt      *time.Time       `db:"completed_at"`
	FailureReason    string           `db:"failure_reason"`
}

// StartRun inserts a run record in the running state.
func (r *Repository) StartRun(ctx context.Context, run domain.RunSummary) error {
	query := `
		INSERT INTO analysis_runs (run_id, status, started_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, run.RunID, run.Status, run.StartedAt); err != nil {
		return fmt.Errorf("error starting analysis run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (r *Repository) FinishRun(ctx context.Context, run domain.RunSummary) error {
	methods, err := json.Marshal(run.DeliveryMethods)
	if err != nil {
		return fmt.Errorf("encode delivery methods: %w", err)
	}
	if run.DeliveryMethods == nil {
		methods = []byte("{}")
	}

	query := `
		UPDATE analysis_runs
		SET status = $1, products_analyzed = $2, products_skipped = $3,
		    malformed_events = $4, delivery_methods = $5::jsonb,
		    completed_at = $6, failure_reason = $7
		WHERE run_id = $8
	`

	_, err = r.db.ExecContext(ctx, query,
		run.Status, run.ProductsAnalyzed, run.ProductsSkipped,
		run.MalformedEvents, string(methods),
		run.CompletedAt, run.FailureReason, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("error finishing analysis run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when none exist.
func (r *Repository) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	query := `
		SELECT run_id, status, products_analyzed, products_skipped, malformed_events,
		       delivery_methods, started_at, completed_at, failure_reason
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var row runRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading latest analysis run: %w", err)
	}

	return row.toSummary()
}

func (row runRow) toSummary() (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:            row.RunID,
		Status:           row.Status,
		ProductsAnalyzed: row.ProductsAnalyzed,
		ProductsSkipped:  row.ProductsSkipped,
		MalformedEvents:  row.MalformedEvents,
		StartedAt:        row.StartedAt,
		CompletedAt:      row.CompletedAt,
		FailureReason:    row.FailureReason,
	}
	if len(row.DeliveryMethods) > 0 {
		if err := json.Unmarshal(row.DeliveryMethods, &summary.DeliveryMethods); err != nil {
			return nil, fmt.Errorf("decode delivery methods of run %s: %w", row.RunID, err)
		}
	}
	return summary, nil
}
