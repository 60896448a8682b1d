package domain

import "time"

// DeadStockFilter represents filters for dead-stock snapshot queries
type DeadStockFilter struct {
	MinDays        *int             `json:"min_days,omitempty"`
	MinValue       *float64         `json:"min_value,omitempty"`
	Category       string           `json:"category,omitempty"`
	Brand          string           `json:"brand,omitempty"`
	RotationStatus []RotationStatus `json:"rotation_status,omitempty"`
	Search         string           `json:"search,omitempty"`
	SortBy         string           `json:"sort_by"`
	SortDir        string           `json:"sort_dir"`
	Page           int              `json:"page"`
	PageSize       int              `json:"page_size"`
}

// CategoryStat counts products of one rotation status.
type CategoryStat struct {
	Status RotationStatus `json:"status" db:"rotation_status"`
	Label  string         `json:"label" db:"-"`
	Count  int            `json:"count" db:"count"`
}

// DeadStockPage is one filtered, sorted page of the latest snapshot.
type DeadStockPage struct {
	Items             []RotationRecord `json:"items"`
	Total             int              `json:"total_items"`
	Page              int              `json:"page"`
	PageSize          int              `json:"page_size"`
	TotalFrozenValue  float64          `json:"total_frozen_value"`
	AvgDaysNoMovement float64          `json:"avg_days_no_movement"`
	CategoryStats     []CategoryStat   `json:"category_stats"`
	LastUpdate        *time.Time       `json:"last_update"`
	AnalysisCompleted bool             `json:"analysis_completed"`
	SnapshotRunID     string           `json:"run_id,omitempty"`
}

// EmptyDeadStockPage is served before any analysis has completed.
func EmptyDeadStockPage(page, pageSize int) *DeadStockPage {
	stats := make([]CategoryStat, len(AllRotationStatuses))
	for i, s := range AllRotationStatuses {
		stats[i] = CategoryStat{Status: s, Label: s.Label()}
	}
	return &DeadStockPage{
		Items:         []RotationRecord{},
		Page:          page,
		PageSize:      pageSize,
		CategoryStats: stats,
	}
}

// SnapshotInfo describes the snapshot currently being served.
type SnapshotInfo struct {
	RunID        string    `json:"run_id" db:"run_id"`
	AnalyzedAt   time.Time `json:"analyzed_at" db:"analyzed_at"`
	ProductCount int       `json:"product_count" db:"product_count"`
}

// RotationAggregate holds per-status totals used by the value report.
type RotationAggregate struct {
	Status            RotationStatus `json:"status" db:"rotation_status"`
	Count             int            `json:"count" db:"count"`
	TotalValue        float64        `json:"total_value" db:"total_value"`
	TotalQuantity     float64        `json:"total_quantity" db:"total_quantity"`
	AvgDaysNoMovement float64        `json:"avg_days_no_movement" db:"avg_days_no_movement"`
	AvgDaysOfStock    *float64       `json:"avg_days_of_stock" db:"avg_days_of_stock"`
}

// ValueSnapshot is everything the value report needs, read from one run.
type ValueSnapshot struct {
	Info        SnapshotInfo
	Aggregates  []RotationAggregate
	TopProducts map[RotationStatus][]RotationRecord
}

// RotationValueCategory is one status section of the value report.
type RotationValueCategory struct {
	RotationAggregate
	Label        string           `json:"label"`
	ValueShare   float64          `json:"value_share_pct"`
	ProductShare float64          `json:"product_share_pct"`
	TopProducts  []RotationRecord `json:"top_products"`
}

// ValueRecommendation is a prioritised action derived from the report.
type ValueRecommendation struct {
	Status      RotationStatus `json:"status"`
	Priority    string         `json:"priority"`
	Message     string         `json:"message"`
	ValueImpact float64        `json:"value_impact"`
}

// RotationValueReport breaks the frozen value down by rotation status.
type RotationValueReport struct {
	Categories      []RotationValueCategory `json:"categories"`
	TotalValue      float64                 `json:"total_value"`
	TotalProducts   int                     `json:"total_products"`
	TotalQuantity   float64                 `json:"total_quantity"`
	Recommendations []ValueRecommendation   `json:"recommendations"`
	LastUpdate      *time.Time              `json:"last_update"`
	SnapshotRunID   string                  `json:"run_id,omitempty"`
}
