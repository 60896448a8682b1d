package domain

import "time"

// StockPeriodOverride holds per-product replenishment parameters.
type StockPeriodOverride struct {
	Symbol               string    `json:"symbol" db:"symbol"`
	DeliveryTimeDays     int       `json:"delivery_time_days" db:"delivery_time_days"`
	OrderFrequencyDays   int       `json:"order_frequency_days" db:"order_frequency_days"`
	OptimalOrderQuantity *float64  `json:"optimal_order_quantity,omitempty" db:"optimal_order_quantity"`
	Notes                string    `json:"notes" db:"notes"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// ProposalParams selects the products and defaults for a proposal run.
type ProposalParams struct {
	CategoryTag  string `json:"category_tag"`
	MinStockDays int    `json:"min_stock_days"`
}

// ProposalRecord is the purchase proposal for one product.
type ProposalRecord struct {
	Symbol               string         `json:"symbol"`
	Name                 string         `json:"name"`
	Brand                string         `json:"brand"`
	Stock                float64        `json:"stock"`
	RecentSalesQty       float64        `json:"recent_sales_qty"`
	AvgDailyUsage        float64        `json:"avg_daily_usage"`
	LeadTimeDays         int            `json:"lead_time_days"`
	OrderFrequencyDays   int            `json:"order_frequency_days"`
	MinStock             float64        `json:"min_stock"`
	Difference           float64        `json:"difference"`
	Status               ProposalStatus `json:"status"`
	QuantityToOrder      float64        `json:"quantity_to_order"`
	OptimalOrderQuantity *float64       `json:"optimal_order_quantity,omitempty"`
	PurchaseNet          float64        `json:"purchase_price_net"`
	VATRate              float64        `json:"vat_rate"`
	PurchaseGross        float64        `json:"purchase_price_gross"`
	OrderValue           float64        `json:"order_value"`
	CostEstimated        bool           `json:"cost_estimated"`
	HasCustomPeriod      bool           `json:"has_custom_period"`
	Notes                string         `json:"notes,omitempty"`
}

// ProposalSummary totals a proposal list.
type ProposalSummary struct {
	TotalProducts   int     `json:"total_products"`
	BelowMinimum    int     `json:"below_minimum"`
	OK              int     `json:"ok"`
	Excess          int     `json:"excess"`
	TotalOrderValue float64 `json:"total_order_value"`
}

// ProposalResult is the full response of a proposal computation.
type ProposalResult struct {
	Items      []ProposalRecord `json:"items"`
	Summary    ProposalSummary  `json:"summary"`
	Params     ProposalParams   `json:"params"`
	ComputedAt time.Time        `json:"computed_at"`
	Cached     bool             `json:"cached"`
}
