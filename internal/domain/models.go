// backend-go/internal/domain/models.go
package domain

import "time"

// Product is the local mirror of a warehouse article.
type Product struct {
	Symbol          string     `json:"symbol" db:"symbol"`
	Name            string     `json:"name" db:"name"`
	Brand           string     `json:"brand" db:"brand"`
	Category        string     `json:"category" db:"category"`
	Purpose         string     `json:"purpose" db:"purpose"`
	Size            string     `json:"size" db:"size"`
	Color           string     `json:"color" db:"color"`
	Season          string     `json:"season" db:"season"`
	Stock           float64    `json:"stock" db:"stock"`
	NetPrice        float64    `json:"net_price" db:"net_price"`
	GrossPrice      float64    `json:"gross_price" db:"gross_price"`
	PurchaseCost    *float64   `json:"purchase_cost,omitempty" db:"purchase_cost"`
	VATRate         *float64   `json:"vat_rate,omitempty" db:"vat_rate"`
	RecentSalesQty  float64    `json:"recent_sales_qty" db:"recent_sales_qty"`
	LastStockChange *time.Time `json:"last_stock_change,omitempty" db:"last_stock_change_at"`
	FirstSeen       *time.Time `json:"first_seen,omitempty" db:"first_seen_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SaleEvent is the net quantity sold for a product on one day.
type SaleEvent struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// DeliveryEvent is a single inferred receipt of goods.
type DeliveryEvent struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Quantity  float64   `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
}

// SalesAggregate summarises a product's sales over the lookback window.
type SalesAggregate struct {
	Symbol         string     `json:"symbol"`
	YearlyQuantity float64    `json:"yearly_quantity"`
	YearlyValue    float64    `json:"yearly_value"`
	LastSaleDate   *time.Time `json:"last_sale_date,omitempty"`
}

// TimelineEventKind distinguishes merged timeline entries.
type TimelineEventKind string

const (
	EventDelivery TimelineEventKind = "delivery"
	EventSale     TimelineEventKind = "sale"
)

// TimelineEvent is one replayed entry with the simulated stock after it.
type TimelineEvent struct {
	Date       time.Time         `json:"date"`
	Kind       TimelineEventKind `json:"kind"`
	Quantity   float64           `json:"quantity"`
	StockAfter float64           `json:"stock_after"`
}

// RotationRecord is one row of the dead-stock analysis snapshot.
type RotationRecord struct {
	Symbol                 string          `json:"symbol" db:"symbol"`
	Name                   string          `json:"name" db:"name"`
	Brand                  string          `json:"brand" db:"brand"`
	Category               string          `json:"category" db:"category"`
	Size                   string          `json:"size" db:"size"`
	Color                  string          `json:"color" db:"color"`
	Season                 string          `json:"season" db:"season"`
	Stock                  float64         `json:"stock" db:"stock"`
	NetPrice               float64         `json:"net_price" db:"net_price"`
	GrossPrice             float64         `json:"gross_price" db:"gross_price"`
	FrozenValue            float64         `json:"frozen_value" db:"frozen_value"`
	YearlyQuantity         float64         `json:"yearly_quantity" db:"yearly_quantity"`
	YearlyValue            float64         `json:"yearly_value" db:"yearly_value"`
	AvgDailySales          float64         `json:"avg_daily_sales" db:"avg_daily_sales"`
	DaysOfStock            *float64        `json:"days_of_stock" db:"days_of_stock"`
	DaysNoMovement         int             `json:"days_no_movement" db:"days_no_movement"`
	LastSaleDate           *time.Time      `json:"last_sale_date" db:"last_sale_date"`
	LastStockChange        *time.Time      `json:"last_stock_change" db:"last_stock_change"`
	ProductAgeDays         *int            `json:"product_age_days" db:"product_age_days"`
	HadZeroStock           bool            `json:"had_zero_stock" db:"had_zero_stock"`
	ZeroStockSignal        ZeroStockSignal `json:"zero_stock_signal" db:"zero_stock_signal"`
	LastZeroDate           *time.Time      `json:"last_zero_date" db:"last_zero_date"`
	DaysSinceLastZero      *int            `json:"days_since_last_zero" db:"days_since_last_zero"`
	TotalDeliveries        int             `json:"total_deliveries" db:"total_deliveries"`
	DeliveryMethod         DeliveryMethod  `json:"delivery_method" db:"delivery_method"`
	SalesAfterLastDelivery float64         `json:"sales_after_last_delivery" db:"sales_after_last_delivery"`
	RotationStatus         RotationStatus  `json:"rotation_status" db:"rotation_status"`
	Recommendation         string          `json:"recommendation" db:"recommendation"`
	FirstSeen              *time.Time      `json:"first_seen" db:"first_seen"`
	RunID                  string          `json:"run_id" db:"run_id"`
	AnalyzedAt             time.Time       `json:"analyzed_at" db:"analyzed_at"`
}

// DaysOfStockInfinite reports whether the product has no sales velocity.
func (r RotationRecord) DaysOfStockInfinite() bool {
	return r.DaysOfStock == nil
}

// RunSummary is the outcome of one analysis run.
type RunSummary struct {
	RunID            string                 `json:"run_id" db:"run_id"`
	Status           RunStatus              `json:"status" db:"status"`
	ProductsAnalyzed int                    `json:"products_analyzed" db:"products_analyzed"`
	ProductsSkipped  int                    `json:"products_skipped" db:"products_skipped"`
	MalformedEvents  int                    `json:"malformed_events" db:"malformed_events"`
	DeliveryMethods  map[DeliveryMethod]int `json:"delivery_methods" db:"-"`
	StartedAt        time.Time              `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty" db:"completed_at"`
	FailureReason    string                 `json:"failure_reason,omitempty" db:"failure_reason"`
}

// IgnoredProduct is a symbol excluded from rotation analysis.
type IgnoredProduct struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
