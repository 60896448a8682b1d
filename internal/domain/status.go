package domain

import "strings"

// RotationStatus is the machine-readable rotation category of a product.
type RotationStatus string

const (
	StatusRepeatedNoSales RotationStatus = "REPEATED_NO_SALES"
	StatusNew             RotationStatus = "NEW"
	StatusNewNoSales      RotationStatus = "NEW_NO_SALES"
	StatusNewSelling      RotationStatus = "NEW_SELLING"
	StatusNewSlow         RotationStatus = "NEW_SLOW"
	StatusVeryFast        RotationStatus = "VERY_FAST"
	StatusFast            RotationStatus = "FAST"
	StatusNormal          RotationStatus = "NORMAL"
	StatusSlow            RotationStatus = "SLOW"
	StatusVerySlow        RotationStatus = "VERY_SLOW"
	StatusDead            RotationStatus = "DEAD"
)

// AllRotationStatuses lists every category in decision-tree order.
var AllRotationStatuses = []RotationStatus{
	StatusRepeatedNoSales,
	StatusNew,
	StatusNewNoSales,
	StatusNewSelling,
	StatusNewSlow,
	StatusVeryFast,
	StatusFast,
	StatusNormal,
	StatusSlow,
	StatusVerySlow,
	StatusDead,
}

var rotationStatusLabels = map[RotationStatus]string{
	StatusRepeatedNoSales: "Repeated purchase, no sales",
	StatusNew:             "New product",
	StatusNewNoSales:      "New, no sales",
	StatusNewSelling:      "New, selling",
	StatusNewSlow:         "New, slow",
	StatusVeryFast:        "Very fast",
	StatusFast:            "Fast",
	StatusNormal:          "Normal",
	StatusSlow:            "Slow",
	StatusVerySlow:        "Very slow",
	StatusDead:            "Dead stock",
}

// Label returns a human-readable label for the status.
func (s RotationStatus) Label() string {
	if label, ok := rotationStatusLabels[s]; ok {
		return label
	}

	return string(s)
}

// Valid reports whether s is one of the enumerated categories.
func (s RotationStatus) Valid() bool {
	_, ok := rotationStatusLabels[s]
	return ok
}

// ParseRotationStatus returns the status for a given name (case-insensitive).
func ParseRotationStatus(name string) (RotationStatus, bool) {
	status := RotationStatus(strings.ToUpper(strings.TrimSpace(name)))
	if !status.Valid() {
		return "", false
	}

	return status, true
}

// DeliveryMethod tags how a product's delivery history was reconstructed.
type DeliveryMethod string

const (
	DeliveryMethodReceipts   DeliveryMethod = "receipts"
	DeliveryMethodSalesProxy DeliveryMethod = "sales_proxy"
	DeliveryMethodNone       DeliveryMethod = "none"
)

// ZeroStockSignal separates an observed stock-out from one implied only
// because no delivery data exists.
type ZeroStockSignal string

const (
	ZeroStockNone     ZeroStockSignal = "none"
	ZeroStockObserved ZeroStockSignal = "observed"
	ZeroStockUnbacked ZeroStockSignal = "unbacked"
)

// ProposalStatus describes a product's stock against its minimum level.
type ProposalStatus string

const (
	ProposalBelow  ProposalStatus = "BELOW"
	ProposalOK     ProposalStatus = "OK"
	ProposalExcess ProposalStatus = "EXCESS"
)

// SortRank orders BELOW before OK before EXCESS.
func (s ProposalStatus) SortRank() int {
	switch s {
	case ProposalBelow:
		return 0
	case ProposalOK:
		return 1
	default:
		return 2
	}
}

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)
