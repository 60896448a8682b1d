package rotation

import (
	"math"
	"testing"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_DecisionTree(t *testing.T) {
	inf := math.Inf(1)

	tests := []struct {
		name  string
		facts Facts
		want  domain.RotationStatus
	}{
		{"age exactly 30 is new", Facts{AgeDays: intPtr(30), DaysOfStock: inf}, domain.StatusNew},
		{"age 31 without sales", Facts{AgeDays: intPtr(31), DaysOfStock: inf}, domain.StatusNewNoSales},
		{"age 31 selling", Facts{AgeDays: intPtr(31), YearlyQuantity: 10, DaysOfStock: 90}, domain.StatusNewSelling},
		{"age 31 slow", Facts{AgeDays: intPtr(31), YearlyQuantity: 10, DaysOfStock: 90.5}, domain.StatusNewSlow},
		{"age 90 still intro", Facts{AgeDays: intPtr(90), DaysOfStock: inf}, domain.StatusNewNoSales},
		{"age 91 without sales is dead", Facts{AgeDays: intPtr(91), DaysOfStock: inf}, domain.StatusDead},
		{"age 91 falls to rotation", Facts{AgeDays: intPtr(91), YearlyQuantity: 5, DaysOfStock: 50}, domain.StatusFast},
		{"very fast boundary", Facts{AgeDays: intPtr(200), YearlyQuantity: 1, DaysOfStock: 30}, domain.StatusVeryFast},
		{"normal boundary", Facts{AgeDays: intPtr(200), YearlyQuantity: 1, DaysOfStock: 180}, domain.StatusNormal},
		{"slow boundary", Facts{AgeDays: intPtr(200), YearlyQuantity: 1, DaysOfStock: 365}, domain.StatusSlow},
		{"very slow", Facts{AgeDays: intPtr(200), YearlyQuantity: 1, DaysOfStock: 900}, domain.StatusVerySlow},
		{"unknown age uses rotation", Facts{DaysOfStock: 20, YearlyQuantity: 3}, domain.StatusVeryFast},
		{"unknown age without sales", Facts{DaysOfStock: inf}, domain.StatusDead},
		{
			"repeated purchase without sales",
			Facts{ZeroSignal: domain.ZeroStockObserved, Deliveries: 2, AgeDays: intPtr(70), YearlyQuantity: 10, DaysOfStock: 182.5},
			domain.StatusRepeatedNoSales,
		},
		{
			"repeated rule needs age above grace period",
			Facts{ZeroSignal: domain.ZeroStockObserved, Deliveries: 2, AgeDays: intPtr(30), DaysOfStock: inf},
			domain.StatusNew,
		},
		{
			"repeated rule needs two deliveries",
			Facts{ZeroSignal: domain.ZeroStockObserved, Deliveries: 1, AgeDays: intPtr(120), DaysOfStock: inf},
			domain.StatusDead,
		},
		{
			"repeated rule ignores unbacked zero",
			Facts{ZeroSignal: domain.ZeroStockUnbacked, Deliveries: 2, AgeDays: intPtr(120), DaysOfStock: inf},
			domain.StatusDead,
		},
		{
			"sales after delivery break the repeated rule",
			Facts{ZeroSignal: domain.ZeroStockObserved, Deliveries: 3, SalesAfterLastDelivery: 1, AgeDays: intPtr(120), YearlyQuantity: 4, DaysOfStock: 200},
			domain.StatusSlow,
		},
	}

	c := NewClassifier(DefaultThresholds())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.facts)
			assert.Equal(t, tc.want, got.Status)
			assert.True(t, got.Status.Valid())
			assert.NotEmpty(t, got.Recommendation)
			assert.NotContains(t, got.Recommendation, string(got.Status))
		})
	}
}

func TestClassifier_OverriddenThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.NewProductDays = 14
	c := NewClassifier(th)

	got := c.Classify(Facts{AgeDays: intPtr(20), DaysOfStock: math.Inf(1)})

	assert.Equal(t, domain.StatusNewNoSales, got.Status)
}

func TestClassifier_RecommendationCarriesFigures(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	dead := c.Classify(Facts{AgeDays: intPtr(120), DaysOfStock: math.Inf(1), FrozenValue: 1000, DaysNoMovement: 200, Deliveries: 1})
	assert.Contains(t, dead.Recommendation, "1000.00")
	assert.Contains(t, dead.Recommendation, "200 days")

	repeated := c.Classify(Facts{
		ZeroSignal: domain.ZeroStockObserved, Deliveries: 2, AgeDays: intPtr(70),
		DaysOfStock: 182.5, YearlyQuantity: 10, DaysSinceLastZero: intPtr(50),
	})
	assert.Contains(t, repeated.Recommendation, "2 deliveries")
	assert.Contains(t, repeated.Recommendation, "50 days since stock ran out")
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.FastDays = 10
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.IntroPeriodDays = 20
	assert.Error(t, bad.Validate())
}
