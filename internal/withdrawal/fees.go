package withdrawal

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// FeeSchedule is the aggregated platform fee for one currency and operation.
// PercentValue is a percentage (2.5 means 2.5%), not a fraction.
type FeeSchedule struct {
	FixedValue   decimal.Decimal `json:"fixed_value"`
	PercentValue decimal.Decimal `json:"percent_value"`
}

// Aggregate sums FIXED and PERCENT entries into a FeeSchedule. Entries of
// any other type are skipped.
func Aggregate(entries []models.FeeEntry) FeeSchedule {
	schedule := FeeSchedule{FixedValue: decimal.Zero, PercentValue: decimal.Zero}
	for _, e := range entries {
		switch e.Type {
		case models.FeeTypeFixed:
			schedule.FixedValue = schedule.FixedValue.Add(e.Value)
		case models.FeeTypePercent:
			schedule.PercentValue = schedule.PercentValue.Add(e.Value)
		}
	}
	return schedule
}

// FeeFor returns the platform fee charged on amount.
func (s FeeSchedule) FeeFor(amount decimal.Decimal) decimal.Decimal {
	return s.FixedValue.Add(amount.Mul(s.PercentValue).Div(hundred))
}
