package withdrawal

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// MaxDecimals caps the precision used for display and rounding regardless of
// a currency's native precision.
const MaxDecimals = 8

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// EffectiveDecimals returns min(decimals, MaxDecimals), never negative.
func EffectiveDecimals(decimals int) int {
	if decimals > MaxDecimals {
		return MaxDecimals
	}
	if decimals < 0 {
		return 0
	}
	return decimals
}

// MaxSendable returns (balance - fixedFee - nativeGas) / (1 + percentFee/100),
// clamped at zero. The result carries decimal.DivisionPrecision places.
func MaxSendable(balance, fixedFee, percentFee, nativeGas decimal.Decimal) decimal.Decimal {
	raw := balance.Sub(fixedFee).Sub(nativeGas).Div(divisor(percentFee))
	if raw.IsNegative() {
		return decimal.Zero
	}
	return raw
}

// Ceiling is MaxSendable truncated to the effective decimals of a currency.
func Ceiling(balance, fixedFee, percentFee, nativeGas decimal.Decimal, decimals int) decimal.Decimal {
	numerator := balance.Sub(fixedFee).Sub(nativeGas)
	if !numerator.IsPositive() {
		return decimal.Zero
	}
	q, _ := numerator.QuoRem(divisor(percentFee), int32(EffectiveDecimals(decimals)))
	return q
}

func divisor(percentFee decimal.Decimal) decimal.Decimal {
	return one.Add(percentFee.Div(hundred))
}

// MaxAllowed is the upper bound before fees: the balance, lowered to the
// per-operation maximum when limits exist and that maximum is not unlimited.
func MaxAllowed(balance decimal.Decimal, limits *models.Limits) decimal.Decimal {
	if limits == nil || models.IsUnlimited(limits.MaximumPerOperation) {
		return balance
	}
	return decimal.Min(balance, limits.MaximumPerOperation)
}

// ValidationCeiling is the largest amount the validator accepts. It ignores
// native gas.
func ValidationCeiling(currency models.CurrencyRef, fees FeeSchedule, limits *models.Limits) decimal.Decimal {
	return Ceiling(MaxAllowed(currency.Balance, limits), fees.FixedValue, fees.PercentValue, decimal.Zero, currency.Decimals)
}

// MaxShortcut is the amount offered by the "max" button: the balance after
// fees and the current gas estimate, never above the validation ceiling.
func MaxShortcut(currency models.CurrencyRef, fees FeeSchedule, limits *models.Limits, nativeGas decimal.Decimal) decimal.Decimal {
	withGas := Ceiling(currency.Balance, fees.FixedValue, fees.PercentValue, nativeGas, currency.Decimals)
	return decimal.Min(withGas, ValidationCeiling(currency, fees, limits))
}

// Quote is the fee breakdown shown on the details step.
type Quote struct {
	Amount    decimal.Decimal  `json:"amount"`
	Fee       decimal.Decimal  `json:"fee"`
	NativeGas decimal.Decimal  `json:"native_gas"`
	Total     decimal.Decimal  `json:"total"`
	USDValue  *decimal.Decimal `json:"usd_value,omitempty"`
}

// NewQuote prices amount under fees. The fee is rounded up to the effective
// decimals so it is never understated.
func NewQuote(amount decimal.Decimal, fees FeeSchedule, nativeGas decimal.Decimal, price *models.CurrencyPrice, decimals int) Quote {
	places := int32(EffectiveDecimals(decimals))
	fee := fees.FeeFor(amount).RoundCeil(places)
	q := Quote{
		Amount:    amount,
		Fee:       fee,
		NativeGas: nativeGas,
		Total:     amount.Add(fee).Add(nativeGas),
	}
	if price != nil {
		usd := amount.Mul(price.USDPrice).Round(2)
		q.USDValue = &usd
	}
	return q
}
