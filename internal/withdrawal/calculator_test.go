package withdrawal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMaxSendableScenarios(t *testing.T) {
	cases := []struct {
		name                     string
		balance, fixed, pct, gas string
		want                     string
	}{
		{"fixed fee only", "100", "2", "0", "0", "98"},
		{"fees exceed balance", "1", "5", "0", "0", "0"},
		{"gas pushes below zero", "3", "2", "0", "1.5", "0"},
		{"fixed fee and gas", "10", "1", "0", "0.25", "8.75"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MaxSendable(dec(tc.balance), dec(tc.fixed), dec(tc.pct), dec(tc.gas))
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestMaxSendableWithPercentFee(t *testing.T) {
	got := MaxSendable(dec("100"), dec("2"), dec("10"), decimal.Zero)
	assert.True(t, got.Sub(dec("89.0909")).Abs().LessThan(dec("0.0001")), "got %s", got)

	ceiling := Ceiling(dec("100"), dec("2"), dec("10"), decimal.Zero, 8)
	assert.Equal(t, "89.09090909", ceiling.String())

	ceiling = Ceiling(dec("100"), dec("2"), dec("10"), decimal.Zero, 2)
	assert.Equal(t, "89.09", ceiling.String())
}

func TestMaxSendableNonIncreasing(t *testing.T) {
	balance := dec("1000")
	steps := []string{"0", "0.5", "1", "10", "250", "999", "1000", "5000"}

	prev := MaxSendable(balance, decimal.Zero, decimal.Zero, decimal.Zero)
	for _, s := range steps[1:] {
		got := MaxSendable(balance, dec(s), decimal.Zero, decimal.Zero)
		assert.True(t, got.LessThanOrEqual(prev), "fixed fee %s", s)
		assert.False(t, got.IsNegative())
		prev = got
	}

	prev = MaxSendable(balance, dec("1"), decimal.Zero, decimal.Zero)
	for _, s := range steps[1:] {
		got := MaxSendable(balance, dec("1"), dec(s), decimal.Zero)
		assert.True(t, got.LessThanOrEqual(prev), "percent fee %s", s)
		assert.False(t, got.IsNegative())
		prev = got
	}

	prev = MaxSendable(balance, dec("1"), dec("1"), decimal.Zero)
	for _, s := range steps[1:] {
		got := MaxSendable(balance, dec("1"), dec("1"), dec(s))
		assert.True(t, got.LessThanOrEqual(prev), "gas %s", s)
		assert.False(t, got.IsNegative())
		prev = got
	}
}

func TestEffectiveDecimals(t *testing.T) {
	assert.Equal(t, 8, EffectiveDecimals(18))
	assert.Equal(t, 8, EffectiveDecimals(8))
	assert.Equal(t, 6, EffectiveDecimals(6))
	assert.Equal(t, 0, EffectiveDecimals(0))
	assert.Equal(t, 0, EffectiveDecimals(-3))

	c := Ceiling(dec("1"), decimal.Zero, dec("3"), decimal.Zero, 18)
	assert.True(t, c.Equal(c.Truncate(8)))
	assert.Equal(t, "0.97087378", c.String())
}

func TestMaxAllowed(t *testing.T) {
	balance := dec("50")
	assert.True(t, MaxAllowed(balance, nil).Equal(balance))
	assert.True(t, MaxAllowed(balance, &models.Limits{MaximumPerOperation: models.Unlimited}).Equal(balance))
	assert.True(t, MaxAllowed(balance, &models.Limits{MaximumPerOperation: dec("20")}).Equal(dec("20")))
	assert.True(t, MaxAllowed(balance, &models.Limits{MaximumPerOperation: dec("80")}).Equal(balance))
}

func TestMaxShortcutCappedByValidationCeiling(t *testing.T) {
	currency := models.CurrencyRef{Code: "ETH", Decimals: 18, Balance: dec("100")}
	fees := FeeSchedule{FixedValue: dec("2"), PercentValue: decimal.Zero}

	assert.Equal(t, "98", ValidationCeiling(currency, fees, nil).String())
	assert.Equal(t, "97.5", MaxShortcut(currency, fees, nil, dec("0.5")).String())

	limits := &models.Limits{MinimumPerOperation: models.Unlimited, MaximumPerOperation: dec("30")}
	assert.Equal(t, "28", MaxShortcut(currency, fees, limits, dec("0.5")).String())
}

func TestNewQuote(t *testing.T) {
	fees := FeeSchedule{FixedValue: dec("1"), PercentValue: dec("0.5")}
	price := &models.CurrencyPrice{USDPrice: dec("2000")}

	q := NewQuote(dec("10"), fees, dec("0.001"), price, 18)
	assert.Equal(t, "1.05", q.Fee.String())
	assert.Equal(t, "11.051", q.Total.String())
	if assert.NotNil(t, q.USDValue) {
		assert.Equal(t, "20000", q.USDValue.String())
	}

	q = NewQuote(dec("0.333"), FeeSchedule{FixedValue: decimal.Zero, PercentValue: dec("1")}, decimal.Zero, nil, 2)
	assert.Equal(t, "0.01", q.Fee.String())
	assert.Nil(t, q.USDValue)
}
