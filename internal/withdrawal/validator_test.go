package withdrawal

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

type addressFunc func(network, address string) error

func (f addressFunc) ValidateAddress(network, address string) error { return f(network, address) }

// hexAddresses accepts anything starting with 0x.
var hexAddresses = addressFunc(func(network, address string) error {
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("not a %s address", network)
	}
	return nil
})

func ethInput(to, amount string) Input {
	return Input{
		To:     to,
		Amount: amount,
		Currency: models.CurrencyRef{
			ID:       "eth",
			Code:     "ETH",
			Network:  "ethereum",
			Decimals: 18,
			Balance:  dec("50"),
			Address:  "0xFundingWallet",
		},
		Fees: FeeSchedule{FixedValue: decimal.Zero, PercentValue: decimal.Zero},
	}
}

func assertFieldError(t *testing.T, err error, sentinel *errors.Error, field string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, errors.Is(err, sentinel), "got %v", err)
		var e *errors.Error
		if assert.True(t, errors.As(err, &e)) {
			assert.Equal(t, field, e.Field())
		}
	}
}

func TestValidateRuleOrder(t *testing.T) {
	v := NewValidator(hexAddresses)

	cases := []struct {
		name     string
		in       Input
		sentinel *errors.Error
		field    string
	}{
		{"missing destination", ethInput("  ", "abc"), errors.ErrRequired, FieldTo},
		{"bad address wins over bad amount", ethInput("bc1qxyz", "abc"), errors.ErrInvalidAddress, FieldTo},
		{"self transfer ignores hex case", ethInput("0xfundingwallet", "1"), errors.ErrSelfTransfer, FieldTo},
		{"missing amount", ethInput("0xdest", ""), errors.ErrRequired, FieldAmount},
		{"non numeric amount", ethInput("0xdest", "1,5"), errors.ErrInvalidAmount, FieldAmount},
		{"letters", ethInput("0xdest", "abc"), errors.ErrInvalidAmount, FieldAmount},
		{"not a number", ethInput("0xdest", "NaN"), errors.ErrInvalidAmount, FieldAmount},
		{"too many decimals", ethInput("0xdest", "0.000000001"), errors.ErrInvalidAmount, FieldAmount},
		{"zero amount", ethInput("0xdest", "0"), errors.ErrBelowMinimum, FieldAmount},
		{"negative amount", ethInput("0xdest", "-1"), errors.ErrBelowMinimum, FieldAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.in)
			assertFieldError(t, err, tc.sentinel, tc.field)
		})
	}
}

func TestValidateDecimalLiterals(t *testing.T) {
	v := NewValidator(hexAddresses)

	cases := map[string]string{
		".5":   "0.5",
		"1.":   "1",
		"1e1":  "10",
		" 2.5": "2.5",
	}
	for literal, want := range cases {
		t.Run(literal, func(t *testing.T) {
			amount, err := v.Validate(ethInput("0xdest", literal))
			require.NoError(t, err)
			assert.Equal(t, want, amount.String())
		})
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	v := NewValidator(hexAddresses)
	in := ethInput("0xdest", "5")
	in.Limits = &models.Limits{MinimumPerOperation: dec("10"), MaximumPerOperation: models.Unlimited}

	_, err := v.Validate(in)
	assertFieldError(t, err, errors.ErrBelowMinimum, FieldAmount)
	assert.Contains(t, err.Error(), "below the minimum")
}

func TestValidateInsufficientBalanceWithoutLimits(t *testing.T) {
	v := NewValidator(hexAddresses)

	_, err := v.Validate(ethInput("0xdest", "60"))
	assertFieldError(t, err, errors.ErrInsufficientFunds, FieldAmount)
	assert.False(t, errors.Is(err, errors.ErrExceedsLimit))
}

func TestValidateExceedsLimit(t *testing.T) {
	v := NewValidator(hexAddresses)

	in := ethInput("0xdest", "30")
	in.Limits = &models.Limits{MinimumPerOperation: models.Unlimited, MaximumPerOperation: dec("20")}
	_, err := v.Validate(in)
	assertFieldError(t, err, errors.ErrExceedsLimit, FieldAmount)

	// over the balance is still reported against the limit once limits exist
	in = ethInput("0xdest", "60")
	in.Limits = &models.Limits{MinimumPerOperation: models.Unlimited, MaximumPerOperation: dec("100")}
	_, err = v.Validate(in)
	assertFieldError(t, err, errors.ErrExceedsLimit, FieldAmount)
}

func TestValidateFeesReduceCeiling(t *testing.T) {
	v := NewValidator(hexAddresses)

	in := ethInput("0xdest", "45.5")
	in.Fees = FeeSchedule{FixedValue: dec("5"), PercentValue: dec("0")}
	_, err := v.Validate(in)
	assertFieldError(t, err, errors.ErrInsufficientFunds, FieldAmount)

	in.Amount = "45"
	amount, err := v.Validate(in)
	assert.NoError(t, err)
	assert.Equal(t, "45", amount.String())
}

func TestValidateUnlimitedSentinelNeverFails(t *testing.T) {
	v := NewValidator(hexAddresses)
	limits := &models.Limits{MinimumPerOperation: models.Unlimited, MaximumPerOperation: models.Unlimited}

	for _, amount := range []string{"0.00000001", "1", "49.99999999", "50"} {
		in := ethInput("0xdest", amount)
		in.Limits = limits
		got, err := v.Validate(in)
		assert.NoError(t, err, amount)
		assert.Equal(t, amount, got.String())
	}
}

func TestValidateTrimsInput(t *testing.T) {
	v := NewValidator(hexAddresses)

	amount, err := v.Validate(ethInput("  0xdest ", " 12.5 "))
	assert.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())
}
