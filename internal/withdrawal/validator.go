package withdrawal

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// Input is a candidate destination and amount together with the data the
// rules are evaluated against. Limits is nil when none were resolved.
// Amount accepts any decimal literal, including ".5", "1." and exponents.
type Input struct {
	To       string `validate:"required"`
	Amount   string `validate:"required"`
	Currency models.CurrencyRef
	Fees     FeeSchedule
	Limits   *models.Limits
}

// Validator decides whether an Input may advance to the details step.
type Validator struct {
	addresses AddressValidator
	structs   *validator.Validate
}

// NewValidator creates a validator that checks destinations with addresses.
func NewValidator(addresses AddressValidator) *Validator {
	return &Validator{
		addresses: addresses,
		structs:   validator.New(),
	}
}

// Validate applies the rules in order and returns the parsed amount, or the
// first failing rule as a field-scoped *errors.Error.
func (v *Validator) Validate(in Input) (decimal.Decimal, error) {
	in.To = strings.TrimSpace(in.To)
	in.Amount = strings.TrimSpace(in.Amount)

	tags := make(map[string]string)
	if err := v.structs.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return decimal.Zero, err
		}
		for _, fe := range verrs {
			if _, seen := tags[fe.Field()]; !seen {
				tags[fe.Field()] = fe.Tag()
			}
		}
	}

	// Destination.
	if _, bad := tags["To"]; bad {
		return decimal.Zero, fieldError(errors.ErrRequired, FieldTo, "destination address is required")
	}
	if err := v.addresses.ValidateAddress(in.Currency.Network, in.To); err != nil {
		return decimal.Zero, fieldError(errors.ErrInvalidAddress, FieldTo, "invalid %s address", in.Currency.Network)
	}
	if in.Currency.Address != "" && sameAddress(in.To, in.Currency.Address) {
		return decimal.Zero, fieldError(errors.ErrSelfTransfer, FieldTo, "destination must differ from the funding wallet address")
	}

	// Well-formed amount.
	if _, bad := tags["Amount"]; bad {
		return decimal.Zero, fieldError(errors.ErrRequired, FieldAmount, "amount is required")
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return decimal.Zero, fieldError(errors.ErrInvalidAmount, FieldAmount, "amount must be a number")
	}
	places := EffectiveDecimals(in.Currency.Decimals)
	if !amount.Equal(amount.Truncate(int32(places))) {
		return decimal.Zero, fieldError(errors.ErrInvalidAmount, FieldAmount, "amount allows at most %d decimal places", places)
	}

	// Minimum.
	if !amount.IsPositive() {
		return decimal.Zero, fieldError(errors.ErrBelowMinimum, FieldAmount, "amount must be greater than 0")
	}
	if in.Limits != nil && !models.IsUnlimited(in.Limits.MinimumPerOperation) &&
		amount.LessThan(in.Limits.MinimumPerOperation) {
		return decimal.Zero, fieldError(errors.ErrBelowMinimum, FieldAmount, "amount is below the minimum of %s %s",
			in.Limits.MinimumPerOperation.String(), in.Currency.Code)
	}

	// Maximum.
	ceiling := ValidationCeiling(in.Currency, in.Fees, in.Limits)
	if amount.GreaterThan(ceiling) {
		if in.Limits == nil {
			return decimal.Zero, fieldError(errors.ErrInsufficientFunds, FieldAmount, "insufficient balance: at most %s %s can be sent",
				ceiling.String(), in.Currency.Code)
		}
		return decimal.Zero, fieldError(errors.ErrExceedsLimit, FieldAmount, "amount exceeds the allowed limit of %s %s",
			ceiling.String(), in.Currency.Code)
	}

	return amount, nil
}

// sameAddress compares hex addresses case-insensitively and everything else
// exactly, since base58 and bech32 encodings are case sensitive or canonical.
func sameAddress(a, b string) bool {
	if strings.HasPrefix(a, "0x") && strings.HasPrefix(b, "0x") {
		return strings.EqualFold(a, b)
	}
	return a == b
}
