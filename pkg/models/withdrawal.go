package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType tags a fee entry as a flat amount or a percentage of the amount
type FeeType string

const (
	FeeTypeFixed   FeeType = "FIXED"
	FeeTypePercent FeeType = "PERCENT"
)

// FeeEntry is one configured fee component for a currency and operation
type FeeEntry struct {
	ID         uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	CurrencyID string          `json:"currency_id" gorm:"index:idx_fee_currency_op"`
	Operation  OperationKind   `json:"operation" gorm:"index:idx_fee_currency_op"`
	Type       FeeType         `json:"type"`
	Value      decimal.Decimal `json:"value" gorm:"type:decimal(36,18)"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Unlimited is the limit sentinel that disables a bound.
var Unlimited = decimal.NewFromInt(-1)

// IsUnlimited reports whether v is the unlimited sentinel.
func IsUnlimited(v decimal.Decimal) bool {
	return v.Equal(Unlimited)
}

// Limits are the per-wallet bounds for an operation. Only the per-operation
// minimum and maximum are checked client side; the remaining bounds are
// enforced by the server.
type Limits struct {
	ID                           uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	WalletID                     string          `json:"wallet_id" gorm:"index:idx_limit_wallet_op"`
	Operation                    OperationKind   `json:"operation" gorm:"index:idx_limit_wallet_op"`
	MinimumPerOperation          decimal.Decimal `json:"minimum_per_operation" gorm:"type:decimal(36,18)"`
	MaximumPerOperation          decimal.Decimal `json:"maximum_per_operation" gorm:"type:decimal(36,18)"`
	MaximumPerDay                decimal.Decimal `json:"maximum_per_day" gorm:"type:decimal(36,18)"`
	MaximumPerMonth              decimal.Decimal `json:"maximum_per_month" gorm:"type:decimal(36,18)"`
	NightMaximumPerOperation     decimal.Decimal `json:"night_maximum_per_operation" gorm:"type:decimal(36,18)"`
	ValidatedMaximumPerOperation decimal.Decimal `json:"validated_maximum_per_operation" gorm:"type:decimal(36,18)"`
	UpdatedAt                    time.Time       `json:"updated_at"`
}

// WithdrawalSubmission is the payload handed to the transaction gateway
type WithdrawalSubmission struct {
	Address          string          `json:"address" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyID       string          `json:"currencyId" validate:"required"`
	SecondFactorCode string          `json:"secondFactorCode" validate:"required"`
	Type             OperationKind   `json:"type" validate:"required"`
	// WalletID identifies the funding wallet; it is used for code replay
	// scoping and is not part of the remote payload.
	WalletID string `json:"-"`
}

// WithdrawalReceipt is returned by the gateway on success
type WithdrawalReceipt struct {
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
