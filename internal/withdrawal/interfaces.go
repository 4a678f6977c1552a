// Package withdrawal implements the send-funds flow of the operator console:
// fee aggregation, the sendable-amount ceiling, amount and destination
// validation, and the information → details → code → success wizard that
// ends in the single funds-moving gateway call.
package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// FeeSource returns the fee entries configured for a currency and operation.
type FeeSource interface {
	FeeEntries(ctx context.Context, currencyID string, op models.OperationKind) ([]models.FeeEntry, error)
}

// LimitSource returns the limits of a wallet for an operation. A nil result
// with a nil error means no limits are configured.
type LimitSource interface {
	Limits(ctx context.Context, walletID string, op models.OperationKind) (*models.Limits, error)
}

// PriceSource returns a currency's USD price, or nil when none is known.
type PriceSource interface {
	Price(ctx context.Context, currencyID string) (*models.CurrencyPrice, error)
}

// GasEstimator estimates the network fee of sending amount of currency,
// denominated in the network's native asset.
type GasEstimator interface {
	EstimateNativeGas(ctx context.Context, currency models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, error)
}

// Gateway performs the transfer. It is the only call that moves funds.
type Gateway interface {
	SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error)
}

// AddressValidator checks an address against the grammar of a network family.
type AddressValidator interface {
	ValidateAddress(network, address string) error
}

// EventPublisher receives a notification after a successful submission.
type EventPublisher interface {
	PublishWithdrawalSubmitted(ctx context.Context, event *SubmittedEvent) error
}

// SubmittedEvent describes a withdrawal accepted by the gateway.
type SubmittedEvent struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      string          `json:"wallet_id"`
	CurrencyID    string          `json:"currency_id"`
	CurrencyCode  string          `json:"currency_code"`
	Network       string          `json:"network"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	NativeGas     decimal.Decimal `json:"native_gas"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp"`
}
