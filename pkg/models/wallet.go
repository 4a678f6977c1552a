package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a custodial funding wallet that withdrawals are sent from
type Wallet struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"index"`
	Type      string          `json:"type"` // hot, warm, cold
	Address   string          `json:"address"`
	Balances  []WalletBalance `json:"balances" gorm:"foreignKey:WalletID"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletBalance is the balance of one currency held by a wallet. Position
// orders the entries; the first one is the wizard's default currency.
type WalletBalance struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	WalletID   string          `json:"wallet_id" gorm:"index"`
	CurrencyID string          `json:"currency_id" gorm:"index"`
	Currency   Currency        `json:"currency" gorm:"foreignKey:CurrencyID"`
	Address    string          `json:"address,omitempty"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:decimal(36,18)"`
	Position   int             `json:"position"`
}

// CurrencyRef is the currency selected in a withdrawal together with the
// funding wallet's balance of it.
type CurrencyRef struct {
	ID                   string          `json:"id"`
	Code                 string          `json:"code"`
	Network              string          `json:"network"`
	Decimals             int             `json:"decimals"`
	Balance              decimal.Decimal `json:"balance"`
	SmartContractAddress string          `json:"smart_contract_address,omitempty"`
	// Address is the funding wallet's own address on this currency's network.
	Address string `json:"address,omitempty"`
}

// IsNative reports whether the referenced currency is its network's gas asset.
func (r CurrencyRef) IsNative() bool {
	return r.SmartContractAddress == ""
}

// Ref builds the CurrencyRef for a balance entry, falling back to the
// wallet-level address when the entry has none.
func (w *Wallet) Ref(b WalletBalance) CurrencyRef {
	addr := b.Address
	if addr == "" {
		addr = w.Address
	}
	return CurrencyRef{
		ID:                   b.Currency.ID,
		Code:                 b.Currency.Code,
		Network:              b.Currency.Network,
		Decimals:             b.Currency.Decimals,
		Balance:              b.Balance,
		SmartContractAddress: b.Currency.SmartContractAddress,
		Address:              addr,
	}
}

// Balance returns the balance entry for currencyID.
func (w *Wallet) Balance(currencyID string) (WalletBalance, bool) {
	for _, b := range w.Balances {
		if b.CurrencyID == currencyID || b.Currency.ID == currencyID {
			return b, true
		}
	}
	return WalletBalance{}, false
}

// CurrencyPrice is a currency's USD price used for display conversion.
type CurrencyPrice struct {
	USDPrice decimal.Decimal `json:"usd_price"`
}
