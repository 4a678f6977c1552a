package withdrawal

import (
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// Draft is the withdrawal being assembled by one open wizard. It is
// populated by the information step and discarded when the wizard closes.
type Draft struct {
	To            string                `json:"to"`
	Amount        decimal.Decimal       `json:"amount"`
	NativeGas     decimal.Decimal       `json:"native_gas"`
	Currency      models.CurrencyRef    `json:"currency"`
	CurrencyPrice *models.CurrencyPrice `json:"currency_price,omitempty"`
	Fee           decimal.Decimal       `json:"fee"`
	Decimals      int                   `json:"decimals"`
}

// Reset returns the draft to its empty initial value.
func (d *Draft) Reset() {
	*d = Draft{}
}

// IsEmpty reports whether the draft holds its zero value.
func (d Draft) IsEmpty() bool {
	c := d.Currency
	return d.To == "" &&
		d.Amount.IsZero() &&
		d.NativeGas.IsZero() &&
		c.ID == "" && c.Code == "" && c.Network == "" && c.Decimals == 0 &&
		c.Balance.IsZero() && c.SmartContractAddress == "" && c.Address == "" &&
		d.CurrencyPrice == nil &&
		d.Fee.IsZero() &&
		d.Decimals == 0
}

// clone copies the draft so callers never share the wizard's price pointer.
func (d Draft) clone() Draft {
	if d.CurrencyPrice != nil {
		p := *d.CurrencyPrice
		d.CurrencyPrice = &p
	}
	return d
}

// Quote prices the draft exactly as it was submitted. Fee schedules resolved
// afterwards never change it.
func (d Draft) Quote() Quote {
	q := Quote{
		Amount:    d.Amount,
		Fee:       d.Fee,
		NativeGas: d.NativeGas,
		Total:     d.Amount.Add(d.Fee).Add(d.NativeGas),
	}
	if d.CurrencyPrice != nil {
		usd := d.Amount.Mul(d.CurrencyPrice.USDPrice).Round(2)
		q.USDValue = &usd
	}
	return q
}
