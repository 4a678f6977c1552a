package models

import (
	"time"
)

// OperationKind identifies the kind of money movement a fee or limit applies to.
type OperationKind string

const (
	OperationWithdrawal OperationKind = "WITHDRAWAL"
	OperationDeposit    OperationKind = "DEPOSIT"
	OperationTransfer   OperationKind = "TRANSFER"
)

// Currency is an asset on a specific network
type Currency struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	Code                 string    `json:"code" gorm:"index" validate:"required"`
	Network              string    `json:"network" gorm:"index" validate:"required"`
	Decimals             int       `json:"decimals" validate:"min=0"`
	SmartContractAddress string    `json:"smart_contract_address,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsNative reports whether the currency is its network's native (gas) asset.
func (c Currency) IsNative() bool {
	return c.SmartContractAddress == ""
}

// PageQuery is a paged list request with optional equality filters.
type PageQuery struct {
	Page    int               `json:"page" form:"page"`
	Limit   int               `json:"limit" form:"limit"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Normalize clamps page to >= 1 and limit to [1, maxLimit].
func (q PageQuery) Normalize(defaultLimit, maxLimit int) PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q
}

// Offset returns the row offset of the page.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of a paged query result.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Page  int   `json:"page"`
	Total int64 `json:"total"`
}
