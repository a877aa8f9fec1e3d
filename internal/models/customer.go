package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Debt ledger movement types. A "debt" entry increases the customer's
// balance, a "payment" entry decreases it.
const (
	DebtTypeDebt    = "debt"
	DebtTypePayment = "payment"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	Name     string  `bun:"name,notnull" json:"name"`
	Phone    string  `bun:"phone,nullzero" json:"phone,omitempty"`
	Type     string  `bun:"type,default:'standard'" json:"type"`
	Birthday string  `bun:"birthday,nullzero" json:"birthday,omitempty"`
	Debt     float64 `bun:"debt" json:"debt"`
}

// DebtEntry is one signed movement against a customer's balance. The
// customer's stored debt must equal the sum of their entries with sign
// applied by type.
type DebtEntry struct {
	bun.BaseModel `bun:"table:debt_history"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64     `bun:"customer_id,notnull" json:"customer_id"`
	Amount     float64   `bun:"amount,notnull" json:"amount"`
	Type       string    `bun:"type,notnull" json:"type"`
	Date       time.Time `bun:"date,notnull" json:"date"`
	Comment    string    `bun:"comment,nullzero" json:"comment,omitempty"`
}
