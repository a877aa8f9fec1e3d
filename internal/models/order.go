package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment methods accepted at checkout.
const (
	PayCash  = "cash"
	PayCard  = "card"
	PayClick = "click"
	PayDebt  = "debt"
)

// OrderLine is one quantity of one product on a table's open order.
// Name and price are snapshots taken at add time, so later catalog edits
// never alter open or historic orders.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID          int64   `bun:"id,pk,autoincrement" json:"id"`
	TableID     int64   `bun:"table_id,notnull" json:"table_id"`
	ProductName string  `bun:"product_name,notnull" json:"product_name"`
	Price       float64 `bun:"price,notnull" json:"price"`
	Quantity    int     `bun:"quantity,notnull" json:"quantity"`
	Destination string  `bun:"destination,nullzero" json:"destination,omitempty"`
}

// LineInput is a line item as submitted by a client, before persistence.
type LineInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"qty"`
	Destination string  `json:"destination"`
}

// Sale is the immutable record of a completed checkout. DueDate and
// LastReminderAt belong to the external SMS scheduler; the core only
// creates them empty.
type Sale struct {
	bun.BaseModel `bun:"table:sales"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id"`
	Date           time.Time  `bun:"date,notnull" json:"date"`
	TotalAmount    float64    `bun:"total_amount" json:"total_amount"`
	Subtotal       float64    `bun:"subtotal" json:"subtotal"`
	Discount       float64    `bun:"discount" json:"discount"`
	PaymentMethod  string     `bun:"payment_method" json:"payment_method"`
	CustomerID     *int64     `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	ItemsJSON      string     `bun:"items_json" json:"items_json"`
	CheckNumber    int64      `bun:"check_number" json:"check_number"`
	StaffName      string     `bun:"staff_name,nullzero" json:"staff_name,omitempty"`
	Guests         int        `bun:"guests" json:"guests"`
	DueDate        *time.Time `bun:"due_date,nullzero" json:"due_date,omitempty"`
	LastReminderAt *time.Time `bun:"last_reminder_at,nullzero" json:"last_reminder_at,omitempty"`
}
