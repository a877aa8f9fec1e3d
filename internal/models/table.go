package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Table statuses.
const (
	TableFree     = "free"
	TableOccupied = "occupied"
	TablePayment  = "payment"
)

type Hall struct {
	bun.BaseModel `bun:"table:halls"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// Table is one physical seating unit. A free table always has
// check_number = 0, total_amount = 0 and staff_id = 0.
type Table struct {
	bun.BaseModel `bun:"table:tables"`

	ID          int64      `bun:"id,pk,autoincrement" json:"id"`
	HallID      int64      `bun:"hall_id" json:"hall_id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Status      string     `bun:"status,notnull,default:'free'" json:"status"`
	Guests      int        `bun:"guests" json:"guests"`
	StartTime   *time.Time `bun:"start_time,nullzero" json:"start_time,omitempty"`
	TotalAmount float64    `bun:"total_amount" json:"total_amount"`
	CheckNumber int64      `bun:"check_number" json:"check_number"`
	StaffID     int64      `bun:"staff_id" json:"staff_id"`
	StaffName   string     `bun:"staff_name,nullzero" json:"staff_name,omitempty"`
}

// Kitchen is a preparation station with an attached network printer.
// Order lines carry the kitchen ID in their destination field.
type Kitchen struct {
	bun.BaseModel `bun:"table:kitchens"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	PrinterAddr string `bun:"printer_addr,nullzero" json:"printer_addr,omitempty"`
	PrinterPort int    `bun:"printer_port,default:9100" json:"printer_port"`
}
