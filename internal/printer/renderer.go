package printer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pos-core/internal/models"
)

// Payloads are rendered as fixed-width text for 80mm thermal printers.
const lineWidth = 42

// PaymentLabels maps payment methods to their receipt names.
var PaymentLabels = map[string]string{
	models.PayCash:  "Cash",
	models.PayCard:  "Card",
	models.PayClick: "Click/Payme",
	models.PayDebt:  "On credit",
}

type TicketLine struct {
	Name        string `json:"name"`
	Quantity    int    `json:"qty"`
	Destination string `json:"destination"`
}

// KitchenTicket tells a preparation station what to cook for a check.
type KitchenTicket struct {
	JobID       string       `json:"job_id"`
	TableName   string       `json:"table_name"`
	CheckNumber int64        `json:"check_number"`
	StaffName   string       `json:"staff_name"`
	Lines       []TicketLine `json:"lines"`
}

// Receipt is the finalized cash receipt payload, fixed after checkout
// commits.
type Receipt struct {
	JobID         string             `json:"job_id"`
	TableName     string             `json:"table_name"`
	CheckNumber   int64              `json:"check_number"`
	StaffName     string             `json:"staff_name"`
	Items         []models.LineInput `json:"items"`
	Subtotal      float64            `json:"subtotal"`
	Discount      float64            `json:"discount"`
	Service       float64            `json:"service"`
	Total         float64            `json:"total"`
	PaymentMethod string             `json:"payment_method"`
}

// Identity is the restaurant header and footer printed on receipts, read
// from settings at dispatch time.
type Identity struct {
	Name    string
	Address string
	Phone   string
	Footer  string
}

// RenderKitchenTicket renders the ticket for one preparation station.
func RenderKitchenTicket(ticket KitchenTicket, stationName string) []byte {
	var b strings.Builder

	b.WriteString(center(strings.ToUpper(stationName)) + "\n")
	b.WriteString(center(fmt.Sprintf("CHECK #%d", ticket.CheckNumber)) + "\n")
	b.WriteString(rule('=') + "\n")
	b.WriteString(fmt.Sprintf("Table: %s\n", ticket.TableName))
	if ticket.StaffName != "" {
		b.WriteString(fmt.Sprintf("Staff: %s\n", strings.ToUpper(ticket.StaffName)))
	}
	b.WriteString(fmt.Sprintf("Time:  %s\n", time.Now().Format("15:04")))
	b.WriteString(rule('-') + "\n")
	for _, line := range ticket.Lines {
		b.WriteString(fmt.Sprintf("  %d x %s\n", line.Quantity, line.Name))
	}
	b.WriteString(rule('-') + "\n\n\n")

	return []byte(b.String())
}

// RenderReceipt renders the cash receipt.
func RenderReceipt(receipt Receipt, identity Identity) []byte {
	var b strings.Builder

	name := identity.Name
	if name == "" {
		name = "RESTAURANT"
	}
	b.WriteString(center(strings.ToUpper(name)) + "\n")
	if identity.Address != "" {
		b.WriteString(center(identity.Address) + "\n")
	}
	if identity.Phone != "" {
		b.WriteString(center(identity.Phone) + "\n")
	}
	b.WriteString(rule('=') + "\n")
	b.WriteString(pair(fmt.Sprintf("Check #%d", receipt.CheckNumber), time.Now().Format("2006-01-02 15:04")) + "\n")
	b.WriteString(pair("Table: "+receipt.TableName, strings.ToUpper(receipt.StaffName)) + "\n")
	b.WriteString(rule('-') + "\n")

	for _, item := range receipt.Items {
		amount := item.Price * float64(item.Quantity)
		b.WriteString(item.Name + "\n")
		b.WriteString(pair(fmt.Sprintf("  %d x %s", item.Quantity, money(item.Price)), money(amount)) + "\n")
	}

	b.WriteString(rule('-') + "\n")
	b.WriteString(pair("Subtotal", money(receipt.Subtotal)) + "\n")
	if receipt.Discount > 0 {
		b.WriteString(pair("Discount", "-"+money(receipt.Discount)) + "\n")
	}
	if receipt.Service > 0 {
		b.WriteString(pair("Service", money(receipt.Service)) + "\n")
	}
	b.WriteString(pair("TOTAL", money(receipt.Total)) + "\n")

	label := PaymentLabels[receipt.PaymentMethod]
	if label == "" {
		label = receipt.PaymentMethod
	}
	b.WriteString(pair("Payment", label) + "\n")
	b.WriteString(rule('=') + "\n")
	if identity.Footer != "" {
		b.WriteString(center(identity.Footer) + "\n")
	}
	b.WriteString("\n\n\n")

	return []byte(b.String())
}

func money(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// Widths count runes, not bytes, so Cyrillic names line up on the ticket.
func center(s string) string {
	width := utf8.RuneCountInString(s)
	if width >= lineWidth {
		return s
	}
	pad := (lineWidth - width) / 2
	return strings.Repeat(" ", pad) + s
}

func pair(left, right string) string {
	gap := lineWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func rule(ch byte) string {
	return strings.Repeat(string(ch), lineWidth)
}
