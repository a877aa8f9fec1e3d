package printer_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pos-core/internal/models"
	"pos-core/internal/printer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKitchenTicket(t *testing.T) {
	ticket := printer.KitchenTicket{
		TableName:   "Table 4",
		CheckNumber: 17,
		StaffName:   "Carol",
		Lines: []printer.TicketLine{
			{Name: "Plov", Quantity: 2},
			{Name: "Shashlik", Quantity: 1},
		},
	}

	out := string(printer.RenderKitchenTicket(ticket, "Hot Kitchen"))
	assert.Contains(t, out, "HOT KITCHEN")
	assert.Contains(t, out, "CHECK #17")
	assert.Contains(t, out, "Table: Table 4")
	assert.Contains(t, out, "Staff: CAROL")
	assert.Contains(t, out, "2 x Plov")
	assert.Contains(t, out, "1 x Shashlik")
}

func TestRenderReceipt(t *testing.T) {
	receipt := printer.Receipt{
		TableName:   "Table 4",
		CheckNumber: 17,
		StaffName:   "Carol",
		Items: []models.LineInput{
			{Name: "Plov", Price: 30000, Quantity: 2},
			{Name: "Tea", Price: 5000, Quantity: 1},
		},
		Subtotal:      65000,
		Discount:      5000,
		Service:       6000,
		Total:         66000,
		PaymentMethod: models.PayCash,
	}
	identity := printer.Identity{
		Name:   "Samarkand Darvoza",
		Phone:  "+998 90 123 45 67",
		Footer: "Thank you!",
	}

	out := string(printer.RenderReceipt(receipt, identity))
	assert.Contains(t, out, "SAMARKAND DARVOZA")
	assert.Contains(t, out, "Check #17")
	assert.Contains(t, out, "Plov")
	assert.Contains(t, out, "60000")
	assert.Contains(t, out, "Discount")
	assert.Contains(t, out, "-5000")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Cash")
	assert.Contains(t, out, "Thank you!")
}

func TestRenderReceiptOmitsZeroAdjustments(t *testing.T) {
	receipt := printer.Receipt{
		TableName:     "Table 1",
		CheckNumber:   1,
		Total:         10000,
		Subtotal:      10000,
		PaymentMethod: models.PayCard,
	}

	out := string(printer.RenderReceipt(receipt, printer.Identity{}))
	assert.NotContains(t, out, "Discount")
	assert.NotContains(t, out, "Service")
	assert.Contains(t, out, "RESTAURANT")
	assert.Equal(t, 1, strings.Count(out, "TOTAL"))
}

func TestRenderReceiptAlignsMultibyteText(t *testing.T) {
	receipt := printer.Receipt{
		TableName:   "Стол 4",
		CheckNumber: 17,
		StaffName:   "Гулнора",
		Items: []models.LineInput{
			{Name: "Лагман", Price: 30000, Quantity: 1},
		},
		Subtotal:      30000,
		Total:         30000,
		PaymentMethod: models.PayCash,
	}
	identity := printer.Identity{Name: "Чайхана"}

	out := string(printer.RenderReceipt(receipt, identity))

	var staffLine, headerLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "ГУЛНОРА") {
			staffLine = line
		}
		if strings.Contains(line, "ЧАЙХАНА") {
			headerLine = line
		}
	}
	require.NotEmpty(t, staffLine)
	require.NotEmpty(t, headerLine)

	assert.Equal(t, 42, utf8.RuneCountInString(staffLine), "pair lines pad to the full ticket width")
	leading := len(headerLine) - len(strings.TrimLeft(headerLine, " "))
	assert.Equal(t, 17, leading, "header centering counts runes, not bytes")
}

func TestSaleQRProducesPNG(t *testing.T) {
	sale := models.Sale{CheckNumber: 17, TotalAmount: 66000}

	png, err := printer.SaleQR(sale)
	assert.NoError(t, err)
	assert.True(t, len(png) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
