package printer

import (
	"fmt"

	"pos-core/internal/models"

	"github.com/skip2/go-qrcode"
)

// SaleQR encodes a compact check-verification payload as a PNG. The UI
// shows it next to a finished sale so a guest can photograph the check
// reference.
func SaleQR(sale models.Sale) ([]byte, error) {
	payload := fmt.Sprintf("CHK|%d|%.2f|%s", sale.CheckNumber, sale.TotalAmount, sale.Date.Format("2006-01-02T15:04:05"))
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
