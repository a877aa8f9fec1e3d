package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pos-core/internal/auth"
	"pos-core/internal/logger"
	"pos-core/internal/models"
	"pos-core/internal/order"
	"pos-core/internal/order/db"
	"pos-core/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Orders *order.OrderService
	Logger *logger.Logger
}

func NewHandler(orders *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		Orders: orders,
		Logger: log,
	}
}

// GetTableItems returns the open order lines for a table.
func (h *Handler) GetTableItems(w http.ResponseWriter, r *http.Request) {
	tableID, err := parseID(chi.URLParam(r, "tableID"))
	if err != nil {
		http.Error(w, "Invalid table id", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetTableItems: tableID=%d", tableID))

	lines, err := h.Orders.GetOpenOrder(r.Context(), tableID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTableItems: %v", err))
		http.Error(w, "Could not load order: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(lines); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTableItems: failed to encode response: %v", err))
	}
}

// AddItem appends a single line from the desktop cashier.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID int64            `json:"tableId"`
		Item    models.LineInput `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AddItem: tableID=%d item=%s", req.TableID, req.Item.Name))

	if err := h.Orders.AddItem(r.Context(), req.TableID, req.Item); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddItem: %v", err))
		http.Error(w, "Could not add item: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Item added", nil))
}

// AddBulkItems appends a waiter's batch. The submitting staff comes from
// the session token when present, falling back to the request body for
// terminals that authenticate per call.
func (h *Handler) AddBulkItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID int64              `json:"tableId"`
		Items   []models.LineInput `json:"items"`
		StaffID int64              `json:"staffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	staffID := req.StaffID
	if claims := auth.StaffFrom(r.Context()); claims != nil {
		staffID = claims.StaffID
	}
	h.Logger.Info("API", fmt.Sprintf("AddBulkItems: tableID=%d items=%d staffID=%d", req.TableID, len(req.Items), staffID))

	if err := h.Orders.AddBatch(r.Context(), req.TableID, req.Items, staffID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddBulkItems: %v", err))
		http.Error(w, "Could not add items: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Items added", nil))
}

// Checkout settles a table's open order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID       int64              `json:"tableId"`
		Total         float64            `json:"total"`
		Subtotal      float64            `json:"subtotal"`
		Discount      float64            `json:"discount"`
		PaymentMethod string             `json:"paymentMethod"`
		CustomerID    *int64             `json:"customerId"`
		Items         []models.LineInput `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Checkout: tableID=%d method=%s total=%.2f", req.TableID, req.PaymentMethod, req.Total))

	receipt, err := h.Orders.Checkout(r.Context(), db.CheckoutParams{
		TableID:       req.TableID,
		Total:         req.Total,
		Subtotal:      req.Subtotal,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
		CustomerID:    req.CustomerID,
		Lines:         req.Items,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: %v", err))
		http.Error(w, "Checkout failed: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Checkout complete", receipt))
}

// GetSales lists completed sales, optionally bounded by from/to dates.
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "Invalid date range: "+err.Error(), http.StatusBadRequest)
		return
	}

	sales, err := h.Orders.ListSales(r.Context(), from, to)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSales: %v", err))
		http.Error(w, "Could not load sales: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sales); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSales: failed to encode response: %v", err))
	}
}

// GetSaleQR serves the verification code for a sale as a PNG image.
func (h *Handler) GetSaleQR(w http.ResponseWriter, r *http.Request) {
	saleID, err := parseID(chi.URLParam(r, "saleID"))
	if err != nil {
		http.Error(w, "Invalid sale id", http.StatusBadRequest)
		return
	}

	png, err := h.Orders.SaleQR(r.Context(), saleID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSaleQR: %v", err))
		http.Error(w, "Could not render code: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseDateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	if fromRaw == "" && toRaw == "" {
		return nil, nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, nil, fmt.Errorf("both from and to are required")
	}
	from, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		return nil, nil, err
	}
	to, err := time.Parse("2006-01-02", toRaw)
	if err != nil {
		return nil, nil, err
	}
	end := to.Add(24*time.Hour - time.Nanosecond)
	return &from, &end, nil
}
