package customer_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pos-core/internal/customer"
	"pos-core/internal/logger"
	"pos-core/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Customers *customer.Service
	Logger    *logger.Logger
}

func NewHandler(svc *customer.Service, log *logger.Logger) *Handler {
	return &Handler{
		Customers: svc,
		Logger:    log,
	}
}

// GetDebtors lists customers carrying an open balance.
func (h *Handler) GetDebtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := h.Customers.Debtors(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDebtors: %v", err))
		http.Error(w, "Could not load debtors: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(debtors); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDebtors: failed to encode response: %v", err))
	}
}

// GetDebtHistory returns a customer's ledger, newest first.
func (h *Handler) GetDebtHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseID(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "Invalid customer id", http.StatusBadRequest)
		return
	}

	history, err := h.Customers.DebtHistory(r.Context(), customerID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDebtHistory: %v", err))
		http.Error(w, "Could not load history: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(history); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDebtHistory: failed to encode response: %v", err))
	}
}

// PayDebt records a repayment against a customer's balance.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseID(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "Invalid customer id", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount  float64 `json:"amount"`
		Comment string  `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("PayDebt: customerID=%d amount=%.2f", customerID, req.Amount))

	if err := h.Customers.PayDebt(r.Context(), customerID, req.Amount, req.Comment); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PayDebt: %v", err))
		http.Error(w, "Could not record payment: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Payment recorded", nil))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
