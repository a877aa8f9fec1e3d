package tables_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pos-core/internal/logger"
	"pos-core/internal/models"
	"pos-core/internal/tables"
	"pos-core/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Tables *tables.Service
	Logger *logger.Logger
}

func NewHandler(svc *tables.Service, log *logger.Logger) *Handler {
	return &Handler{
		Tables: svc,
		Logger: log,
	}
}

func (h *Handler) GetHalls(w http.ResponseWriter, r *http.Request) {
	halls, err := h.Tables.ListHalls(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetHalls: %v", err))
		http.Error(w, "Could not load halls: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(halls); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetHalls: failed to encode response: %v", err))
	}
}

func (h *Handler) AddHall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Tables.AddHall(r.Context(), req.Name); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddHall: %v", err))
		http.Error(w, "Could not add hall: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Hall added", nil))
}

func (h *Handler) DeleteHall(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "hallID"))
	if err != nil {
		http.Error(w, "Invalid hall id", http.StatusBadRequest)
		return
	}

	if err := h.Tables.DeleteHall(r.Context(), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteHall: %v", err))
		http.Error(w, "Could not delete hall: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTables returns the full grid. The optional hall query narrows it to
// one hall.
func (h *Handler) GetTables(w http.ResponseWriter, r *http.Request) {
	var (
		grid []models.Table
		err  error
	)
	if hallRaw := r.URL.Query().Get("hall"); hallRaw != "" {
		hallID, parseErr := parseID(hallRaw)
		if parseErr != nil {
			http.Error(w, "Invalid hall id", http.StatusBadRequest)
			return
		}
		grid, err = h.Tables.ListTablesByHall(r.Context(), hallID)
	} else {
		grid, err = h.Tables.ListTables(r.Context())
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTables: %v", err))
		http.Error(w, "Could not load tables: "+err.Error(), utils.StatusFromError(err))
		return
	}
	if grid == nil {
		grid = []models.Table{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(grid); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTables: failed to encode response: %v", err))
	}
}

func (h *Handler) AddTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HallID int64  `json:"hallId"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Tables.AddTable(r.Context(), req.HallID, req.Name); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddTable: %v", err))
		http.Error(w, "Could not add table: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Table added", nil))
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "tableID"))
	if err != nil {
		http.Error(w, "Invalid table id", http.StatusBadRequest)
		return
	}

	if err := h.Tables.DeleteTable(r.Context(), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteTable: %v", err))
		http.Error(w, "Could not delete table: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateTableStatus moves a table between free, occupied and payment.
func (h *Handler) UpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "tableID"))
	if err != nil {
		http.Error(w, "Invalid table id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
		Guests int    `json:"guests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateTableStatus: tableID=%d status=%s", id, req.Status))

	if err := h.Tables.UpdateStatus(r.Context(), id, req.Status, req.Guests); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateTableStatus: %v", err))
		http.Error(w, "Could not update table: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Table updated", nil))
}

// CloseTable force-frees a table that has no open order lines.
func (h *Handler) CloseTable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "tableID"))
	if err != nil {
		http.Error(w, "Invalid table id", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CloseTable: tableID=%d", id))

	if err := h.Tables.CloseTable(r.Context(), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CloseTable: %v", err))
		http.Error(w, "Could not close table: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Table closed", nil))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
