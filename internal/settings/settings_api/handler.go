package settings_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pos-core/internal/logger"
	"pos-core/internal/models"
	"pos-core/internal/settings"
	"pos-core/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Settings *settings.Service
	Logger   *logger.Logger
}

func NewHandler(svc *settings.Service, log *logger.Logger) *Handler {
	return &Handler{
		Settings: svc,
		Logger:   log,
	}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.Settings.All(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSettings: %v", err))
		http.Error(w, "Could not load settings: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(values); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSettings: failed to encode response: %v", err))
	}
}

// SaveSettings upserts arbitrary key/value pairs. The check counter key
// is rejected; it only moves when a check number is allocated.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Settings.Save(r.Context(), values); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveSettings: %v", err))
		http.Error(w, "Could not save settings: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Settings saved", nil))
}

func (h *Handler) GetKitchens(w http.ResponseWriter, r *http.Request) {
	kitchens, err := h.Settings.Kitchens(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetKitchens: %v", err))
		http.Error(w, "Could not load kitchens: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(kitchens); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetKitchens: failed to encode response: %v", err))
	}
}

func (h *Handler) SaveKitchen(w http.ResponseWriter, r *http.Request) {
	var kitchen models.Kitchen
	if err := json.NewDecoder(r.Body).Decode(&kitchen); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Settings.SaveKitchen(r.Context(), kitchen); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveKitchen: %v", err))
		http.Error(w, "Could not save kitchen: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Kitchen saved", nil))
}

func (h *Handler) DeleteKitchen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "kitchenID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid kitchen id", http.StatusBadRequest)
		return
	}

	if err := h.Settings.DeleteKitchen(r.Context(), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteKitchen: %v", err))
		http.Error(w, "Could not delete kitchen: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
