package staff_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pos-core/internal/auth"
	"pos-core/internal/logger"
	"pos-core/internal/staff"
	"pos-core/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Staff  *staff.Service
	Tokens *auth.TokenManager
	Logger *logger.Logger
}

func NewHandler(svc *staff.Service, tokens *auth.TokenManager, log *logger.Logger) *Handler {
	return &Handler{
		Staff:  svc,
		Tokens: tokens,
		Logger: log,
	}
}

// Login exchanges a PIN for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ref, err := h.Staff.Login(r.Context(), req.PIN)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Login: rejected PIN attempt: %v", err))
		http.Error(w, "Invalid PIN", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Mint(ref.ID, ref.Name, ref.Role)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Login: failed to mint token: %v", err))
		http.Error(w, "Could not create session", http.StatusInternalServerError)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Login: staff %d (%s) signed in", ref.ID, ref.Name))

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Signed in", map[string]interface{}{
		"token": token,
		"staff": ref,
	}))
}

func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	list, err := h.Staff.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStaff: %v", err))
		http.Error(w, "Could not load staff: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStaff: failed to encode response: %v", err))
	}
}

// SaveStaff creates or updates a staff member. A zero id creates, and an
// empty PIN on update keeps the existing credential.
func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		PIN  string `json:"pin"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Staff.Save(r.Context(), req.ID, req.Name, req.PIN, req.Role); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveStaff: %v", err))
		http.Error(w, "Could not save staff: "+err.Error(), utils.StatusFromError(err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Staff saved", nil))
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "staffID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid staff id", http.StatusBadRequest)
		return
	}

	if err := h.Staff.Delete(r.Context(), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteStaff: %v", err))
		http.Error(w, "Could not delete staff: "+err.Error(), utils.StatusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
