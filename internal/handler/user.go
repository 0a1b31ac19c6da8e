package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/service"
)

// UserHandler serves the authenticated user's entitlement projections.
type UserHandler struct {
	accounts *service.AccountService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// HandleStatus returns the user's current VIP status.
// GET /api/user/status
// Response: {"isVip":bool,"vipExpirationDate":...}
func (h *UserHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.current(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"isVip":             user.IsVip,
		"vipExpirationDate": formatTimePtr(user.VipExpirationDate),
	})
}

// HandleDashboard returns the dashboard projection.
// GET /api/user/dashboard
func (h *UserHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.current(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(user))
}

// HandleProfile returns the profile projection with the VIP benefit
// list.
// GET /api/user/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.current(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":     user.Name,
		"email":    user.Email,
		"isVip":    user.IsVip,
		"benefits": h.accounts.Benefits(user),
	})
}

// HandleLastLogin returns the user's last login time.
// GET /api/user/last-login
func (h *UserHandler) HandleLastLogin(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"name":      user.Name,
		"email":     user.Email,
		"lastLogin": formatTimePtr(user.LastLogin),
	})
}

// HandleDeleteAccount deletes the authenticated user's account,
// best-effort cancelling any live subscription first.
// DELETE /api/user/account
// Response: 204 No Content
func (h *UserHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.accounts.DeleteAccount(r.Context(), user.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("delete account", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// current loads the user's fresh state with lazy VIP expiry correction.
func (h *UserHandler) current(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := UserFromContext(r.Context())

	fresh, err := h.accounts.Current(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return nil, false
		}
		slog.Error("load user state", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return nil, false
	}
	return fresh, true
}
