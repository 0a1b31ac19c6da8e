package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/service"
)

// AdminHandler serves administrative user management routes. All routes
// are mounted behind RequireAdmin.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// HandleListUsers lists all users.
// GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		slog.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, toAdminUserDTOs(users))
}

// HandleListVipUsers lists users with the VIP flag set.
// GET /api/admin/vip-users
func (h *AdminHandler) HandleListVipUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListVipUsers(r.Context())
	if err != nil {
		slog.Error("list vip users", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, toAdminUserDTOs(users))
}

// HandleListDisabledUsers lists disabled users.
// GET /api/admin/disabled-users
func (h *AdminHandler) HandleListDisabledUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListDisabledUsers(r.Context())
	if err != nil {
		slog.Error("list disabled users", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, toAdminUserDTOs(users))
}

// HandleDisableUser disables the user identified by email. Disabling
// your own account is rejected.
// PUT /api/admin/users/{email}/disable
func (h *AdminHandler) HandleDisableUser(w http.ResponseWriter, r *http.Request) {
	admin := UserFromContext(r.Context())
	email := r.PathValue("email")

	if err := h.admin.DisableUser(r.Context(), admin.ID, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "You cannot disable your own account.")
			return
		}
		slog.Error("disable user", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User disabled."})
}

// HandleUserLastLogin returns last-login data for a specific user.
// GET /api/admin/users/{email}/last-login
func (h *AdminHandler) HandleUserLastLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	user, err := h.admin.LastLogin(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("get last login", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":      user.Name,
		"email":     user.Email,
		"lastLogin": formatTimePtr(user.LastLogin),
	})
}

// HandleAudit returns recent entitlement audit entries.
// GET /api/admin/audit?limit=N
func (h *AdminHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.admin.RecentAudit(r.Context(), limit)
	if err != nil {
		slog.Error("list audit entries", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}
