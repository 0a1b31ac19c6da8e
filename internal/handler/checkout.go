package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/service"
)

// CheckoutHandler starts hosted checkout flows for VIP plans.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// HandleCreateSession creates a checkout session for the authenticated
// user. The request carries only the plan type; the email comes from the
// bearer token and the price id from server configuration.
// POST /api/pay/checkout
// Request:  {"planType":"monthly"|"annual"|"lifetime"}
// Response: {"url":"..."} or {"error":"..."}
func (h *CheckoutHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanType string `json:"planType"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := UserFromContext(r.Context())

	url, err := h.checkout.CreateSession(r.Context(), user, domain.PlanType(req.PlanType))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid plan type.")
			return
		}
		slog.Error("create checkout session", "user_id", user.ID, "plan", req.PlanType, "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create checkout session.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
