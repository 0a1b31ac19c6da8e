package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/payment"
	"github.com/mrezende/membergate/internal/service"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// WebhookHandler receives Stripe lifecycle events, verifies their
// signature, and feeds the recognized kinds to the entitlement state
// machine.
//
// Signature verification is the authentication mechanism for this
// endpoint; an unverifiable payload is never parsed further.
type WebhookHandler struct {
	secret       string
	entitlements *service.EntitlementService
}

// NewWebhookHandler creates a Stripe webhook HTTP handler.
func NewWebhookHandler(secret string, entitlements *service.EntitlementService) *WebhookHandler {
	return &WebhookHandler{secret: secret, entitlements: entitlements}
}

// ServeHTTP verifies the Stripe signature and dispatches the event.
// Processing failures return non-2xx so Stripe redelivers; unrecognized
// event kinds are acknowledged and ignored.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.secret) == "" {
		writeError(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		writeError(w, http.StatusBadRequest, "missing Stripe signature")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid Stripe signature")
		return
	}

	if err := h.handleEvent(r, &event); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrUnresolvedExpiration):
			status = http.StatusBadGateway
		}
		slog.Error("webhook processing failed",
			"event_id", event.ID, "type", string(event.Type), "error", err)
		writeError(w, status, "processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) handleEvent(r *http.Request, event *stripelib.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.activated(r, session)

	case "invoice.paid":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return h.renewed(r, inv)

	case "customer.subscription.deleted":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.canceled(r, sub)

	default:
		slog.Info("webhook ignored (unhandled type)",
			"type", string(event.Type), "event_id", event.ID)
		return nil
	}
}

func (h *WebhookHandler) activated(r *http.Request, session checkoutSessionPayload) error {
	email := service.NormalizeEmail(session.Email())
	if email == "" {
		return fmt.Errorf("%w: checkout session missing customer email", domain.ErrInvalidInput)
	}

	// Payment mode is a one-time lifetime purchase: the session carries no
	// subscription, so the session id itself becomes the entitlement ref.
	if session.Mode == "payment" {
		if !payment.IsSafeRef(session.ID) {
			return fmt.Errorf("%w: malformed checkout session id", domain.ErrInvalidInput)
		}
		_, err := h.entitlements.Apply(r.Context(), domain.LifetimePurchaseCompleted{
			Email:      email,
			PaymentRef: session.ID,
		})
		return err
	}

	if strings.TrimSpace(session.Subscription) == "" {
		return fmt.Errorf("%w: checkout session missing subscription", domain.ErrInvalidInput)
	}
	if !payment.IsSafeRef(session.Subscription) {
		return fmt.Errorf("%w: malformed subscription id", domain.ErrInvalidInput)
	}

	_, err := h.entitlements.Apply(r.Context(), domain.SubscriptionActivated{
		Email:           email,
		SubscriptionRef: session.Subscription,
		InvoiceID:       session.Invoice,
	})
	return err
}

func (h *WebhookHandler) renewed(r *http.Request, inv invoicePayload) error {
	subscriptionRef := inv.SubscriptionRef()
	if subscriptionRef == "" {
		// One-time payments produce invoices without a subscription.
		slog.Info("invoice without subscription ignored", "invoice_id", inv.ID)
		return nil
	}
	if !payment.IsSafeRef(subscriptionRef) {
		return fmt.Errorf("%w: malformed subscription id", domain.ErrInvalidInput)
	}

	_, err := h.entitlements.Apply(r.Context(), domain.SubscriptionRenewed{
		SubscriptionRef:  subscriptionRef,
		InvoicePeriodEnd: inv.LatestPeriodEnd(),
	})
	return err
}

func (h *WebhookHandler) canceled(r *http.Request, sub subscriptionPayload) error {
	if !payment.IsSafeRef(sub.ID) {
		return fmt.Errorf("%w: subscription event missing or malformed id", domain.ErrInvalidInput)
	}

	_, err := h.entitlements.Apply(r.Context(), domain.SubscriptionCanceled{
		SubscriptionRef: sub.ID,
	})
	return err
}
