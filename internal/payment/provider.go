// Package payment wraps the outbound payment-provider API behind a small
// interface so services and tests do not depend on the Stripe SDK.
package payment

import (
	"context"
	"time"
)

// CheckoutParams describes a hosted checkout session to create.
type CheckoutParams struct {
	PriceID       string
	Recurring     bool
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Provider is the outbound payment-provider API surface the backend
// needs. All calls are short-lived; implementations must honor the
// context deadline and return an error on timeout so callers can surface
// a retryable failure.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout flow and returns its
	// redirect URL.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	// SubscriptionPeriodEnd returns the current period end of the given
	// subscription. A zero time with nil error means the provider exposed
	// no usable period end.
	SubscriptionPeriodEnd(ctx context.Context, subscriptionRef string) (time.Time, error)
	// InvoicePeriodEnd returns the latest line period end of the given
	// invoice. Zero time with nil error means none was present.
	InvoicePeriodEnd(ctx context.Context, invoiceID string) (time.Time, error)
	// CancelSubscription cancels the subscription immediately.
	CancelSubscription(ctx context.Context, subscriptionRef string) error
}
