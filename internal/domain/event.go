package domain

import (
	"context"
	"time"
)

// EntitlementEvent is a payment lifecycle event recognized by the
// entitlement state machine. The set of variants is closed: the webhook
// handler maps provider event kinds onto these and drops everything else.
type EntitlementEvent interface {
	// Kind returns the stable event name used in audit records.
	Kind() string
	// Key returns the identifying lookup key for audit records.
	Key() string
}

// SubscriptionActivated signals that checkout completed for a new
// subscription. The user is matched by email; the subscription-to-user
// link does not exist yet. InvoiceID, when present, is the fallback
// source for the expiration date.
type SubscriptionActivated struct {
	Email           string
	SubscriptionRef string
	InvoiceID       string
}

func (SubscriptionActivated) Kind() string  { return "subscription_activated" }
func (e SubscriptionActivated) Key() string { return e.Email }

// LifetimePurchaseCompleted signals that checkout completed for a
// one-time lifetime purchase. There is no subscription object;
// PaymentRef carries the checkout session id and fills the entitlement
// ref, so redeliveries are detected the same way subscription
// activations are.
type LifetimePurchaseCompleted struct {
	Email      string
	PaymentRef string
}

func (LifetimePurchaseCompleted) Kind() string  { return "lifetime_activated" }
func (e LifetimePurchaseCompleted) Key() string { return e.Email }

// SubscriptionRenewed signals a paid invoice on an established
// subscription. InvoicePeriodEnd carries the invoice line period end from
// the event payload, used when the subscription object yields none.
type SubscriptionRenewed struct {
	SubscriptionRef  string
	InvoicePeriodEnd time.Time
}

func (SubscriptionRenewed) Kind() string  { return "subscription_renewed" }
func (e SubscriptionRenewed) Key() string { return e.SubscriptionRef }

// SubscriptionCanceled signals that the provider terminated the
// subscription.
type SubscriptionCanceled struct {
	SubscriptionRef string
}

func (SubscriptionCanceled) Kind() string  { return "subscription_canceled" }
func (e SubscriptionCanceled) Key() string { return e.SubscriptionRef }

// TransitionOutcome describes how the state machine disposed of an event.
type TransitionOutcome string

const (
	// OutcomeApplied means the transition mutated the user's entitlement.
	OutcomeApplied TransitionOutcome = "applied"
	// OutcomeAlreadyProcessed means a duplicate delivery was detected and
	// the state was left untouched.
	OutcomeAlreadyProcessed TransitionOutcome = "already_processed"
	// OutcomeNoMatch means no user matched the event's lookup key.
	OutcomeNoMatch TransitionOutcome = "no_match"
	// OutcomeRejected means the event was valid but the transition failed
	// closed, leaving the user unchanged.
	OutcomeRejected TransitionOutcome = "rejected"
)

// EntitlementRepository performs the transactional entitlement
// transitions. Each method runs a single atomic read-modify-write on the
// target user row together with its audit record; on failure nothing
// persists.
type EntitlementRepository interface {
	// AlreadyActivated reports whether the entitlement ref is already
	// linked to the user with the given email. Callers settle redelivered
	// activations with this read before consulting the payment provider.
	AlreadyActivated(ctx context.Context, email, ref string) (bool, error)
	ActivateSubscription(ctx context.Context, email, subscriptionRef string, expiresAt time.Time) (TransitionOutcome, error)
	ActivateLifetime(ctx context.Context, email, paymentRef string) (TransitionOutcome, error)
	RenewSubscription(ctx context.Context, subscriptionRef string, expiresAt time.Time) (TransitionOutcome, error)
	CancelSubscription(ctx context.Context, subscriptionRef string) (TransitionOutcome, error)
}
