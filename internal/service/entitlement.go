package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/payment"
)

// EntitlementService converts payment lifecycle events into entitlement
// transitions. Deliveries are at-least-once and unordered; the repository
// transitions are idempotent and atomic, so redelivered or racing events
// never corrupt a user's entitlement.
type EntitlementService struct {
	entitlements domain.EntitlementRepository
	audit        domain.AuditRepository
	provider     payment.Provider
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(entitlements domain.EntitlementRepository, audit domain.AuditRepository, provider payment.Provider) *EntitlementService {
	return &EntitlementService{
		entitlements: entitlements,
		audit:        audit,
		provider:     provider,
	}
}

// Apply dispatches a lifecycle event to its transition and returns the
// outcome. Failed transitions leave the user's entitlement untouched.
func (s *EntitlementService) Apply(ctx context.Context, event domain.EntitlementEvent) (domain.TransitionOutcome, error) {
	switch e := event.(type) {
	case domain.SubscriptionActivated:
		return s.activate(ctx, e)
	case domain.LifetimePurchaseCompleted:
		return s.activateLifetime(ctx, e)
	case domain.SubscriptionRenewed:
		return s.renew(ctx, e)
	case domain.SubscriptionCanceled:
		return s.cancel(ctx, e)
	default:
		return "", fmt.Errorf("unknown entitlement event %T", event)
	}
}

func (s *EntitlementService) activate(ctx context.Context, e domain.SubscriptionActivated) (domain.TransitionOutcome, error) {
	// Redeliveries are settled before the provider is consulted: a
	// duplicate event must succeed even while the provider is down.
	dup, err := s.checkDuplicate(ctx, e, e.Email, e.SubscriptionRef)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	if dup {
		slog.Info("activation already processed", "email", e.Email, "subscription", e.SubscriptionRef)
		return domain.OutcomeAlreadyProcessed, nil
	}

	expiresAt, err := s.resolvePeriodEnd(ctx, e.SubscriptionRef, e.InvoiceID, time.Time{})
	if err != nil {
		s.recordAudit(ctx, e, domain.OutcomeRejected, err.Error())
		return domain.OutcomeRejected, err
	}

	outcome, err := s.entitlements.ActivateSubscription(ctx, e.Email, e.SubscriptionRef, expiresAt)
	if err != nil {
		return domain.OutcomeRejected, err
	}

	// A racing delivery can still lose inside the transition.
	if outcome == domain.OutcomeAlreadyProcessed {
		slog.Info("activation already processed", "email", e.Email, "subscription", e.SubscriptionRef)
	} else {
		slog.Info("vip activated", "email", e.Email, "subscription", e.SubscriptionRef, "expires_at", expiresAt)
	}
	return outcome, nil
}

func (s *EntitlementService) activateLifetime(ctx context.Context, e domain.LifetimePurchaseCompleted) (domain.TransitionOutcome, error) {
	dup, err := s.checkDuplicate(ctx, e, e.Email, e.PaymentRef)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	if dup {
		slog.Info("lifetime purchase already processed", "email", e.Email, "payment", e.PaymentRef)
		return domain.OutcomeAlreadyProcessed, nil
	}

	outcome, err := s.entitlements.ActivateLifetime(ctx, e.Email, e.PaymentRef)
	if err != nil {
		return domain.OutcomeRejected, err
	}

	if outcome == domain.OutcomeAlreadyProcessed {
		slog.Info("lifetime purchase already processed", "email", e.Email, "payment", e.PaymentRef)
	} else {
		slog.Info("lifetime vip activated", "email", e.Email, "payment", e.PaymentRef)
	}
	return outcome, nil
}

// checkDuplicate looks the event's entitlement ref up against the user
// before any provider call, auditing the result. An unknown user is a
// rejection here, not in the transition.
func (s *EntitlementService) checkDuplicate(ctx context.Context, e domain.EntitlementEvent, email, ref string) (bool, error) {
	dup, err := s.entitlements.AlreadyActivated(ctx, email, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.recordAudit(ctx, e, domain.OutcomeRejected, "no user with email")
			slog.Warn("activation event for unknown user", "email", email, "ref", ref)
		}
		return false, err
	}
	if dup {
		s.recordAudit(ctx, e, domain.OutcomeAlreadyProcessed, "duplicate delivery for "+ref)
	}
	return dup, nil
}

func (s *EntitlementService) renew(ctx context.Context, e domain.SubscriptionRenewed) (domain.TransitionOutcome, error) {
	expiresAt, err := s.resolvePeriodEnd(ctx, e.SubscriptionRef, "", e.InvoicePeriodEnd)
	if err != nil {
		s.recordAudit(ctx, e, domain.OutcomeRejected, err.Error())
		return domain.OutcomeRejected, err
	}

	outcome, err := s.entitlements.RenewSubscription(ctx, e.SubscriptionRef, expiresAt)
	if err != nil {
		return domain.OutcomeRejected, err
	}

	switch outcome {
	case domain.OutcomeNoMatch:
		// Not an error: the invoice may have raced registration. The
		// provider will redeliver renewals on the next billing cycle.
		slog.Info("renewal event without matching user", "subscription", e.SubscriptionRef)
	case domain.OutcomeAlreadyProcessed:
		slog.Info("renewal already processed", "subscription", e.SubscriptionRef)
	default:
		slog.Info("vip renewed", "subscription", e.SubscriptionRef, "expires_at", expiresAt)
	}
	return outcome, nil
}

func (s *EntitlementService) cancel(ctx context.Context, e domain.SubscriptionCanceled) (domain.TransitionOutcome, error) {
	outcome, err := s.entitlements.CancelSubscription(ctx, e.SubscriptionRef)
	if err != nil {
		return domain.OutcomeRejected, err
	}

	if outcome == domain.OutcomeNoMatch {
		slog.Info("cancellation event without matching user", "subscription", e.SubscriptionRef)
	} else {
		slog.Info("vip canceled", "subscription", e.SubscriptionRef)
	}
	return outcome, nil
}

// resolvePeriodEnd resolves the entitlement expiration for a
// subscription. Primary source is the subscription object's current
// period end; fallback is the invoice (by id, or a period end already
// carried in the event payload). When neither yields a usable timestamp
// the transition fails closed.
func (s *EntitlementService) resolvePeriodEnd(ctx context.Context, subscriptionRef, invoiceID string, invoicePeriodEnd time.Time) (time.Time, error) {
	end, err := s.provider.SubscriptionPeriodEnd(ctx, subscriptionRef)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve period end: %w", err)
	}
	if end.IsZero() && invoiceID != "" {
		end, err = s.provider.InvoicePeriodEnd(ctx, invoiceID)
		if err != nil {
			return time.Time{}, fmt.Errorf("resolve period end from invoice: %w", err)
		}
	}
	if end.IsZero() && !invoicePeriodEnd.IsZero() {
		end = invoicePeriodEnd
	}
	if end.IsZero() {
		return time.Time{}, fmt.Errorf("%w: subscription %s", domain.ErrUnresolvedExpiration, subscriptionRef)
	}
	return end.UTC(), nil
}

// recordAudit writes an audit entry for an event the state machine
// disposed of before or instead of a transition transaction. Audit
// failures are logged but never mask the disposition.
func (s *EntitlementService) recordAudit(ctx context.Context, event domain.EntitlementEvent, outcome domain.TransitionOutcome, detail string) {
	err := s.audit.Append(ctx, &domain.AuditEntry{
		EventKind: event.Kind(),
		EventKey:  event.Key(),
		Outcome:   outcome,
		Detail:    detail,
	})
	if err != nil {
		slog.Error("append audit entry", "event", event.Kind(), "error", err)
	}
}
