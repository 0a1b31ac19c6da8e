package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/subscription"
)

// callTimeout bounds every outbound Stripe call. A timed-out webhook
// transition returns non-2xx so Stripe redelivers.
const callTimeout = 15 * time.Second

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	createSession      func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSubscription    func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	getInvoice         func(id string, params *stripe.InvoiceParams) (*stripe.Invoice, error)
	cancelSubscription func(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

// NewStripeProvider configures the Stripe SDK with the given secret key
// and returns a provider backed by it.
func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = strings.TrimSpace(secretKey)
	return &StripeProvider{
		createSession:      session.New,
		getSubscription:    subscription.Get,
		getInvoice:         invoice.Get,
		cancelSubscription: subscription.Cancel,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	mode := stripe.CheckoutSessionModePayment
	if params.Recurring {
		mode = stripe.CheckoutSessionModeSubscription
	}
	sessionParams := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: params.Metadata,
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	sess, err := p.createSession(sessionParams)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if sess == nil || strings.TrimSpace(sess.URL) == "" {
		return "", fmt.Errorf("stripe returned empty checkout URL")
	}
	return strings.TrimSpace(sess.URL), nil
}

func (p *StripeProvider) SubscriptionPeriodEnd(ctx context.Context, subscriptionRef string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	sub, err := p.getSubscription(subscriptionRef, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("retrieve subscription %s: %w", subscriptionRef, err)
	}

	var end int64
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.CurrentPeriodEnd > end {
				end = item.CurrentPeriodEnd
			}
		}
	}
	return safeUnixTime(end), nil
}

func (p *StripeProvider) InvoicePeriodEnd(ctx context.Context, invoiceID string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	inv, err := p.getInvoice(invoiceID, &stripe.InvoiceParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("retrieve invoice %s: %w", invoiceID, err)
	}

	var end int64
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > end {
				end = line.Period.End
			}
		}
	}
	return safeUnixTime(end), nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := p.cancelSubscription(subscriptionRef, &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionRef, err)
	}
	return nil
}

// safeUnixTime converts a Unix timestamp to a time.Time, returning the
// zero time for non-positive inputs so garbage values fail closed.
func safeUnixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// IsSafeRef validates that a provider identifier (sub_..., in_...) is
// safe to use as a lookup key.
func IsSafeRef(ref string) bool {
	if len(ref) < 4 || len(ref) > 128 {
		return false
	}
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}
