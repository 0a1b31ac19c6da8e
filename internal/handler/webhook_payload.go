package handler

import (
	"strings"
	"time"
)

// Minimal representations of the Stripe event payloads the webhook
// consumes, decoded from Event.Data.Raw. Only the fields the state
// machine needs are declared; everything else is ignored.

type checkoutSessionPayload struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Subscription string            `json:"subscription"`
	Invoice      string            `json:"invoice"`
	Metadata     map[string]string `json:"metadata"`
}

// Email returns the customer email, preferring the value entered during
// checkout over the one the session was created with.
func (s *checkoutSessionPayload) Email() string {
	if e := strings.TrimSpace(s.CustomerDetails.Email); e != "" {
		return e
	}
	return strings.TrimSpace(s.CustomerEmail)
}

type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Lines struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

// SubscriptionRef returns the invoice's subscription id. Newer API
// versions nest it under parent.subscription_details; older ones carry
// it at the top level.
func (i *invoicePayload) SubscriptionRef() string {
	if s := strings.TrimSpace(i.Parent.SubscriptionDetails.Subscription); s != "" {
		return s
	}
	return strings.TrimSpace(i.Subscription)
}

// LatestPeriodEnd returns the latest line period end carried in the
// invoice, or the zero time when none is usable.
func (i *invoicePayload) LatestPeriodEnd() time.Time {
	var end int64
	for _, line := range i.Lines.Data {
		if line.Period.End > end {
			end = line.Period.End
		}
	}
	if end <= 0 {
		return time.Time{}
	}
	return time.Unix(end, 0).UTC()
}

type subscriptionPayload struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}
