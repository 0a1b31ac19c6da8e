package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/payment"
)

// CheckoutService creates hosted checkout sessions for VIP plans. Plans
// are resolved against a server-side price map; price ids never come
// from the client.
type CheckoutService struct {
	provider    payment.Provider
	prices      map[domain.PlanType]string
	frontendURL string
}

// NewCheckoutService creates a new CheckoutService. The prices map binds
// each plan type to its provider price id.
func NewCheckoutService(provider payment.Provider, prices map[domain.PlanType]string, frontendURL string) *CheckoutService {
	return &CheckoutService{
		provider:    provider,
		prices:      prices,
		frontendURL: frontendURL,
	}
}

// CreateSession starts a checkout for the given user and plan and
// returns the provider's redirect URL. The session metadata carries the
// plan and user id so the completion webhook can be correlated before a
// subscription reference exists.
func (s *CheckoutService) CreateSession(ctx context.Context, user *domain.User, plan domain.PlanType) (string, error) {
	if !plan.Valid() {
		return "", fmt.Errorf("%w: unknown plan type %q", domain.ErrInvalidInput, plan)
	}
	priceID := s.prices[plan]
	if priceID == "" {
		return "", fmt.Errorf("no price configured for plan %s", plan)
	}

	url, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutParams{
		PriceID:       priceID,
		Recurring:     plan.Recurring(),
		CustomerEmail: user.Email,
		SuccessURL:    s.frontendURL + "/success",
		CancelURL:     s.frontendURL + "/cancel",
		Metadata: map[string]string{
			"planType": string(plan),
			"priceId":  priceID,
			"userId":   strconv.FormatInt(user.ID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}
