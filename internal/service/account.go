package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/payment"
)

// vipBenefits is shown on the profile of users with an active
// entitlement.
var vipBenefits = []string{
	"Access to 3 years of content with no ads.",
	"Access to all content before it's posted for free users.",
	"VIP badge on our Discord community.",
	"Early access to exclusive content and special newsletters.",
	"Priority support for viewing and accessing all content.",
	"Access Telegram VIP content.",
}

// AccountService serves read projections of a user's entitlement state
// and owns account deletion.
type AccountService struct {
	users    domain.UserRepository
	provider payment.Provider
}

// NewAccountService creates a new AccountService.
func NewAccountService(users domain.UserRepository, provider payment.Provider) *AccountService {
	return &AccountService{users: users, provider: provider}
}

// Current returns the user's current state, lazily dropping a VIP flag
// whose expiration date has passed. The state machine only corrects
// staleness at write time, so reads repair it here.
func (s *AccountService) Current(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if user.IsVip && !user.VipActive(now) {
		if err := s.users.ClearExpiredVip(ctx, userID, now); err != nil {
			return nil, fmt.Errorf("clear expired vip: %w", err)
		}
		user.IsVip = false
		slog.Info("expired vip cleared on read", "user_id", userID)
	}
	return user, nil
}

// Benefits returns the benefit list for the given user, empty when the
// entitlement is not active.
func (s *AccountService) Benefits(user *domain.User) []string {
	if !user.IsVip {
		return []string{}
	}
	benefits := make([]string, len(vipBenefits))
	copy(benefits, vipBenefits)
	return benefits
}

// DeleteAccount destroys the user record. Any live subscription is
// cancelled at the provider first on a best-effort basis: a provider
// failure is logged but does not block deletion.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.SubscriptionRef != "" {
		if err := s.provider.CancelSubscription(ctx, user.SubscriptionRef); err != nil {
			slog.Error("cancel subscription before account deletion",
				"user_id", userID, "subscription", user.SubscriptionRef, "error", err)
		}
	}

	return s.users.Delete(ctx, userID)
}
