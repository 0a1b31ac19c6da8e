package service

import (
	"context"
	"fmt"

	"github.com/mrezende/membergate/internal/domain"
)

// AdminService implements administrative user management.
type AdminService struct {
	users domain.UserRepository
	audit domain.AuditRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(users domain.UserRepository, audit domain.AuditRepository) *AdminService {
	return &AdminService{users: users, audit: audit}
}

// ListUsers returns all users.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// ListVipUsers returns users with the VIP flag set.
func (s *AdminService) ListVipUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListVip(ctx)
}

// ListDisabledUsers returns disabled users.
func (s *AdminService) ListDisabledUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListDisabled(ctx)
}

// DisableUser disables the user with the given email and drops their VIP
// flag. Admins cannot disable their own account.
func (s *AdminService) DisableUser(ctx context.Context, adminID int64, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user.ID == adminID {
		return fmt.Errorf("%w: cannot disable your own account", domain.ErrInvalidInput)
	}
	return s.users.Disable(ctx, user.ID)
}

// LastLogin returns the user identified by email, for the last-login
// admin view.
func (s *AdminService) LastLogin(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

// RecentAudit returns the most recent entitlement audit entries.
func (s *AdminService) RecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.audit.ListRecent(ctx, limit)
}
