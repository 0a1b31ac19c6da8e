package domain

import (
	"context"
	"time"
)

// User represents a registered user of the application, including the
// credential hash. This is the internal projection: only the repository
// layer and the auth service see PasswordHash. Handlers expose users
// through public DTOs that never carry credential fields.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string

	IsVip                  bool
	VipExpirationDate      *time.Time
	SubscriptionRef        string
	IsSubscriptionCanceled bool

	IsAdmin    bool
	IsDisabled bool

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VipActive reports whether the user's VIP entitlement is live at the
// given instant. A VIP flag without an expiration date is never live.
func (u *User) VipActive(now time.Time) bool {
	return u.IsVip && u.VipExpirationDate != nil && u.VipExpirationDate.After(now)
}

// UserRepository defines persistence operations for users. Entitlement
// fields are mutated only through EntitlementRepository.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	// ClearExpiredVip drops the VIP flag when the stored expiration date
	// has passed. Used for lazy correction on read.
	ClearExpiredVip(ctx context.Context, id int64, now time.Time) error
	List(ctx context.Context) ([]User, error)
	ListVip(ctx context.Context) ([]User, error)
	ListDisabled(ctx context.Context) ([]User, error)
	Disable(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
