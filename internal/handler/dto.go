package handler

import (
	"time"

	"github.com/mrezende/membergate/internal/domain"
)

// UserDTO is the public JSON projection of a user. It never carries the
// credential hash or the raw subscription reference.
type UserDTO struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	IsVip             bool    `json:"isVip"`
	IsAdmin           bool    `json:"isAdmin"`
	VipExpirationDate *string `json:"vipExpirationDate"`
	LastLogin         *string `json:"lastLogin"`
	CreatedAt         string  `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		IsVip:             u.IsVip,
		IsAdmin:           u.IsAdmin,
		VipExpirationDate: formatTimePtr(u.VipExpirationDate),
		LastLogin:         formatTimePtr(u.LastLogin),
		CreatedAt:         u.CreatedAt.Format(time.RFC3339),
	}
}

// DashboardDTO is the dashboard projection. HasSubscription only tells
// the frontend whether a live subscription exists; the reference itself
// stays server-side.
type DashboardDTO struct {
	Name                   string  `json:"name"`
	Email                  string  `json:"email"`
	IsVip                  bool    `json:"isVip"`
	VipExpirationDate      *string `json:"vipExpirationDate"`
	HasSubscription        bool    `json:"hasSubscription"`
	IsSubscriptionCanceled bool    `json:"isSubscriptionCanceled"`
	LastLogin              *string `json:"lastLogin"`
	CreatedAt              string  `json:"createdAt"`
}

func toDashboardDTO(u *domain.User) DashboardDTO {
	return DashboardDTO{
		Name:                   u.Name,
		Email:                  u.Email,
		IsVip:                  u.IsVip,
		VipExpirationDate:      formatTimePtr(u.VipExpirationDate),
		HasSubscription:        u.SubscriptionRef != "",
		IsSubscriptionCanceled: u.IsSubscriptionCanceled,
		LastLogin:              formatTimePtr(u.LastLogin),
		CreatedAt:              u.CreatedAt.Format(time.RFC3339),
	}
}

// AdminUserDTO is the admin list projection.
type AdminUserDTO struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	IsVip             bool    `json:"isVip"`
	IsDisabled        bool    `json:"isDisabled"`
	VipExpirationDate *string `json:"vipExpirationDate"`
	LastLogin         *string `json:"lastLogin"`
	CreatedAt         string  `json:"createdAt"`
}

func toAdminUserDTOs(users []domain.User) []AdminUserDTO {
	dtos := make([]AdminUserDTO, len(users))
	for i := range users {
		u := &users[i]
		dtos[i] = AdminUserDTO{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			IsVip:             u.IsVip,
			IsDisabled:        u.IsDisabled,
			VipExpirationDate: formatTimePtr(u.VipExpirationDate),
			LastLogin:         formatTimePtr(u.LastLogin),
			CreatedAt:         u.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

// AuditEntryDTO is the JSON representation of an entitlement audit
// entry.
type AuditEntryDTO struct {
	ID        int64  `json:"id"`
	EventKind string `json:"eventKind"`
	EventKey  string `json:"eventKey"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"createdAt"`
}

func toAuditEntryDTOs(entries []domain.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:        e.ID,
			EventKind: e.EventKind,
			EventKey:  e.EventKey,
			Outcome:   string(e.Outcome),
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
