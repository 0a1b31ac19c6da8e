package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mrezende/membergate/internal/domain"
)

// EntitlementRepository implements the entitlement transitions on SQLite.
// Each transition is a single transaction covering the user row
// read-modify-write and its audit record; the single-connection pool
// serializes concurrent webhook deliveries so the read is effectively an
// exclusive lock for the duration of the transaction.
type EntitlementRepository struct {
	db *sql.DB
}

// AlreadyActivated reports whether the entitlement ref is already linked
// to the user with the given email. This is a plain read: redelivered
// activations are settled here without opening a write transaction.
func (r *EntitlementRepository) AlreadyActivated(ctx context.Context, email, ref string) (bool, error) {
	var currentRef sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT subscription_ref FROM users WHERE email = ?`, email,
	).Scan(&currentRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("query user by email: %w", err)
	}
	return currentRef.Valid && currentRef.String == ref, nil
}

func (r *EntitlementRepository) ActivateSubscription(ctx context.Context, email, subscriptionRef string, expiresAt time.Time) (domain.TransitionOutcome, error) {
	return r.activate(ctx, domain.SubscriptionActivated{}.Kind(), email, subscriptionRef, expiresAt)
}

// ActivateLifetime links a one-time lifetime purchase to the user. The
// stored expiration is the lifetime sentinel, so the entitlement never
// lapses.
func (r *EntitlementRepository) ActivateLifetime(ctx context.Context, email, paymentRef string) (domain.TransitionOutcome, error) {
	return r.activate(ctx, domain.LifetimePurchaseCompleted{}.Kind(), email, paymentRef, domain.LifetimeExpiration)
}

func (r *EntitlementRepository) activate(ctx context.Context, kind, email, ref string, expiresAt time.Time) (domain.TransitionOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id         int64
		currentRef sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, subscription_ref FROM users WHERE email = ?`, email,
	).Scan(&id, &currentRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query user by email: %w", err)
	}

	// Duplicate delivery: the ref is already linked to this user. Guards
	// races between deliveries that both passed the pre-transaction check.
	if currentRef.Valid && currentRef.String == ref {
		outcome := domain.OutcomeAlreadyProcessed
		if err := r.finish(ctx, tx, kind, email, outcome, "duplicate delivery for "+ref); err != nil {
			return "", err
		}
		return outcome, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET is_vip = 1, vip_expiration_date = ?,
		        subscription_ref = ?, is_subscription_canceled = 0, updated_at = ?
		 WHERE id = ?`,
		expiresAt.UTC(), ref, time.Now().UTC(), id,
	)
	if err != nil {
		return "", fmt.Errorf("activate entitlement: %w", err)
	}

	outcome := domain.OutcomeApplied
	if err := r.finish(ctx, tx, kind, email, outcome, "activated "+ref); err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *EntitlementRepository) RenewSubscription(ctx context.Context, subscriptionRef string, expiresAt time.Time) (domain.TransitionOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	kind := domain.SubscriptionRenewed{}.Kind()

	var (
		id            int64
		vipExpiration sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, vip_expiration_date FROM users WHERE subscription_ref = ?`, subscriptionRef,
	).Scan(&id, &vipExpiration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome := domain.OutcomeNoMatch
			if err := r.finish(ctx, tx, kind, subscriptionRef, outcome, "no user with subscription"); err != nil {
				return "", err
			}
			return outcome, nil
		}
		return "", fmt.Errorf("query user by subscription: %w", err)
	}

	// Duplicate invoice delivery: the stored expiry already matches.
	if vipExpiration.Valid && vipExpiration.Time.Unix() == expiresAt.Unix() {
		outcome := domain.OutcomeAlreadyProcessed
		if err := r.finish(ctx, tx, kind, subscriptionRef, outcome, "expiry unchanged"); err != nil {
			return "", err
		}
		return outcome, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET is_vip = 1, vip_expiration_date = ?, updated_at = ? WHERE id = ?`,
		expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return "", fmt.Errorf("renew subscription: %w", err)
	}

	outcome := domain.OutcomeApplied
	if err := r.finish(ctx, tx, kind, subscriptionRef, outcome, "renewed until "+expiresAt.UTC().Format(time.RFC3339)); err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *EntitlementRepository) CancelSubscription(ctx context.Context, subscriptionRef string) (domain.TransitionOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	kind := domain.SubscriptionCanceled{}.Kind()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE subscription_ref = ?`, subscriptionRef,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome := domain.OutcomeNoMatch
			if err := r.finish(ctx, tx, kind, subscriptionRef, outcome, "no user with subscription"); err != nil {
				return "", err
			}
			return outcome, nil
		}
		return "", fmt.Errorf("query user by subscription: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET is_vip = 0, vip_expiration_date = NULL,
		        subscription_ref = NULL, is_subscription_canceled = 1, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return "", fmt.Errorf("cancel subscription: %w", err)
	}

	outcome := domain.OutcomeApplied
	if err := r.finish(ctx, tx, kind, subscriptionRef, outcome, "subscription canceled"); err != nil {
		return "", err
	}
	return outcome, nil
}

// finish writes the audit record for the transition and commits.
func (r *EntitlementRepository) finish(ctx context.Context, tx *sql.Tx, kind, key string, outcome domain.TransitionOutcome, detail string) error {
	if err := insertAudit(ctx, tx, &domain.AuditEntry{
		EventKind: kind,
		EventKey:  key,
		Outcome:   outcome,
		Detail:    detail,
	}); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
