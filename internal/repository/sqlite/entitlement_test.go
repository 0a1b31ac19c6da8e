package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/repository/sqlite"
)

func auditOutcomes(t *testing.T, db *sqlite.DB) []domain.TransitionOutcome {
	t.Helper()
	entries, err := db.Audit().ListRecent(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	outcomes := make([]domain.TransitionOutcome, len(entries))
	for i, e := range entries {
		outcomes[i] = e.Outcome
	}
	return outcomes
}

func TestEntitlement_Activate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	outcome, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end)
	if err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}
	if outcome != domain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsVip {
		t.Fatal("expected IsVip=true")
	}
	if got.VipExpirationDate == nil || got.VipExpirationDate.Unix() != end.Unix() {
		t.Fatalf("expected expiry %v, got %v", end, got.VipExpirationDate)
	}
	if got.SubscriptionRef != "sub_1" {
		t.Fatalf("expected subscription ref sub_1, got %q", got.SubscriptionRef)
	}
}

func TestEntitlement_Activate_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	end := time.Now().Add(24 * time.Hour)
	_, err := db.Entitlements().ActivateSubscription(context.Background(), "nobody@example.com", "sub_1", end)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A failed transition leaves no audit record from the repository; the
	// service records the rejection separately.
	if got := auditOutcomes(t, db); len(got) != 0 {
		t.Fatalf("expected no audit entries, got %v", got)
	}
}

func TestEntitlement_Activate_DuplicateDelivery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end); err != nil {
		t.Fatalf("first ActivateSubscription: %v", err)
	}
	before, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Redelivery with a different period end must still be a no-op.
	outcome, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end.Add(time.Hour))
	if err != nil {
		t.Fatalf("second ActivateSubscription: %v", err)
	}
	if outcome != domain.OutcomeAlreadyProcessed {
		t.Fatalf("expected already_processed, got %s", outcome)
	}

	after, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.VipExpirationDate.Unix() != before.VipExpirationDate.Unix() {
		t.Fatal("duplicate delivery changed the expiration date")
	}

	outcomes := auditOutcomes(t, db)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(outcomes))
	}
	// ListRecent returns newest first.
	if outcomes[0] != domain.OutcomeAlreadyProcessed || outcomes[1] != domain.OutcomeApplied {
		t.Fatalf("unexpected audit outcomes: %v", outcomes)
	}
}

func TestEntitlement_Renew_Extends(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	first := time.Now().Add(30 * 24 * time.Hour).UTC()
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", first); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}

	second := time.Now().Add(60 * 24 * time.Hour).UTC()
	outcome, err := db.Entitlements().RenewSubscription(ctx, "sub_1", second)
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if outcome != domain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsVip {
		t.Fatal("expected IsVip to remain true")
	}
	if got.VipExpirationDate.Unix() != second.Unix() {
		t.Fatalf("expected expiry %v, got %v", second, got.VipExpirationDate)
	}
}

func TestEntitlement_Renew_SameExpiryIsNoop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}

	outcome, err := db.Entitlements().RenewSubscription(ctx, "sub_1", end)
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if outcome != domain.OutcomeAlreadyProcessed {
		t.Fatalf("expected already_processed, got %s", outcome)
	}
}

func TestEntitlement_Renew_NoMatchingUser(t *testing.T) {
	db := newTestDB(t)

	end := time.Now().Add(24 * time.Hour)
	outcome, err := db.Entitlements().RenewSubscription(context.Background(), "sub_ghost", end)
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if outcome != domain.OutcomeNoMatch {
		t.Fatalf("expected no_match, got %s", outcome)
	}
}

func TestEntitlement_Cancel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	end := time.Now().Add(30 * 24 * time.Hour)
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}

	outcome, err := db.Entitlements().CancelSubscription(ctx, "sub_1")
	if err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if outcome != domain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsVip {
		t.Fatal("expected IsVip=false after cancel")
	}
	if got.VipExpirationDate != nil {
		t.Fatalf("expected nil expiry, got %v", got.VipExpirationDate)
	}
	if got.SubscriptionRef != "" {
		t.Fatalf("expected cleared subscription ref, got %q", got.SubscriptionRef)
	}
	if !got.IsSubscriptionCanceled {
		t.Fatal("expected IsSubscriptionCanceled=true")
	}
}

func TestEntitlement_Cancel_NoMatchingUser(t *testing.T) {
	db := newTestDB(t)

	outcome, err := db.Entitlements().CancelSubscription(context.Background(), "sub_ghost")
	if err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if outcome != domain.OutcomeNoMatch {
		t.Fatalf("expected no_match, got %s", outcome)
	}
}

// Reactivation after cancellation must work with a new subscription ref.
func TestEntitlement_ReactivateAfterCancel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	end := time.Now().Add(30 * 24 * time.Hour)
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}
	if _, err := db.Entitlements().CancelSubscription(ctx, "sub_1"); err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}

	outcome, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_2", end)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if outcome != domain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsVip || got.SubscriptionRef != "sub_2" {
		t.Fatalf("unexpected state after reactivation: IsVip=%v ref=%q", got.IsVip, got.SubscriptionRef)
	}
	if got.IsSubscriptionCanceled {
		t.Fatal("expected IsSubscriptionCanceled reset on reactivation")
	}
}

// The invariant: any user with IsVip=true has a non-null expiration.
func TestEntitlement_VipAlwaysHasExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u1 := createUser(t, db, "u1@example.com")
	createUser(t, db, "u2@example.com")

	end := time.Now().Add(24 * time.Hour)
	if _, err := db.Entitlements().ActivateSubscription(ctx, u1.Email, "sub_1", end); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}
	if _, err := db.Entitlements().RenewSubscription(ctx, "sub_1", end.Add(24*time.Hour)); err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}

	users, err := db.Users().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, u := range users {
		if u.IsVip && u.VipExpirationDate == nil {
			t.Fatalf("user %s is VIP without expiration date", u.Email)
		}
	}
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, kind := range []string{"subscription_activated", "subscription_renewed"} {
		err := db.Audit().Append(ctx, &domain.AuditEntry{
			EventKind: kind,
			EventKey:  "sub_1",
			Outcome:   domain.OutcomeRejected,
			Detail:    "test",
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := db.Audit().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EventKind != "subscription_renewed" {
		t.Fatalf("expected newest first, got %s", entries[0].EventKind)
	}
	if entries[0].ID == 0 || entries[0].CreatedAt.IsZero() {
		t.Fatal("expected ID and CreatedAt to be set")
	}
}

func TestEntitlement_AlreadyActivated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	dup, err := db.Entitlements().AlreadyActivated(ctx, user.Email, "sub_1")
	if err != nil {
		t.Fatalf("AlreadyActivated: %v", err)
	}
	if dup {
		t.Fatal("nothing is linked yet")
	}

	end := time.Now().Add(30 * 24 * time.Hour)
	if _, err := db.Entitlements().ActivateSubscription(ctx, user.Email, "sub_1", end); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}

	dup, err = db.Entitlements().AlreadyActivated(ctx, user.Email, "sub_1")
	if err != nil {
		t.Fatalf("AlreadyActivated: %v", err)
	}
	if !dup {
		t.Fatal("expected the linked ref to be reported as a duplicate")
	}

	dup, err = db.Entitlements().AlreadyActivated(ctx, user.Email, "sub_other")
	if err != nil {
		t.Fatalf("AlreadyActivated: %v", err)
	}
	if dup {
		t.Fatal("a different ref is not a duplicate")
	}

	_, err = db.Entitlements().AlreadyActivated(ctx, "nobody@example.com", "sub_1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEntitlement_ActivateLifetime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "user@example.com")

	outcome, err := db.Entitlements().ActivateLifetime(ctx, user.Email, "cs_1")
	if err != nil {
		t.Fatalf("ActivateLifetime: %v", err)
	}
	if outcome != domain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsVip || got.SubscriptionRef != "cs_1" {
		t.Fatalf("unexpected state: IsVip=%v ref=%q", got.IsVip, got.SubscriptionRef)
	}
	if got.VipExpirationDate == nil || got.VipExpirationDate.Unix() != domain.LifetimeExpiration.Unix() {
		t.Fatalf("expected lifetime expiry, got %v", got.VipExpirationDate)
	}

	outcome, err = db.Entitlements().ActivateLifetime(ctx, user.Email, "cs_1")
	if err != nil {
		t.Fatalf("second ActivateLifetime: %v", err)
	}
	if outcome != domain.OutcomeAlreadyProcessed {
		t.Fatalf("expected already_processed, got %s", outcome)
	}

	entries, err := db.Audit().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 2 || entries[0].EventKind != "lifetime_activated" {
		t.Fatalf("expected lifetime_activated audit entries, got %+v", entries)
	}
}
