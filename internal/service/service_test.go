package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/payment"
	"github.com/mrezende/membergate/internal/repository/sqlite"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-with-at-least-32-characters"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *sqlite.DB, email, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// fakeProvider is an in-memory payment.Provider for service tests.
type fakeProvider struct {
	mu sync.Mutex

	checkoutURL string
	checkoutErr error
	lastParams  payment.CheckoutParams

	subscriptionEnds map[string]time.Time
	subscriptionErr  error
	invoiceEnds      map[string]time.Time
	invoiceErr       error

	canceled  []string
	cancelErr error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params payment.CheckoutParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastParams = params
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	return f.checkoutURL, nil
}

func (f *fakeProvider) SubscriptionPeriodEnd(_ context.Context, subscriptionRef string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscriptionErr != nil {
		return time.Time{}, f.subscriptionErr
	}
	return f.subscriptionEnds[subscriptionRef], nil
}

func (f *fakeProvider) InvoicePeriodEnd(_ context.Context, invoiceID string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return time.Time{}, f.invoiceErr
	}
	return f.invoiceEnds[invoiceID], nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, subscriptionRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, subscriptionRef)
	return nil
}
