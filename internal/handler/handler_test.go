package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/handler"
	"github.com/mrezende/membergate/internal/payment"
	"github.com/mrezende/membergate/internal/repository/sqlite"
	"github.com/mrezende/membergate/internal/service"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret     = "test-secret-with-at-least-32-characters"
	testWebhookSecret = "whsec_test_secret"
	testPassword      = "Sup3r$ecret"
)

// env is a fully wired HTTP surface over a temp-dir database and an
// in-memory payment provider.
type env struct {
	mux      *http.ServeMux
	db       *sqlite.DB
	auth     *service.AuthService
	provider *fakeProvider
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	provider := &fakeProvider{
		checkoutURL:      "https://checkout.example.com/cs_123",
		subscriptionEnds: map[string]time.Time{},
		invoiceEnds:      map[string]time.Time{},
	}

	auth := service.NewAuthService(db.Users(), testJWTSecret, bcrypt.MinCost)
	prices := map[domain.PlanType]string{
		domain.PlanMonthly:  "price_monthly",
		domain.PlanAnnual:   "price_annual",
		domain.PlanLifetime: "price_lifetime",
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:          auth,
		Accounts:      service.NewAccountService(db.Users(), provider),
		Admin:         service.NewAdminService(db.Users(), db.Audit()),
		Checkout:      service.NewCheckoutService(provider, prices, "https://app.example.com"),
		Entitlements:  service.NewEntitlementService(db.Entitlements(), db.Audit(), provider),
		WebhookSecret: testWebhookSecret,
	})

	return &env{mux: mux, db: db, auth: auth, provider: provider}
}

// createAccount inserts a user directly and returns it with a valid
// bearer token, bypassing the registration endpoint and its limiter.
func (e *env) createAccount(t *testing.T, email string, admin bool) (*domain.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		IsAdmin:      admin,
	}
	if err := e.db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := e.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (e *env) activateVip(t *testing.T, email, subscriptionRef string, end time.Time) {
	t.Helper()
	outcome, err := e.db.Entitlements().ActivateSubscription(context.Background(), email, subscriptionRef, end)
	if err != nil || outcome != domain.OutcomeApplied {
		t.Fatalf("activate: outcome=%s err=%v", outcome, err)
	}
}

// do performs a request against the mux. A non-empty token is sent as a
// bearer Authorization header; a non-nil body is JSON-encoded.
func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, want, strings.TrimSpace(rec.Body.String()))
	}
}

// fakeProvider is an in-memory payment.Provider.
type fakeProvider struct {
	checkoutURL      string
	lastParams       payment.CheckoutParams
	subscriptionEnds map[string]time.Time
	subscriptionErr  error
	invoiceEnds      map[string]time.Time
	canceled         []string
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params payment.CheckoutParams) (string, error) {
	f.lastParams = params
	return f.checkoutURL, nil
}

func (f *fakeProvider) SubscriptionPeriodEnd(_ context.Context, subscriptionRef string) (time.Time, error) {
	if f.subscriptionErr != nil {
		return time.Time{}, f.subscriptionErr
	}
	return f.subscriptionEnds[subscriptionRef], nil
}

func (f *fakeProvider) InvoicePeriodEnd(_ context.Context, invoiceID string) (time.Time, error) {
	return f.invoiceEnds[invoiceID], nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, subscriptionRef string) error {
	f.canceled = append(f.canceled, subscriptionRef)
	return nil
}
