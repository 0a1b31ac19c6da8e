package handler_test

import (
	"net/http"
	"strconv"
	"testing"
)

func TestHandleCreateSession(t *testing.T) {
	e := newEnv(t)
	user, token := e.createAccount(t, "user@example.com", false)

	rec := e.do(t, http.MethodPost, "/api/pay/checkout", token, map[string]string{"planType": "monthly"})
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		URL string `json:"url"`
	}
	decodeBody(t, rec, &resp)
	if resp.URL != "https://checkout.example.com/cs_123" {
		t.Fatalf("unexpected url %q", resp.URL)
	}

	params := e.provider.lastParams
	if params.PriceID != "price_monthly" {
		t.Fatalf("expected server-side price id, got %q", params.PriceID)
	}
	if params.CustomerEmail != user.Email {
		t.Fatalf("expected email from the token, got %q", params.CustomerEmail)
	}
	if params.Metadata["userId"] != strconv.FormatInt(user.ID, 10) {
		t.Fatalf("unexpected metadata: %v", params.Metadata)
	}
}

func TestHandleCreateSession_InvalidPlan(t *testing.T) {
	e := newEnv(t)
	_, token := e.createAccount(t, "user@example.com", false)

	rec := e.do(t, http.MethodPost, "/api/pay/checkout", token, map[string]string{"planType": "weekly"})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestHandleCreateSession_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/pay/checkout", "", map[string]string{"planType": "monthly"})
	wantStatus(t, rec, http.StatusUnauthorized)
}
