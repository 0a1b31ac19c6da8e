package handler

import (
	"net/http"

	"github.com/mrezende/membergate/internal/service"
)

// Services bundles everything the routes need.
type Services struct {
	Auth         *service.AuthService
	Accounts     *service.AccountService
	Admin        *service.AdminService
	Checkout     *service.CheckoutService
	Entitlements *service.EntitlementService

	// WebhookSecret is the Stripe endpoint signing secret.
	WebhookSecret string
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Accounts)
	adminHandler := NewAdminHandler(svc.Admin)
	checkoutHandler := NewCheckoutHandler(svc.Checkout)
	webhookHandler := NewWebhookHandler(svc.WebhookSecret, svc.Entitlements)

	// Credential and checkout endpoints are throttled per client IP.
	credentialLimiter := service.NewTokenBucket(0.2, 10)
	checkoutLimiter := service.NewTokenBucket(0.5, 5)

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.Handle("POST /api/auth/register", RateLimit(credentialLimiter, http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/auth/login", RateLimit(credentialLimiter, http.HandlerFunc(authHandler.HandleLogin)))
	mux.Handle("POST /api/auth/refresh", RequireAuth(svc.Auth, http.HandlerFunc(authHandler.HandleRefresh)))
	mux.Handle("GET /api/auth/verify", RequireAuth(svc.Auth, http.HandlerFunc(authHandler.HandleVerify)))
	mux.Handle("POST /api/auth/logout", RequireAuth(svc.Auth, http.HandlerFunc(authHandler.HandleLogout)))

	mux.Handle("GET /api/user/status", RequireAuth(svc.Auth, http.HandlerFunc(userHandler.HandleStatus)))
	mux.Handle("GET /api/user/dashboard", RequireAuth(svc.Auth, http.HandlerFunc(userHandler.HandleDashboard)))
	mux.Handle("GET /api/user/profile", RequireAuth(svc.Auth, http.HandlerFunc(userHandler.HandleProfile)))
	mux.Handle("GET /api/user/last-login", RequireAuth(svc.Auth, http.HandlerFunc(userHandler.HandleLastLogin)))
	mux.Handle("DELETE /api/user/account", RequireAuth(svc.Auth, http.HandlerFunc(userHandler.HandleDeleteAccount)))

	mux.Handle("POST /api/pay/checkout", RateLimit(checkoutLimiter, RequireAuth(svc.Auth, http.HandlerFunc(checkoutHandler.HandleCreateSession))))

	mux.Handle("GET /api/admin/users", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleListUsers)))
	mux.Handle("GET /api/admin/vip-users", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleListVipUsers)))
	mux.Handle("GET /api/admin/disabled-users", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleListDisabledUsers)))
	mux.Handle("PUT /api/admin/users/{email}/disable", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleDisableUser)))
	mux.Handle("GET /api/admin/users/{email}/last-login", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleUserLastLogin)))
	mux.Handle("GET /api/admin/audit", RequireAdmin(svc.Auth, http.HandlerFunc(adminHandler.HandleAudit)))

	// Signature verification authenticates the webhook; no bearer token.
	mux.Handle("POST /webhook/stripe", webhookHandler)
}
