package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrezende/membergate/internal/config"
	"github.com/mrezende/membergate/internal/domain"
	"github.com/mrezende/membergate/internal/handler"
	"github.com/mrezende/membergate/internal/payment"
	"github.com/mrezende/membergate/internal/repository/sqlite"
	"github.com/mrezende/membergate/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	provider := payment.NewStripeProvider(cfg.Stripe.SecretKey)

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost)
	accountService := service.NewAccountService(db.Users(), provider)
	adminService := service.NewAdminService(db.Users(), db.Audit())
	entitlementService := service.NewEntitlementService(db.Entitlements(), db.Audit(), provider)
	checkoutService := service.NewCheckoutService(provider, map[domain.PlanType]string{
		domain.PlanMonthly:  cfg.Stripe.PriceMonthly,
		domain.PlanAnnual:   cfg.Stripe.PriceAnnual,
		domain.PlanLifetime: cfg.Stripe.PriceLifetime,
	}, cfg.FrontendURL)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		Auth:          authService,
		Accounts:      accountService,
		Admin:         adminService,
		Checkout:      checkoutService,
		Entitlements:  entitlementService,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.RequestLogger(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
