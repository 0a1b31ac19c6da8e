// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains all server configuration parameters.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"membergate.db"`
	FrontendURL  string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	JWTSecret  string `env:"JWT_SECRET"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`

	Stripe Stripe `envPrefix:"STRIPE_"`
}

// Stripe contains payment-provider parameters, including the
// server-side plan-to-price mapping. Client-provided price ids are never
// trusted; checkout resolves plans against this mapping only.
type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	PriceMonthly  string `env:"PRICEID_MONTHLY"`
	PriceAnnual   string `env:"PRICEID_ANNUAL"`
	PriceLifetime string `env:"PRICEID_LIFETIME"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence.
func Load() (*Config, error) {
	// Missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}
