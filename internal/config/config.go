package config

import (
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	GatewayTimeout        time.Duration

	// MinDonation is the smallest accepted donation amount in rupees.
	MinDonation decimal.Decimal

	SMTPHost string
	SMTPPort int
	SMTPFrom string

	ReconcileInterval time.Duration
	ReconcileCutoff   time.Duration
}

// Load reads configuration from the environment (a .env file is picked up by
// godotenv autoload). The database URL and gateway API keys are required; the
// webhook secret is not, matching deployments where webhook
// verification can be disabled.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		HTTPAddr:              envOr("HTTP_ADDR", ":3000"),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		GatewayTimeout:        durationOr("GATEWAY_TIMEOUT", 10*time.Second),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              intOr("SMTP_PORT", 587),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		ReconcileInterval:     durationOr("RECONCILE_INTERVAL", time.Minute),
		ReconcileCutoff:       durationOr("RECONCILE_CUTOFF", 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
	}

	floor := envOr("MIN_DONATION_AMOUNT", "10")
	min, err := decimal.NewFromString(floor)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_DONATION_AMOUNT %q: %w", floor, err)
	}
	cfg.MinDonation = min

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
