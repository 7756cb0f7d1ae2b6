package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the process reads from the environment.
// Required values are validated together in Load so a misconfigured
// deploy fails before the first external call is attempted.
type Config struct {
	Environment string
	Port        string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseJWTSecret  string
	DatabaseURL        string

	StripeSecretKey     string
	StripeWebhookSecret string

	ResendAPIKey string
	FromEmail    string
	SiteURL      string

	CORSOrigin       string
	SignupRateMax    int
	SignupRateWindow time.Duration
}

// Load reads configuration from the environment (a local .env file is
// honoured in development). All missing required variables are reported
// in a single error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:         getEnv("ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		SupabaseURL:         strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseServiceKey:  strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		SupabaseJWTSecret:   strings.TrimSpace(os.Getenv("SUPABASE_JWT_SECRET")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		ResendAPIKey:        strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		FromEmail:           strings.TrimSpace(os.Getenv("FROM_EMAIL")),
		SiteURL:             strings.TrimRight(getEnv("SITE_URL", ""), "/"),
		CORSOrigin:          getEnv("CORS_ORIGIN", "*"),
		SignupRateMax:       getInt("RATE_LIMIT_SIGNUP_MAX", 20),
		SignupRateWindow:    getDuration("RATE_LIMIT_SIGNUP_WINDOW", time.Minute),
	}

	required := map[string]string{
		"SUPABASE_URL":              cfg.SupabaseURL,
		"SUPABASE_SERVICE_ROLE_KEY": cfg.SupabaseServiceKey,
		"SUPABASE_JWT_SECRET":       cfg.SupabaseJWTSecret,
		"DATABASE_URL":              cfg.DatabaseURL,
		"STRIPE_SECRET_KEY":         cfg.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET":     cfg.StripeWebhookSecret,
		"RESEND_API_KEY":            cfg.ResendAPIKey,
		"FROM_EMAIL":                cfg.FromEmail,
		"SITE_URL":                  cfg.SiteURL,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
