package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds the full service configuration.
type Config struct {
	Environment string
	Port        string

	// Database
	UseLocalDB  bool
	DataDir     string
	PostgresDSN string

	// Onboarding session tokens
	JWTSecret string

	// Stripe
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeMonthlyPriceID string
	StripeAnnualPriceID  string

	// Checkout return navigation. The success URL receives
	// ?checkout=success&session_id={CHECKOUT_SESSION_ID}.
	CheckoutSuccessURL string
	CheckoutCancelURL  string
	BillingReturnURL   string

	// Confirmation reconciler budgets
	PollInterval    time.Duration
	PollMaxDuration time.Duration
	FinalizeTimeout time.Duration
	AdvanceDelay    time.Duration

	// CORS
	AllowedOrigins []string

	Debug bool
}

// Load reads configuration from the environment, with .env file support for
// local development.
func Load() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	cfg := &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		Port:        getEnvWithDefault("PORT", "3000"),
		UseLocalDB:  getEnvBool("USE_LOCAL_DB", true),
		DataDir:     getEnvWithDefault("DATA_DIR", "./data"),
		JWTSecret:   getEnvWithDefault("JWT_SECRET", "dev-secret-change-in-production"),
		Debug:       getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing newlines from env sources
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))

	cfg.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.StripeWebhookSecret = strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET"))
	cfg.StripeMonthlyPriceID = strings.TrimSpace(os.Getenv("STRIPE_MONTHLY_PRICE_ID"))
	cfg.StripeAnnualPriceID = strings.TrimSpace(os.Getenv("STRIPE_ANNUAL_PRICE_ID"))

	cfg.CheckoutSuccessURL = getEnvWithDefault("CHECKOUT_SUCCESS_URL", "http://localhost:5173/onboarding")
	cfg.CheckoutCancelURL = getEnvWithDefault("CHECKOUT_CANCEL_URL", "http://localhost:5173/onboarding?checkout=cancel")
	cfg.BillingReturnURL = getEnvWithDefault("BILLING_RETURN_URL", "http://localhost:5173/settings/billing")

	cfg.PollInterval = getEnvDuration("SUBSCRIPTION_POLL_INTERVAL", 3*time.Second)
	cfg.PollMaxDuration = getEnvDuration("SUBSCRIPTION_POLL_MAX", 5*time.Minute)
	cfg.FinalizeTimeout = getEnvDuration("CHECKOUT_FINALIZE_TIMEOUT", 15*time.Second)
	cfg.AdvanceDelay = getEnvDuration("ACTIVATION_ADVANCE_DELAY", 1500*time.Millisecond)

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		cfg.AllowedOrigins = []string{"*"}
	} else {
		cfg.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	if cfg.Environment == "production" {
		if cfg.PostgresDSN != "" {
			cfg.UseLocalDB = false
		} else {
			fmt.Println("WARNING: production environment using local file database. Set POSTGRES_DSN.")
		}
		cfg.Debug = false
	}

	return cfg
}

var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config, loading it once.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = Load()
	})
	return cachedConfig
}

// Validate checks the configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == "dev-secret-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Environment == "development" {
			fmt.Println("WARNING: using default JWT secret (not for production)")
		}
	}

	if c.StripeSecretKey == "" && c.Environment == "production" {
		return fmt.Errorf("STRIPE_SECRET_KEY must be set in production")
	}

	if c.PollInterval <= 0 || c.PollMaxDuration <= 0 || c.FinalizeTimeout <= 0 {
		return fmt.Errorf("poll interval, poll max duration and finalize timeout must be positive")
	}

	if !c.UseLocalDB && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when USE_LOCAL_DB=false")
	}

	return nil
}

// PriceIDForPlan maps a plan to the configured Stripe price.
func (c *Config) PriceIDForPlan(plan string) string {
	switch plan {
	case "annual":
		return c.StripeAnnualPriceID
	default:
		return c.StripeMonthlyPriceID
	}
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether the service runs in development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// loadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// Existing environment variables win.
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return
	}

	file, err := os.Open(filename)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Strip surrounding quotes if present
		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
