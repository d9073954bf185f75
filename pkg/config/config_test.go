package config

import (
	"testing"
	"time"
)

func validTestConfig() *Config {
	return &Config{
		Environment:          "development",
		Port:                 "3000",
		UseLocalDB:           true,
		JWTSecret:            "test-secret",
		StripeMonthlyPriceID: "price_monthly",
		StripeAnnualPriceID:  "price_annual",
		PollInterval:         3 * time.Second,
		PollMaxDuration:      5 * time.Minute,
		FinalizeTimeout:      15 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg = validTestConfig()
	cfg.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing port should fail validation")
	}

	cfg = validTestConfig()
	cfg.Environment = "production"
	cfg.JWTSecret = "dev-secret-change-in-production"
	if err := cfg.Validate(); err == nil {
		t.Error("default JWT secret should fail in production")
	}

	cfg = validTestConfig()
	cfg.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero poll interval should fail validation")
	}

	cfg = validTestConfig()
	cfg.UseLocalDB = false
	cfg.PostgresDSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without DSN should fail validation")
	}
}

func TestPriceIDForPlan(t *testing.T) {
	cfg := validTestConfig()
	if got := cfg.PriceIDForPlan("annual"); got != "price_annual" {
		t.Errorf("annual price = %q", got)
	}
	if got := cfg.PriceIDForPlan("monthly"); got != "price_monthly" {
		t.Errorf("monthly price = %q", got)
	}
	// Unknown plans fall back to monthly; the caller validates plan names.
	if got := cfg.PriceIDForPlan(""); got != "price_monthly" {
		t.Errorf("default price = %q", got)
	}
}
