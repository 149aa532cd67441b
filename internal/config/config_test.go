package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Billing.TrialDays != 30 {
		t.Errorf("TrialDays = %d, want 30", cfg.Billing.TrialDays)
	}
	if cfg.Billing.BonusDays != 30 {
		t.Errorf("BonusDays = %d, want 30", cfg.Billing.BonusDays)
	}
	if cfg.Billing.Monthly.AmountMinor != 2499 || cfg.Billing.Yearly.AmountMinor != 24999 {
		t.Errorf("unexpected plan prices: %+v %+v", cfg.Billing.Monthly, cfg.Billing.Yearly)
	}
	if cfg.Worker.StageTimeout != 10*time.Minute {
		t.Errorf("StageTimeout = %v, want 10m", cfg.Worker.StageTimeout)
	}
	if cfg.Database.DSN() != cfg.Database.Path {
		t.Errorf("sqlite DSN = %q, want path", cfg.Database.DSN())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TRIAL_DAYS", "14")
	t.Setenv("PLAN_YEARLY_PRICE", "19999")
	t.Setenv("ADMIN_EMAILS", "ops@example.com, dean@example.com")
	t.Setenv("BILLING_CURRENCY", "NGN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Billing.TrialDays != 14 {
		t.Errorf("TrialDays = %d, want 14", cfg.Billing.TrialDays)
	}
	yearly, ok := cfg.Billing.PlanByName("yearly")
	if !ok || yearly.AmountMinor != 19999 || yearly.Currency != "NGN" {
		t.Errorf("yearly plan = %+v", yearly)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "dean@example.com" {
		t.Errorf("AdminEmails = %v", cfg.Auth.AdminEmails)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	valid := func(t *testing.T) *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"zero trial", func(c *Config) { c.Billing.TrialDays = 0 }},
		{"free plan", func(c *Config) { c.Billing.Monthly.AmountMinor = 0 }},
		{"bucketless gcs", func(c *Config) { c.Storage.Backend = "gcs"; c.Storage.Bucket = "" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"bad schedule", func(c *Config) { c.Worker.PollSchedule = "whenever" }},
		{"no workers", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"unknown summarizer", func(c *Config) { c.AI.SummaryProvider = "claude" }},
	}

	if err := valid(t).Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestAIEnabled(t *testing.T) {
	tests := []struct {
		name string
		ai   AIConfig
		want bool
	}{
		{"no keys", AIConfig{SummaryProvider: "openai"}, false},
		{"openai only", AIConfig{SummaryProvider: "openai", OpenAIAPIKey: "sk"}, true},
		{"gemini without key", AIConfig{SummaryProvider: "gemini", OpenAIAPIKey: "sk"}, false},
		{"gemini needs openai for speech", AIConfig{SummaryProvider: "gemini", GeminiAPIKey: "g"}, false},
		{"gemini with both", AIConfig{SummaryProvider: "gemini", OpenAIAPIKey: "sk", GeminiAPIKey: "g"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ai.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
