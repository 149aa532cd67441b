package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Billing  BillingConfig
	Storage  StorageConfig
	AI       AIConfig
	Worker   WorkerConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
	MaxUploadBytes  int64
	RateLimitRPS    float64
	RateLimitBurst  int
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// DSN returns the connection string for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
	return d.Path
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	BCryptCost         int
	AdminEmails        []string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// Plan is a purchasable billing period
type Plan struct {
	Name        string `json:"name"`
	PeriodDays  int    `json:"period_days"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// BillingConfig contains trial, bonus and plan settings
type BillingConfig struct {
	TrialDays     int
	BonusDays     int
	Currency      string
	WebhookSecret string
	Monthly       Plan
	Yearly        Plan
}

// Plans lists the purchasable plans
func (b BillingConfig) Plans() []Plan {
	return []Plan{b.Monthly, b.Yearly}
}

// PlanByName looks up a plan
func (b BillingConfig) PlanByName(name string) (Plan, bool) {
	for _, p := range b.Plans() {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// StorageConfig selects where PDFs and generated artifacts are kept
type StorageConfig struct {
	Backend        string // local, gcs or s3
	LocalDir       string
	Bucket         string
	Prefix         string
	GCSCredentials string // service account JSON
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// AIConfig contains the summarizer and narrator settings
type AIConfig struct {
	SummaryProvider  string
	OpenAIAPIKey     string
	GeminiAPIKey     string
	GeminiModel      string
	SummaryModel     string
	SpeechModel      string
	Voice            string
	MaxSummaryTokens int
	MaxInputChars    int
}

// Enabled reports whether the processing collaborators can run
func (a AIConfig) Enabled() bool {
	if a.OpenAIAPIKey == "" {
		return false
	}
	return a.SummaryProvider != "gemini" || a.GeminiAPIKey != ""
}

// WorkerConfig contains background processing settings
type WorkerConfig struct {
	Enabled                bool
	PollSchedule           string
	BatchSize              int
	Concurrency            int
	StageTimeout           time.Duration
	MetricsRefreshSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	currency := getEnv("BILLING_CURRENCY", "USD")

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			MaxUploadBytes:  getEnvAsInt64("MAX_UPLOAD_BYTES", 20<<20),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "mindspero"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./mindspero.db"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			AdminEmails:        getEnvAsList("ADMIN_EMAILS"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Billing: BillingConfig{
			TrialDays:     getEnvAsInt("TRIAL_DAYS", 30),
			BonusDays:     getEnvAsInt("BILLING_BONUS_DAYS", 30),
			Currency:      currency,
			WebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
			Monthly: Plan{
				Name:        "monthly",
				PeriodDays:  getEnvAsInt("PLAN_MONTHLY_DAYS", 30),
				AmountMinor: getEnvAsInt64("PLAN_MONTHLY_PRICE", 2499),
				Currency:    currency,
			},
			Yearly: Plan{
				Name:        "yearly",
				PeriodDays:  getEnvAsInt("PLAN_YEARLY_DAYS", 365),
				AmountMinor: getEnvAsInt64("PLAN_YEARLY_PRICE", 24999),
				Currency:    currency,
			},
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			LocalDir:       getEnv("STORAGE_DIR", "./data/artifacts"),
			Bucket:         getEnv("STORAGE_BUCKET", ""),
			Prefix:         getEnv("STORAGE_PREFIX", "mindspero"),
			GCSCredentials: getEnv("GCS_CREDENTIALS_JSON", ""),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:     getEnv("S3_ENDPOINT", ""),
			S3AccessKey:    getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
			S3UsePathStyle: getEnvAsBool("S3_USE_PATH_STYLE", false),
		},
		AI: AIConfig{
			SummaryProvider:  getEnv("AI_SUMMARY_PROVIDER", "openai"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			SummaryModel:     getEnv("OPENAI_SUMMARY_MODEL", "gpt-4o-mini"),
			SpeechModel:      getEnv("OPENAI_SPEECH_MODEL", "tts-1"),
			Voice:            getEnv("OPENAI_VOICE", "alloy"),
			MaxSummaryTokens: getEnvAsInt("OPENAI_MAX_SUMMARY_TOKENS", 800),
			MaxInputChars:    getEnvAsInt("OPENAI_MAX_INPUT_CHARS", 48000),
		},
		Worker: WorkerConfig{
			Enabled:                getEnvAsBool("WORKER_ENABLED", true),
			PollSchedule:           getEnv("WORKER_POLL_SCHEDULE", "@every 15s"),
			BatchSize:              getEnvAsInt("WORKER_BATCH_SIZE", 10),
			Concurrency:            getEnvAsInt("WORKER_CONCURRENCY", 4),
			StageTimeout:           getEnvAsDuration("WORKER_STAGE_TIMEOUT", 10*time.Minute),
			MetricsRefreshSchedule: getEnv("METRICS_REFRESH_SCHEDULE", "@every 1m"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Billing.TrialDays <= 0 {
		return fmt.Errorf("TRIAL_DAYS must be positive, got %d", c.Billing.TrialDays)
	}
	if c.Billing.BonusDays < 0 {
		return fmt.Errorf("BILLING_BONUS_DAYS must not be negative, got %d", c.Billing.BonusDays)
	}
	for _, p := range c.Billing.Plans() {
		if p.PeriodDays <= 0 || p.AmountMinor <= 0 {
			return fmt.Errorf("plan %s needs a positive period and price", p.Name)
		}
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("STORAGE_DIR must be set for local storage")
		}
	case "gcs", "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET must be set for %s storage", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	if c.Worker.Concurrency < 1 || c.Worker.BatchSize < 1 {
		return fmt.Errorf("worker concurrency and batch size must be at least 1")
	}
	if p := c.AI.SummaryProvider; p != "openai" && p != "gemini" {
		return fmt.Errorf("unsupported AI_SUMMARY_PROVIDER: %s", p)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, spec := range []string{c.Worker.PollSchedule, c.Worker.MetricsRefreshSchedule} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
