// Package config loads service settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds every setting the server and the CLI read.
type Config struct {
	Port        string `env:"PORT,default=8080"`
	AppEnv      string `env:"APP_ENV,default=production"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO"`
	FrontendURL string `env:"FRONTEND_URL,default=http://localhost:3000"`

	// TrustedProxyCount is how many X-Forwarded-For hops are set by our own proxies.
	TrustedProxyCount int    `env:"TRUSTED_PROXY_COUNT,default=0"`
	AuthRequired      bool   `env:"AUTH_REQUIRED,default=false"`
	AdminAPIToken     string `env:"ADMIN_API_TOKEN"`
	ValidationTier    string `env:"VALIDATION_TIER,default=basic"`

	Storage   Storage
	Postgres  Postgres
	Workbook  Workbook
	Sheets    Sheets
	AppScript AppScript
	MinIO     MinIO
	Kafka     Kafka
	RateLimit RateLimit
}

type Storage struct {
	PrimaryBackend   string        `env:"PRIMARY_BACKEND,default=postgres"`
	SecondaryBackend string        `env:"SECONDARY_BACKEND,default=xlsx"`
	ReadBackend      string        `env:"READ_BACKEND"`
	TierTimeout      time.Duration `env:"TIER_TIMEOUT,default=5s"`
	FallbackLogPath  string        `env:"FALLBACK_LOG_PATH,default=./backups/contact-backup.jsonl"`
}

type Postgres struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

type Workbook struct {
	Path string `env:"XLSX_PATH,default=./data/contact_submissions.xlsx"`
}

type Sheets struct {
	SpreadsheetID   string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type AppScript struct {
	URL string `env:"APPS_SCRIPT_URL"`
}

type MinIO struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET,default=contact-submissions"`
	BasePath  string `env:"MINIO_BASE_PATH"`
	UseTLS    bool   `env:"MINIO_USE_TLS,default=false"`
}

type Kafka struct {
	// Brokers is comma separated.
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_TOPIC,default=contact-submissions"`
}

type RateLimit struct {
	Max           int           `env:"RATE_LIMIT_MAX,default=15"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW,default=5m"`
	RedisAddr     string        `env:"RATE_LIMIT_REDIS_ADDR"`
	RedisPassword string        `env:"RATE_LIMIT_REDIS_PASSWORD"`
}

// Load reads .env (if any) and decodes the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make the server misbehave silently.
// Missing backend credentials are not errors; those tiers are skipped.
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("config: RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("config: RATE_LIMIT_WINDOW must be positive"))
	}
	if c.Storage.TierTimeout <= 0 {
		errs = append(errs, errors.New("config: TIER_TIMEOUT must be positive"))
	}
	if c.Storage.FallbackLogPath == "" {
		errs = append(errs, errors.New("config: FALLBACK_LOG_PATH must not be empty"))
	}
	if c.TrustedProxyCount < 0 {
		errs = append(errs, errors.New("config: TRUSTED_PROXY_COUNT must not be negative"))
	}
	if c.AuthRequired && c.AdminAPIToken == "" {
		errs = append(errs, errors.New("config: ADMIN_API_TOKEN is required when AUTH_REQUIRED=true"))
	}
	primary := strings.ToLower(strings.TrimSpace(c.Storage.PrimaryBackend))
	secondary := strings.ToLower(strings.TrimSpace(c.Storage.SecondaryBackend))
	if primary != "" && primary != "none" && primary == secondary {
		errs = append(errs, fmt.Errorf("config: PRIMARY_BACKEND and SECONDARY_BACKEND must differ (both %q)", primary))
	}
	return errors.Join(errs...)
}

// AdminAuthRequired reports whether admin routes must check ADMIN_API_TOKEN.
// Only development may skip the check; elsewhere an unset token locks the
// routes.
func (c *Config) AdminAuthRequired() bool {
	return c.AuthRequired || !c.IsDevelopment()
}

// Addr is the listen address.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDevelopment reports whether error details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// KafkaBrokers splits KAFKA_BROKERS.
func (c *Config) KafkaBrokers() []string {
	return splitList(c.Kafka.Brokers)
}

// AllowedOrigins splits FRONTEND_URL, which may list several origins.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.FrontendURL)
}

// ReadBackendName is READ_BACKEND, or the primary backend when unset.
func (c *Config) ReadBackendName() string {
	if c.Storage.ReadBackend != "" {
		return c.Storage.ReadBackend
	}
	return c.Storage.PrimaryBackend
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
