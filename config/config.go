package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"anhthoxay/internal/escrow"
)

// Config holds every setting of the escrow service.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	DSN    string `env:"DB_DSN,notEmpty"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"5m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	EscrowDefaultPercentage int64  `env:"ESCROW_DEFAULT_PERCENTAGE" envDefault:"10"`
	EscrowDefaultMinAmount  int64  `env:"ESCROW_DEFAULT_MIN_AMOUNT" envDefault:"1000000"`
	EscrowDefaultMaxAmount  int64  `env:"ESCROW_DEFAULT_MAX_AMOUNT" envDefault:"0"`
	EscrowCurrency          string `env:"ESCROW_CURRENCY" envDefault:"VND"`

	EscrowMaxRetries      int           `env:"ESCROW_MAX_RETRIES" envDefault:"3"`
	EscrowPendingTTL      time.Duration `env:"ESCROW_PENDING_TTL" envDefault:"0s"`
	EscrowExpirerInterval time.Duration `env:"ESCROW_EXPIRER_INTERVAL" envDefault:"1m"`

	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	MinioEndpoint    string        `env:"MINIO_ENDPOINT"`
	MinioAccessKey   string        `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string        `env:"MINIO_SECRET_KEY"`
	MinioBucket      string        `env:"MINIO_BUCKET" envDefault:"escrow-evidence"`
	MinioUseSSL      bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	EvidenceMaxBytes int64         `env:"EVIDENCE_MAX_BYTES" envDefault:"10485760"`
	EvidenceURLTTL   time.Duration `env:"EVIDENCE_URL_TTL" envDefault:"15m"`

	SeedAdminUsername string        `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	SeedTokenTTL      time.Duration `env:"SEED_TOKEN_TTL" envDefault:"720h"`
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()
	return Parse()
}

// Parse fills a Config from the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.EscrowMaxRetries < 1 {
		return errors.New("ESCROW_MAX_RETRIES must be at least 1")
	}
	if c.EscrowPendingTTL < 0 {
		return errors.New("ESCROW_PENDING_TTL must not be negative")
	}
	if c.EscrowExpirerInterval <= 0 {
		return errors.New("ESCROW_EXPIRER_INTERVAL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.EvidenceMaxBytes <= 0 {
		return errors.New("EVIDENCE_MAX_BYTES must be positive")
	}
	if c.MinioEndpoint != "" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	if err := c.DefaultPolicy().Validate(); err != nil {
		return fmt.Errorf("default escrow policy: %w", err)
	}
	return nil
}

// Production reports whether APP_ENV names a production deployment.
func (c *Config) Production() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "prod" || env == "production"
}

// DefaultPolicy is the escrow policy seeded into an empty settings table.
func (c *Config) DefaultPolicy() escrow.Policy {
	p := escrow.Policy{
		Percentage: c.EscrowDefaultPercentage,
		MinAmount:  c.EscrowDefaultMinAmount,
		Currency:   c.EscrowCurrency,
	}
	if c.EscrowDefaultMaxAmount > 0 {
		maxAmount := c.EscrowDefaultMaxAmount
		p.MaxAmount = &maxAmount
	}
	return p
}
