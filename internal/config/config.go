package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port           int    `yaml:"port"`
	ReviewerJWTKey string `yaml:"reviewer_jwt_key"` // HS256 secret for the reviewer API
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	AuditTTL time.Duration `yaml:"audit_ttl"` // retention for unknown-order dedupe keys
}

type ProviderConfig struct {
	WebhookSecret string        `yaml:"webhook_secret"`
	RedirectBase  string        `yaml:"redirect_base"`  // card gateway checkout page base URL
	VoucherWindow time.Duration `yaml:"voucher_window"` // validity window for pay-at-store codes
}

type PaymentConfig struct {
	Card    ProviderConfig `yaml:"card"`
	Voucher ProviderConfig `yaml:"voucher"`
}

type SweepConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweep    SweepConfig    `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = 5 * time.Minute
	}
	if cfg.Sweep.BatchSize <= 0 {
		cfg.Sweep.BatchSize = 200
	}
	if cfg.Payment.Voucher.VoucherWindow <= 0 {
		cfg.Payment.Voucher.VoucherWindow = 72 * time.Hour
	}
	if cfg.Redis.AuditTTL <= 0 {
		cfg.Redis.AuditTTL = 30 * 24 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Payment.Card.WebhookSecret == "" || cfg.Payment.Voucher.WebhookSecret == "" {
		return nil, errors.New("payment.card.webhook_secret and payment.voucher.webhook_secret are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
