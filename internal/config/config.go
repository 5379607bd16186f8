// File: internal/config/config.go
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

type ServerConfig struct {
	Port int `yaml:"port"`
	// AdminAPIKey gates the manual review endpoints. Empty disables them.
	AdminAPIKey string `yaml:"admin_api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LicenseConfig holds the signing parameters for device license tokens.
// Secret is mandatory: a missing secret is a deployment fault, not a
// per-request condition.
type LicenseConfig struct {
	Secret       string `yaml:"secret"`
	Issuer       string `yaml:"issuer"`
	MaxTokenDays int    `yaml:"max_token_days"` // hard cap on token lifetime
}

// BankTransferConfig and WalletConfig feed the human-readable payment
// instructions returned by checkout and renewal.
type BankTransferConfig struct {
	AccountName   string `yaml:"account_name"`
	AccountNumber string `yaml:"account_number"`
	BankName      string `yaml:"bank_name"`
}

type WalletConfig struct {
	Number string `yaml:"number"`
	Name   string `yaml:"name"`
}

type PaymentConfig struct {
	Bank   BankTransferConfig `yaml:"bank"`
	Wallet WalletConfig       `yaml:"wallet"`
}

type TrialConfig struct {
	FallbackDays int `yaml:"fallback_days"`
}

// SchedulerConfig lists the cron cadences for the periodic jobs. Every job
// runs with no-overlap semantics regardless of cadence.
type SchedulerConfig struct {
	ExpireSubscriptionsCron string `yaml:"expire_subscriptions_cron"`
	OverdueInvoicesCron     string `yaml:"overdue_invoices_cron"`
	RenewalInvoicesCron     string `yaml:"renewal_invoices_cron"`
	ExpireTrialsCron        string `yaml:"expire_trials_cron"`
	TokenCleanupCron        string `yaml:"token_cleanup_cron"`
	RenewalLeadDays         int    `yaml:"renewal_lead_days"`
}

type EvidenceConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	License   LicenseConfig   `yaml:"license"`
	Payment   PaymentConfig   `yaml:"payment"`
	Trial     TrialConfig     `yaml:"trial"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Evidence  EvidenceConfig  `yaml:"evidence"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config file.
func LoadConfig(path string, dev bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "json"},
		License: LicenseConfig{
			Issuer:       "pos-license-platform",
			MaxTokenDays: 30,
		},
		Trial: TrialConfig{FallbackDays: 7},
		Scheduler: SchedulerConfig{
			ExpireSubscriptionsCron: "0 1 * * *",
			OverdueInvoicesCron:     "30 1 * * *",
			RenewalInvoicesCron:     "0 4 * * *",
			ExpireTrialsCron:        "0 2 * * *",
			TokenCleanupCron:        "0 3 * * *",
			RenewalLeadDays:         7,
		},
		Evidence: EvidenceConfig{Dir: "storage/evidence"},
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("config: database.url is required")
	}
	if c.License.Secret == "" {
		return errors.New("config: license.secret is required")
	}
	if c.License.MaxTokenDays <= 0 {
		return errors.New("config: license.max_token_days must be positive")
	}
	if c.Trial.FallbackDays <= 0 {
		return errors.New("config: trial.fallback_days must be positive")
	}
	return nil
}
