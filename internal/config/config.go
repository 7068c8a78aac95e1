// Package config loads the service configuration from YAML with
// environment overrides for secrets and deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/telemetry"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Store     StoreConfig      `yaml:"store"`
	Anthropic AnthropicConfig  `yaml:"anthropic"`
	Scoring   analysis.Policy  `yaml:"scoring"`
	PayPal    PayPalConfig     `yaml:"paypal"`
	Email     EmailConfig      `yaml:"email"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	FrontendURL    string `yaml:"frontend_url"`
	ReportsDir     string `yaml:"reports_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type AnthropicConfig struct {
	// Model overrides the default analysis model when set.
	Model string `yaml:"model"`
}

type PayPalConfig struct {
	Mode         string `yaml:"mode"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Price        string `yaml:"price"`
	Currency     string `yaml:"currency"`
}

type EmailConfig struct {
	// Mode is "smtp", "sendgrid" or "off".
	Mode     string         `yaml:"mode"`
	From     string         `yaml:"from"`
	FromName string         `yaml:"from_name"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Insecure bool   `yaml:"insecure"`
}

type SendGridConfig struct {
	APIKey string `yaml:"api_key"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the YAML file, fills defaults and applies environment
// overrides. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:3000"
	}
	if cfg.Server.ReportsDir == "" {
		cfg.Server.ReportsDir = "reports"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 5 << 20
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "gruenderai.db"
	}
	if cfg.Scoring.PotentialCap == 0 {
		cfg.Scoring = analysis.DefaultPolicy()
	}
	if cfg.PayPal.Mode == "" {
		cfg.PayPal.Mode = "sandbox"
	}
	if cfg.PayPal.Price == "" {
		cfg.PayPal.Price = "39.00"
	}
	if cfg.PayPal.Currency == "" {
		cfg.PayPal.Currency = "EUR"
	}
	if cfg.Email.Mode == "" {
		cfg.Email.Mode = "off"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "GrunderAI"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "gruenderai"
	}
}

// applyEnv lets deployments override secrets and endpoints without
// touching the config file.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "GRUENDERAI_ADDR")
	setString(&cfg.Server.FrontendURL, "FRONTEND_URL")
	setString(&cfg.Store.Backend, "GRUENDERAI_STORE")
	setString(&cfg.Store.Path, "GRUENDERAI_DB_PATH")
	setString(&cfg.Anthropic.Model, "ANTHROPIC_MODEL")
	setString(&cfg.PayPal.Mode, "PAYPAL_MODE")
	setString(&cfg.PayPal.ClientID, "PAYPAL_CLIENT_ID")
	setString(&cfg.PayPal.ClientSecret, "PAYPAL_CLIENT_SECRET")
	setString(&cfg.Email.Mode, "EMAIL_MODE")
	setString(&cfg.Email.From, "EMAIL_FROM")
	setString(&cfg.Email.SMTP.Host, "SMTP_HOST")
	setString(&cfg.Email.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.Email.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.Email.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTP.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate catches configurations that cannot serve payments.
func (c *Config) Validate() error {
	if c.PayPal.ClientID == "" || c.PayPal.ClientSecret == "" {
		return fmt.Errorf("paypal credentials missing: set PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET")
	}
	switch c.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Email.Mode {
	case "smtp", "sendgrid", "off":
	default:
		return fmt.Errorf("unknown email mode %q", c.Email.Mode)
	}
	return nil
}
