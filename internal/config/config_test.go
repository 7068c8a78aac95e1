package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.PayPal.Price != "39.00" || cfg.PayPal.Currency != "EUR" {
		t.Errorf("price = %q %q", cfg.PayPal.Price, cfg.PayPal.Currency)
	}
	if cfg.Scoring.PotentialCap != 95 || cfg.Scoring.ErrorRecovery != 0.85 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Server.MaxUploadBytes != 5<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
}

func TestLoadYAMLOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(`
server:
  addr: ":9090"
store:
  backend: sqlite
  path: /tmp/test.db
scoring:
  potential_cap: 90
  error_recovery: 0.7
paypal:
  mode: live
email:
  mode: smtp
  smtp:
    host: mail.example.com
`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Scoring.PotentialCap != 90 || cfg.Scoring.ErrorRecovery != 0.7 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	// Values the file does not set keep their defaults.
	if cfg.PayPal.Price != "39.00" {
		t.Errorf("price = %q", cfg.PayPal.Price)
	}
	if cfg.Email.SMTP.Port != 587 {
		t.Errorf("smtp port = %d", cfg.Email.SMTP.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "env-client")
	t.Setenv("PAYPAL_CLIENT_SECRET", "env-secret")
	t.Setenv("GRUENDERAI_ADDR", ":7777")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PayPal.ClientID != "env-client" || cfg.PayPal.ClientSecret != "env-secret" {
		t.Errorf("paypal env not applied: %+v", cfg.PayPal)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Email.SMTP.Port != 2525 {
		t.Errorf("smtp port = %d", cfg.Email.SMTP.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("missing paypal credentials must fail validation")
	}
	cfg.PayPal.ClientID = "id"
	cfg.PayPal.ClientSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	cfg.Store.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend must fail validation")
	}
	cfg.Store.Backend = "memory"
	cfg.Email.Mode = "pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown email mode must fail validation")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [not a map"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
