package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
orderflow:
  name: orderflow
  version: 1.0.0
venue:
  rest_url: https://acx.example.com
  access_key: file-key
  secret_key: file-secret
  pair:
    base: btc
    quote: usd
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Venue.TimeoutMs != 15000 {
		t.Errorf("timeout default = %d", cfg.Venue.TimeoutMs)
	}
	if cfg.Poller.Orderbook.IntervalMs != 5000 {
		t.Errorf("orderbook interval default = %d", cfg.Poller.Orderbook.IntervalMs)
	}
	if cfg.Poller.Trades.LookbackMs != 60000 {
		t.Errorf("trade lookback default = %d", cfg.Poller.Trades.LookbackMs)
	}
	if cfg.Poller.Reconcile.IntervalMs != 8000 {
		t.Errorf("reconcile interval default = %d", cfg.Poller.Reconcile.IntervalMs)
	}
	if cfg.Channels.MarketBuffer <= 0 {
		t.Error("market buffer default missing")
	}
}

func TestLoadConfigEnvOverridesCredentials(t *testing.T) {
	t.Setenv("ACX_ACCESS_KEY", "env-key")
	t.Setenv("ACX_SECRET_KEY", "env-secret")

	cfg, err := LoadConfig(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Venue.AccessKey != "env-key" {
		t.Errorf("access key = %q, want env override", cfg.Venue.AccessKey)
	}
	if cfg.Venue.SecretKey != "env-secret" {
		t.Errorf("secret key = %q, want env override", cfg.Venue.SecretKey)
	}
}

func TestLoadConfigRejectsMissingPair(t *testing.T) {
	yaml := `
orderflow:
  name: orderflow
  version: 1.0.0
venue:
  rest_url: https://acx.example.com
  access_key: k
  secret_key: s
`
	if _, err := LoadConfig(writeConfig(t, yaml)); err == nil {
		t.Fatal("expected validation failure for missing pair")
	}
}

func TestLoadConfigRejectsMissingCredentials(t *testing.T) {
	yaml := `
orderflow:
  name: orderflow
  version: 1.0.0
venue:
  rest_url: https://acx.example.com
  pair:
    base: btc
    quote: usd
`
	t.Setenv("ACX_ACCESS_KEY", "")
	t.Setenv("ACX_SECRET_KEY", "")
	if _, err := LoadConfig(writeConfig(t, yaml)); err == nil {
		t.Fatal("expected validation failure for missing credentials")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
