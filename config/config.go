package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Orderflow OrderflowConfig `yaml:"orderflow"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Venue     VenueConfig     `yaml:"venue"`
	Poller    PollerConfig    `yaml:"poller"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type OrderflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	MarketBuffer   int `yaml:"market_buffer"`
	OrderBuffer    int `yaml:"order_buffer"`
	PositionBuffer int `yaml:"position_buffer"`
}

type VenueConfig struct {
	RestURL   string          `yaml:"rest_url"`
	AccessKey string          `yaml:"access_key"`
	SecretKey string          `yaml:"secret_key"`
	Pair      PairConfig      `yaml:"pair"`
	TimeoutMs int             `yaml:"timeout_ms"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type PairConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type PollerConfig struct {
	Orderbook OrderbookPollConfig `yaml:"orderbook"`
	Trades    TradesPollConfig    `yaml:"trades"`
	Reconcile ReconcilePollConfig `yaml:"reconcile"`
	Positions PositionsPollConfig `yaml:"positions"`
}

type OrderbookPollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	BidsLimit  int `yaml:"bids_limit"`
	AsksLimit  int `yaml:"asks_limit"`
}

type TradesPollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	LookbackMs int `yaml:"lookback_ms"`
}

type ReconcilePollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type PositionsPollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Credentials are taken from the environment when present so the
	// yaml file can be committed without secrets.
	if v := os.Getenv("ACX_ACCESS_KEY"); v != "" {
		config.Venue.AccessKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ACX_SECRET_KEY"); v != "" {
		config.Venue.SecretKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ACX_REST_URL"); v != "" {
		config.Venue.RestURL = strings.TrimSpace(v)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Channels.MarketBuffer <= 0 {
		cfg.Channels.MarketBuffer = 256
	}
	if cfg.Channels.OrderBuffer <= 0 {
		cfg.Channels.OrderBuffer = 64
	}
	if cfg.Channels.PositionBuffer <= 0 {
		cfg.Channels.PositionBuffer = 16
	}
	if cfg.Venue.TimeoutMs <= 0 {
		cfg.Venue.TimeoutMs = 15000
	}
	if cfg.Venue.RateLimit.RequestsPerSecond <= 0 {
		cfg.Venue.RateLimit.RequestsPerSecond = 5
	}
	if cfg.Venue.RateLimit.BurstSize <= 0 {
		cfg.Venue.RateLimit.BurstSize = 1
	}
	if cfg.Poller.Orderbook.IntervalMs <= 0 {
		cfg.Poller.Orderbook.IntervalMs = 5000
	}
	if cfg.Poller.Orderbook.BidsLimit <= 0 {
		cfg.Poller.Orderbook.BidsLimit = 13
	}
	if cfg.Poller.Orderbook.AsksLimit <= 0 {
		cfg.Poller.Orderbook.AsksLimit = 13
	}
	if cfg.Poller.Trades.IntervalMs <= 0 {
		cfg.Poller.Trades.IntervalMs = 15000
	}
	if cfg.Poller.Trades.LookbackMs <= 0 {
		cfg.Poller.Trades.LookbackMs = 60000
	}
	if cfg.Poller.Reconcile.IntervalMs <= 0 {
		cfg.Poller.Reconcile.IntervalMs = 8000
	}
	if cfg.Poller.Positions.IntervalMs <= 0 {
		cfg.Poller.Positions.IntervalMs = 15000
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Orderflow.Name == "" {
		return fmt.Errorf("orderflow.name is required")
	}

	if cfg.Orderflow.Version == "" {
		return fmt.Errorf("orderflow.version is required")
	}

	if cfg.Venue.RestURL == "" {
		return fmt.Errorf("venue.rest_url is required")
	}

	if cfg.Venue.Pair.Base == "" || cfg.Venue.Pair.Quote == "" {
		return fmt.Errorf("venue.pair.base and venue.pair.quote are required")
	}

	if cfg.Venue.AccessKey == "" || cfg.Venue.SecretKey == "" {
		return fmt.Errorf("venue.access_key and venue.secret_key are required (ACX_ACCESS_KEY / ACX_SECRET_KEY)")
	}

	return nil
}
