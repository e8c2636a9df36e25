package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Network    NetworkConfig    `yaml:"network"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Fees       FeesConfig       `yaml:"fees"`
	PriceFeed  PriceFeedConfig  `yaml:"priceFeed"`
	MockLedger MockLedgerConfig `yaml:"mockLedger"`
	Signer     SignerConfig     `yaml:"signer"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// EndpointConfig is one RPC endpoint entry. Lower priority is tried first.
type EndpointConfig struct {
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"`
}

// NetworkConfig holds ledger network settings.
type NetworkConfig struct {
	// Cluster selects a predefined endpoint set ("mainnet" or "devnet")
	// used when Endpoints is empty.
	Cluster               string           `yaml:"cluster"`
	Endpoints             []EndpointConfig `yaml:"endpoints"`
	Commitment            string           `yaml:"commitment"`
	RPCCallTimeoutSeconds int              `yaml:"rpcCallTimeoutSeconds"`
	ConfirmTimeoutSeconds int              `yaml:"confirmTimeoutSeconds"`
	RateLimitPerSecond    int              `yaml:"rateLimitPerSecond"`
	RateLimitBurst        int              `yaml:"rateLimitBurst"`
}

// MonitorConfig holds balance monitor settings.
type MonitorConfig struct {
	PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	ReadTimeoutSeconds  int `yaml:"readTimeoutSeconds"`
}

// FeesConfig holds entry fee policy settings.
type FeesConfig struct {
	// FeePercentagePoints is the default platform fee in whole percentage
	// points applied when an intent does not carry its own value.
	FeePercentagePoints int    `yaml:"feePercentagePoints"`
	RecipientAddress    string `yaml:"recipientAddress"`
}

// PriceFeedConfig holds the SOL/USD price feed settings.
type PriceFeedConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	CacheTTLMinutes      int    `yaml:"cacheTTLMinutes"`
	// StaticFallbackRate is the USD-per-SOL rate used when the feed is
	// unavailable. String form to avoid float drift in config parsing.
	StaticFallbackRate string `yaml:"staticFallbackRate"`
}

// MockLedgerConfig holds settings for the simulated ledger store.
type MockLedgerConfig struct {
	DataDir string `yaml:"dataDir"`
}

// SignerConfig holds the local signer settings. PrivateKey is a base58
// secret key; empty means no local signer is wired.
type SignerConfig struct {
	PrivateKey     string `yaml:"privateKey"`
	PrivateKeyFile string `yaml:"privateKeyFile"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Network.Cluster == "" {
		cfg.Network.Cluster = "mainnet"
		logrus.Infof("Network.Cluster not set, defaulting to %s", cfg.Network.Cluster)
	}
	if cfg.Network.Commitment == "" {
		cfg.Network.Commitment = "confirmed"
	}
	if cfg.Network.RPCCallTimeoutSeconds <= 0 {
		cfg.Network.RPCCallTimeoutSeconds = 8
		logrus.Infof("Network.RPCCallTimeoutSeconds not set, defaulting to %d", cfg.Network.RPCCallTimeoutSeconds)
	}
	if cfg.Network.ConfirmTimeoutSeconds <= 0 {
		cfg.Network.ConfirmTimeoutSeconds = 30
		logrus.Infof("Network.ConfirmTimeoutSeconds not set, defaulting to %d", cfg.Network.ConfirmTimeoutSeconds)
	}
	if cfg.Network.RateLimitPerSecond <= 0 {
		cfg.Network.RateLimitPerSecond = 5
	}
	if cfg.Network.RateLimitBurst <= 0 {
		cfg.Network.RateLimitBurst = 10
	}
	if cfg.Monitor.PollIntervalSeconds <= 0 {
		cfg.Monitor.PollIntervalSeconds = 60
		logrus.Infof("Monitor.PollIntervalSeconds not set, defaulting to %d", cfg.Monitor.PollIntervalSeconds)
	}
	if cfg.Monitor.ReadTimeoutSeconds <= 0 {
		cfg.Monitor.ReadTimeoutSeconds = 30
	}
	if cfg.Fees.FeePercentagePoints < 0 || cfg.Fees.FeePercentagePoints > 100 {
		logrus.Warnf("Fees.FeePercentagePoints out of range (%d), defaulting to 10", cfg.Fees.FeePercentagePoints)
		cfg.Fees.FeePercentagePoints = 10
	}
	if cfg.PriceFeed.BaseURL == "" {
		cfg.PriceFeed.BaseURL = "https://api.coingecko.com/api/v3"
		logrus.Infof("PriceFeed.BaseURL not set, defaulting to %s", cfg.PriceFeed.BaseURL)
	}
	if cfg.PriceFeed.RequestTimeoutMillis <= 0 {
		cfg.PriceFeed.RequestTimeoutMillis = 10000
	}
	if cfg.PriceFeed.CacheTTLMinutes <= 0 {
		cfg.PriceFeed.CacheTTLMinutes = 5
	}
	if cfg.PriceFeed.StaticFallbackRate == "" {
		cfg.PriceFeed.StaticFallbackRate = "150"
		logrus.Infof("PriceFeed.StaticFallbackRate not set, defaulting to %s USD/SOL", cfg.PriceFeed.StaticFallbackRate)
	}
	if cfg.MockLedger.DataDir == "" {
		cfg.MockLedger.DataDir = "data"
	}
}
