// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Storage StorageConfig `mapstructure:"storage"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Server  ServerConfig  `mapstructure:"server"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ChainConfig contains blockchain connection configuration
type ChainConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	BackupNodes    []string      `mapstructure:"backup_nodes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// ScannerConfig contains token discovery pipeline configuration
type ScannerConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	CatchupWindow   uint64        `mapstructure:"catchup_window"`
	BatchSize       int           `mapstructure:"batch_size"`
	ClassifierMode  string        `mapstructure:"classifier_mode"` // or, and
	MinLiquidityUSD float64       `mapstructure:"min_liquidity_usd"`
	ScoreBelowFloor bool          `mapstructure:"score_below_floor"`
}

// TrackerConfig contains wallet tracking pipeline configuration
type TrackerConfig struct {
	PollInterval  time.Duration      `mapstructure:"poll_interval"`
	CatchupWindow uint64             `mapstructure:"catchup_window"`
	BatchSize     int                `mapstructure:"batch_size"`
	Wallets       []WatchEntryConfig `mapstructure:"wallets"`
}

// WatchEntryConfig is one watch-list entry as it appears in the config file
type WatchEntryConfig struct {
	Address      string `mapstructure:"address"`
	Label        string `mapstructure:"label"`
	CopyTrade    bool   `mapstructure:"copy_trade"`
	AlertOnTrade bool   `mapstructure:"alert_on_trade"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// AlertsConfig contains webhook alerting configuration
type AlertsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("TOKEN_SENTINEL")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if nodeURL := os.Getenv("CHAIN_NODE_URL"); nodeURL != "" {
		config.Chain.NodeURL = nodeURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "token-sentinel")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Chain defaults
	viper.SetDefault("chain.node_url", "https://carrot.megaeth.com/rpc")
	viper.SetDefault("chain.chain_id", 6342)
	viper.SetDefault("chain.request_timeout", "30s")
	viper.SetDefault("chain.retry_attempts", 3)
	viper.SetDefault("chain.retry_delay", "2s")
	viper.SetDefault("chain.max_retry_delay", "30s")

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/sentinel.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")

	// Scanner defaults
	viper.SetDefault("scanner.poll_interval", "5s")
	viper.SetDefault("scanner.catchup_window", 100)
	viper.SetDefault("scanner.batch_size", 50)
	viper.SetDefault("scanner.classifier_mode", "or")
	viper.SetDefault("scanner.min_liquidity_usd", 1000)
	viper.SetDefault("scanner.score_below_floor", true)

	// Tracker defaults
	viper.SetDefault("tracker.poll_interval", "2s")
	viper.SetDefault("tracker.catchup_window", 50)
	viper.SetDefault("tracker.batch_size", 50)

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Alert defaults
	viper.SetDefault("alerts.enabled", false)
	viper.SetDefault("alerts.timeout", "10s")
	viper.SetDefault("alerts.retry_attempts", 3)
	viper.SetDefault("alerts.retry_delay", "2s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration. Validation failures are fatal and
// surface at startup, before any pipeline begins.
func (c *Config) Validate() error {
	if c.Chain.NodeURL == "" {
		return fmt.Errorf("chain node URL is required")
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Scanner.PollInterval <= 0 {
		return fmt.Errorf("scanner poll interval must be positive")
	}
	if c.Scanner.BatchSize <= 0 {
		return fmt.Errorf("scanner batch size must be positive")
	}
	if c.Scanner.ClassifierMode != "or" && c.Scanner.ClassifierMode != "and" {
		return fmt.Errorf("classifier mode must be \"or\" or \"and\", got %q", c.Scanner.ClassifierMode)
	}
	if c.Scanner.MinLiquidityUSD < 0 {
		return fmt.Errorf("minimum liquidity threshold must not be negative")
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("tracker poll interval must be positive")
	}
	if c.Tracker.BatchSize <= 0 {
		return fmt.Errorf("tracker batch size must be positive")
	}
	for i, w := range c.Tracker.Wallets {
		if !common.IsHexAddress(w.Address) {
			return fmt.Errorf("watch-list entry %d: invalid address %q", i, w.Address)
		}
	}
	if c.Alerts.Enabled && c.Alerts.WebhookURL == "" {
		return fmt.Errorf("alert webhook URL is required when alerts are enabled")
	}
	return nil
}
