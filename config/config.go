package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Icons   IconConfig    `mapstructure:"icons"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Swap    SwapConfig    `mapstructure:"swap"`
	Log     LogConfig     `mapstructure:"log"`
}

// APIConfig configures the price feed client
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// IconConfig configures token icon URL derivation
type IconConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RefreshConfig configures the background catalog refresh
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SwapConfig configures the simulated swap submission
type SwapConfig struct {
	SubmitDelay   time.Duration `mapstructure:"submit_delay"`
	MessageWindow time.Duration `mapstructure:"message_window"`
}

// LogConfig defines the logger configuration options
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

var globalConfig *Config

// Load reads configuration from environment variables and an optional config file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".tokenswap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Set default values
	v.SetDefault("api.base_url", "https://interview.switcheo.com")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("api.retry_delay", "1s")
	v.SetDefault("icons.base_url", "https://raw.githubusercontent.com/Switcheo/token-icons/main/tokens")
	v.SetDefault("refresh.interval", "30s")
	v.SetDefault("swap.submit_delay", "1500ms")
	v.SetDefault("swap.message_window", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	// Read from environment variables (e.g. SWAP_API_BASE_URL)
	v.SetEnvPrefix("SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.API.RetryAttempts < 1 {
		return nil, fmt.Errorf("api.retry_attempts must be at least 1, got %d", cfg.API.RetryAttempts)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
