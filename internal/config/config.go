// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"telegram-storefront/internal/model"
)

// Store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Lock     LockConfig     `mapstructure:"lock"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
	// WebAppURL is the Mini App URL opened from the /start button. Empty hides the button.
	WebAppURL string `mapstructure:"webapp_url"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	// URL, when set, is used as the DSN and the discrete fields are ignored.
	URL               string        `mapstructure:"url"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Name              string        `mapstructure:"name"`
	PoolSize          int           `mapstructure:"pool_size"`
	MinConns          int           `mapstructure:"min_conns"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// LogLevel enables pgx query logging (trace, debug, info, warn, error). Empty disables it.
	LogLevel string `mapstructure:"log_level"`
}

// StoreConfig selects the data store implementation.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// SnapshotPath persists the memory store to a JSON file. Empty keeps it in memory only.
	SnapshotPath string `mapstructure:"snapshot_path"`
	// Seed inserts the demo catalog when the store has no products.
	Seed bool `mapstructure:"seed"`
}

// HTTPConfig holds the Mini App API server configuration.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	InitDataMaxAge  time.Duration `mapstructure:"init_data_max_age"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WalletConfig holds balance policy. Amounts are decimal strings.
type WalletConfig struct {
	InitialBalance string `mapstructure:"initial_balance"`
	// MaxDeposit caps a single top-up. "0" disables the cap.
	MaxDeposit string `mapstructure:"max_deposit"`
}

// LockConfig holds per-key lock configuration.
type LockConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// TracingConfig holds OpenTelemetry export settings. Disabled keeps the
// global no-op tracer.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, STORE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "storefront")
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.log_level", "")

	// Store defaults
	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.snapshot_path", "")
	v.SetDefault("store.seed", true)

	// HTTP defaults
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.init_data_max_age", "24h")
	v.SetDefault("http.shutdown_timeout", "10s")

	// Wallet defaults
	v.SetDefault("wallet.initial_balance", "0")
	v.SetDefault("wallet.max_deposit", "10000")

	v.SetDefault("lock.timeout", "5s")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "telegram-storefront")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	initial, err := c.InitialBalance()
	if err != nil {
		return err
	}
	if initial.IsNegative() {
		return fmt.Errorf("wallet.initial_balance must not be negative")
	}

	maxDeposit, err := c.MaxDeposit()
	if err != nil {
		return err
	}
	if maxDeposit.IsNegative() {
		return fmt.Errorf("wallet.max_deposit must not be negative")
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1")
	}

	return nil
}

// InitialBalance returns the balance granted to new users.
func (c *Config) InitialBalance() (decimal.Decimal, error) {
	return parseAmount("wallet.initial_balance", c.Wallet.InitialBalance)
}

// MaxDeposit returns the single top-up cap; zero means unlimited.
func (c *Config) MaxDeposit() (decimal.Decimal, error) {
	return parseAmount("wallet.max_deposit", c.Wallet.MaxDeposit)
}

func parseAmount(key, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	// Both stores must hold the value exactly, as a NUMERIC(14, 2) column does.
	if err := model.CheckMoney(d, model.AmountPrecision); err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

