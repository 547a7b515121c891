package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents ledger storage configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// FeedConfig represents the rate and indicator feed configuration
type FeedConfig struct {
	BaseCurrency        string        `mapstructure:"base_currency"`
	RateInterval        time.Duration `mapstructure:"rate_interval"`
	MetricsInterval     time.Duration `mapstructure:"metrics_interval"`
	RateChangeThreshold float64       `mapstructure:"rate_change_threshold"`  // relative, e.g. 0.01 = 1%
	PolicyRateThreshold float64       `mapstructure:"policy_rate_threshold"`  // absolute percentage points
}

// RiskConfig represents risk scorer configuration
type RiskConfig struct {
	GeoDistanceKm   float64 `mapstructure:"geo_distance_km"`
	AmountMultiple  int64   `mapstructure:"amount_multiple"`
	ActiveHourStart int     `mapstructure:"active_hour_start"`
	ActiveHourEnd   int     `mapstructure:"active_hour_end"`
}

// FeeConfig represents the deterministic fee schedule and transfer limits
type FeeConfig struct {
	Currency           string  `mapstructure:"currency"`
	BaseFee            float64 `mapstructure:"base_fee"`
	CrossBankSurcharge float64 `mapstructure:"cross_bank_surcharge"`
	BasisPointRate     float64 `mapstructure:"basis_point_rate"`   // applied above threshold
	BasisPointFloor    float64 `mapstructure:"basis_point_floor"`  // amount threshold
	HardCeiling        float64 `mapstructure:"hard_ceiling"`
}

// AlertConfig represents alert bus and alarm configuration
type AlertConfig struct {
	BufferCapacity   int     `mapstructure:"buffer_capacity"`
	SubscriberBuffer int     `mapstructure:"subscriber_buffer"`
	FraudRateAlarm   float64 `mapstructure:"fraud_rate_alarm"` // alarm when flagged ratio rises above
	UptimeAlarm      float64 `mapstructure:"uptime_alarm"`     // alarm when uptime falls below
}

// ConnectorConfig represents bank connection manager configuration
type ConnectorConfig struct {
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// Config is the root configuration for the engine
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Fees      FeeConfig       `mapstructure:"fees"`
	Alerts    AlertConfig     `mapstructure:"alerts"`
	Connector ConnectorConfig `mapstructure:"connector"`
}

// LoadConfig reads configuration from bankcore.yaml (if present) and the
// BANKCORE_* environment, applying defaults for anything unset.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("bankcore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bankcore")

	v.SetEnvPrefix("BANKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Feed.RateInterval <= 0 || c.Feed.MetricsInterval <= 0 {
		return fmt.Errorf("feed intervals must be positive")
	}
	if c.Fees.HardCeiling <= 0 {
		return fmt.Errorf("transfer hard ceiling must be positive")
	}
	if c.Alerts.BufferCapacity <= 0 {
		return fmt.Errorf("alert buffer capacity must be positive")
	}
	if c.Risk.ActiveHourStart < 0 || c.Risk.ActiveHourEnd > 23 || c.Risk.ActiveHourStart >= c.Risk.ActiveHourEnd {
		return fmt.Errorf("invalid risk active hour window: %d-%d", c.Risk.ActiveHourStart, c.Risk.ActiveHourEnd)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "bankcore.db")

	v.SetDefault("feed.base_currency", "DZD")
	v.SetDefault("feed.rate_interval", 30*time.Second)
	v.SetDefault("feed.metrics_interval", 10*time.Second)
	v.SetDefault("feed.rate_change_threshold", 0.01)
	v.SetDefault("feed.policy_rate_threshold", 0.1)

	v.SetDefault("risk.geo_distance_km", 500.0)
	v.SetDefault("risk.amount_multiple", 5)
	v.SetDefault("risk.active_hour_start", 6)
	v.SetDefault("risk.active_hour_end", 22)

	v.SetDefault("fees.currency", "DZD")
	v.SetDefault("fees.base_fee", 50.0)
	v.SetDefault("fees.cross_bank_surcharge", 100.0)
	v.SetDefault("fees.basis_point_rate", 0.001)
	v.SetDefault("fees.basis_point_floor", 100000.0)
	v.SetDefault("fees.hard_ceiling", 5000000.0)

	v.SetDefault("alerts.buffer_capacity", 100)
	v.SetDefault("alerts.subscriber_buffer", 64)
	v.SetDefault("alerts.fraud_rate_alarm", 25.0)
	v.SetDefault("alerts.uptime_alarm", 99.0)

	v.SetDefault("connector.probe_timeout", 2*time.Second)
	v.SetDefault("connector.retry_attempts", 3)
	v.SetDefault("connector.retry_backoff", 200*time.Millisecond)
}
