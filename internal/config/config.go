// Package config loads bouncerd's runtime configuration via viper, the same
// env-bound-YAML pattern used throughout this lineage's services.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// AppConfig is the full, validated configuration for one bouncerd process.
type AppConfig struct {
	Server  ServerConfig
	Redis   RedisConfig
	Queue   QueueConfig
	Metrics MetricsConfig
}

// ServerConfig configures the admin/status HTTP surface, if enabled.
type ServerConfig struct {
	Port int
}

// RedisConfig configures the backing Redis connection.
type RedisConfig struct {
	Address        string
	Password       string
	DB             int
	PoolSize       int
	ConnectTimeout int // Seconds
	AcquireTimeout int // Seconds
}

// QueueConfig configures one admission core's behaviour.
type QueueConfig struct {
	Prefix           string
	StoreCapacity    int // negative = unbounded
	QueueEnabled     bool
	ValidatedExpiry  int // Seconds
	QuarantineExpiry int // Seconds
	PublishThrottle  int // Milliseconds
	HousekeepPeriod  int // Seconds
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

var (
	instance *AppConfig
	initErr  error
	once     sync.Once
)

// Initialize loads configuration for the given environment name exactly
// once; subsequent calls are no-ops that return the first error, if any.
func Initialize(env string) error {
	once.Do(func() {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")

		viper.AutomaticEnv()
		viper.SetEnvPrefix("BOUNCER")

		setDefaults()
		bindEnvVars()

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				initErr = fmt.Errorf("config file error: %w", err)
				return
			}
		}

		cfg := &AppConfig{}
		if err := viper.Unmarshal(cfg); err != nil {
			initErr = fmt.Errorf("config unmarshal error: %w", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			initErr = fmt.Errorf("config validation failed: %w", err)
			return
		}
		instance = cfg
	})
	return initErr
}

// Get returns the process-wide configuration. Initialize must run first.
func Get() *AppConfig {
	return instance
}
