package config

import (
	"errors"

	"github.com/spf13/viper"
)

func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Redis.Address == "" {
		return errors.New("redis address must be specified")
	}
	if c.Redis.PoolSize < 1 {
		return errors.New("redis pool size must be positive")
	}
	if c.Redis.ConnectTimeout < 1 {
		return errors.New("redis connect timeout must be positive")
	}
	if c.Redis.AcquireTimeout < 1 {
		return errors.New("redis acquire timeout must be positive")
	}

	if c.Queue.Prefix == "" {
		return errors.New("queue prefix must be specified")
	}
	if c.Queue.ValidatedExpiry < 1 {
		return errors.New("queue validated expiry must be positive")
	}
	if c.Queue.QuarantineExpiry < 1 {
		return errors.New("queue quarantine expiry must be positive")
	}
	if c.Queue.PublishThrottle < 0 {
		return errors.New("queue publish throttle must not be negative")
	}
	if c.Queue.HousekeepPeriod < 1 {
		return errors.New("queue housekeep period must be positive")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.New("invalid metrics port")
	}

	return nil
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "BOUNCER_PORT")

	// Redis
	viper.BindEnv("redis.address", "BOUNCER_REDIS_ADDRESS")
	viper.BindEnv("redis.password", "BOUNCER_REDIS_PASSWORD")
	viper.BindEnv("redis.db", "BOUNCER_REDIS_DB")
	viper.BindEnv("redis.poolSize", "BOUNCER_REDIS_POOL_SIZE")
	viper.BindEnv("redis.connectTimeout", "BOUNCER_REDIS_CONNECT_TIMEOUT")
	viper.BindEnv("redis.acquireTimeout", "BOUNCER_REDIS_ACQUIRE_TIMEOUT")

	// Queue
	viper.BindEnv("queue.prefix", "BOUNCER_QUEUE_PREFIX")
	viper.BindEnv("queue.storeCapacity", "BOUNCER_STORE_CAPACITY")
	viper.BindEnv("queue.queueEnabled", "BOUNCER_QUEUE_ENABLED")
	viper.BindEnv("queue.validatedExpiry", "BOUNCER_VALIDATED_EXPIRY")
	viper.BindEnv("queue.quarantineExpiry", "BOUNCER_QUARANTINE_EXPIRY")
	viper.BindEnv("queue.publishThrottle", "BOUNCER_PUBLISH_THROTTLE")
	viper.BindEnv("queue.housekeepPeriod", "BOUNCER_HOUSEKEEP_PERIOD")

	// Metrics
	viper.BindEnv("metrics.enabled", "BOUNCER_METRICS_ENABLED")
	viper.BindEnv("metrics.port", "BOUNCER_METRICS_PORT")
	viper.BindEnv("metrics.path", "BOUNCER_METRICS_PATH")
}
