package config

import "github.com/spf13/viper"

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)

	// Redis
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolSize", 50)
	viper.SetDefault("redis.connectTimeout", 10)
	viper.SetDefault("redis.acquireTimeout", 10)

	// Queue
	viper.SetDefault("queue.prefix", "omnis_bouncer")
	viper.SetDefault("queue.storeCapacity", -1)
	viper.SetDefault("queue.queueEnabled", true)
	viper.SetDefault("queue.validatedExpiry", 600)
	viper.SetDefault("queue.quarantineExpiry", 45)
	viper.SetDefault("queue.publishThrottle", 0)
	viper.SetDefault("queue.housekeepPeriod", 5)

	// Metrics
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")
}
