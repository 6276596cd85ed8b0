// Package redisconn builds the Redis client shared by the admission client
// and the housekeeper, adapted from this lineage's services.NewRedisClient.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the pooled Redis client.
type Options struct {
	Address        string
	Password       string
	DB             int
	PoolSize       int
	ConnectTimeout time.Duration
	AcquireTimeout time.Duration
}

// New builds a pooled Redis client and verifies connectivity with a single
// PING bounded by ConnectTimeout.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		DB:           opts.DB,
		Password:     opts.Password,
		PoolSize:     opts.PoolSize,
		PoolTimeout:  opts.AcquireTimeout,
		DialTimeout:  opts.ConnectTimeout,
		ReadTimeout:  opts.ConnectTimeout,
		WriteTimeout: opts.ConnectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// Close closes client, tolerating a nil client.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
