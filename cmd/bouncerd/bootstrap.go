package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmckeone/omnis-bouncer/internal/admission"
	"github.com/dmckeone/omnis-bouncer/internal/config"
	"github.com/dmckeone/omnis-bouncer/internal/redisconn"
)

type app struct {
	cfg    *config.AppConfig
	rdb    *redis.Client
	client *admission.Client
}

func bootstrap(ctx context.Context, env string) (*app, error) {
	if err := config.Initialize(env); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := config.Get()

	rdb, err := redisconn.New(ctx, redisconn.Options{
		Address:        cfg.Redis.Address,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		PoolSize:       cfg.Redis.PoolSize,
		ConnectTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
		AcquireTimeout: time.Duration(cfg.Redis.AcquireTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	client := admission.NewClient(rdb, admission.Options{
		ValidatedExpiry:      time.Duration(cfg.Queue.ValidatedExpiry) * time.Second,
		QuarantineExpiry:     time.Duration(cfg.Queue.QuarantineExpiry) * time.Second,
		PublishThrottle:      time.Duration(cfg.Queue.PublishThrottle) * time.Millisecond,
		DefaultStoreCapacity: cfg.Queue.StoreCapacity,
		DefaultQueueEnabled:  cfg.Queue.QueueEnabled,
	})

	return &app{cfg: cfg, rdb: rdb, client: client}, nil
}

func (a *app) close() error {
	return redisconn.Close(a.rdb)
}
