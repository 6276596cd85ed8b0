package admission

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmckeone/omnis-bouncer/internal/bouncererr"
	"github.com/dmckeone/omnis-bouncer/internal/keys"
	"github.com/dmckeone/omnis-bouncer/internal/metrics"
)

// Status reads prefix's whole configuration and size snapshot in a single
// pipeline, grounded on the original queue_status accessor's use of an
// atomic Redis pipeline rather than sequential round trips.
func (c *Client) Status(ctx context.Context, prefix string) (Status, error) {
	pipe := c.rdb.Pipeline()
	enabledCmd := pipe.Get(ctx, keys.QueueEnabled(prefix))
	capacityCmd := pipe.Get(ctx, keys.StoreCapacity(prefix))
	storeCmd := pipe.SCard(ctx, keys.StoreIDs(prefix))
	queueCmd := pipe.LLen(ctx, keys.QueueIDs(prefix))
	syncCmd := pipe.Get(ctx, keys.QueueSyncTimestamp(prefix))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Status{}, bouncererr.New(bouncererr.KindTransport, "status", err)
	}

	st := Status{
		QueueEnabled:  parseBoolDefault(enabledCmd.Val(), true),
		StoreCapacity: parseIntDefault(capacityCmd.Val(), -1),
		StoreSize:     int(storeCmd.Val()),
		QueueSize:     int(queueCmd.Val()),
	}
	if secs, err := strconv.ParseInt(syncCmd.Val(), 10, 64); err == nil {
		st.Updated = time.Unix(secs, 0)
	}

	metrics.StoreSize.Set(float64(st.StoreSize))
	metrics.QueueSize.Set(float64(st.QueueSize))

	return st, nil
}

func parseBoolDefault(raw string, def bool) bool {
	switch raw {
	case "0":
		return false
	case "1":
		return true
	default:
		return def
	}
}

func parseIntDefault(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// QueueEnabled reports whether prefix's queue is enabled; a missing or
// unrecognised stored value reads as enabled.
func (c *Client) QueueEnabled(ctx context.Context, prefix string) (bool, error) {
	raw, err := c.rdb.Get(ctx, keys.QueueEnabled(prefix)).Result()
	if err != nil && err != redis.Nil {
		return false, bouncererr.New(bouncererr.KindTransport, "queue_enabled", err)
	}
	return parseBoolDefault(raw, true), nil
}

// SetQueueEnabled sets prefix's queue-enabled flag explicitly and publishes
// settings:updated. A Go bool has no out-of-range value, so nothing is
// rejected here; raw string input is checked by SetQueueEnabledRaw.
func (c *Client) SetQueueEnabled(ctx context.Context, prefix string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	if err := c.rdb.Set(ctx, keys.QueueEnabled(prefix), value, 0).Err(); err != nil {
		return bouncererr.New(bouncererr.KindTransport, "set_queue_enabled", err)
	}
	c.publish(ctx, prefix, EventSettingsUpdated)
	return nil
}

// SetQueueEnabledRaw parses an administrative value for queue_enabled
// before converting it to bool. Unlike SetQueueEnabled, the input here
// comes from an untyped source (a CLI flag, an admin API body) that can
// actually be out of range, so a value outside {0,1,true,false} is
// rejected with ErrQueueEnabledOutOfRange rather than guessed at.
func (c *Client) SetQueueEnabledRaw(ctx context.Context, prefix, raw string) error {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return c.SetQueueEnabled(ctx, prefix, true)
	case "0", "false":
		return c.SetQueueEnabled(ctx, prefix, false)
	default:
		return bouncererr.New(bouncererr.KindInvalidArgument, "set_queue_enabled", bouncererr.ErrQueueEnabledOutOfRange)
	}
}

// StoreCapacity reads prefix's configured capacity; a missing or
// unparseable value is unbounded (-1), matching the atomic scripts'
// fallback rule.
func (c *Client) StoreCapacity(ctx context.Context, prefix string) (int, error) {
	raw, err := c.rdb.Get(ctx, keys.StoreCapacity(prefix)).Result()
	if err != nil && err != redis.Nil {
		return 0, bouncererr.New(bouncererr.KindTransport, "store_capacity", err)
	}
	return parseIntDefault(raw, -1), nil
}

// SetStoreCapacity sets prefix's configured capacity explicitly. A value
// below -1 is rejected with ErrStoreCapacityOutOfRange
// rather than silently falling back to unbounded, since the fallback rule
// is about scripts reading a possibly-absent key, not about an
// administrator's explicit input.
func (c *Client) SetStoreCapacity(ctx context.Context, prefix string, capacity int) error {
	if capacity < -1 {
		return bouncererr.New(bouncererr.KindInvalidArgument, "set_store_capacity", bouncererr.ErrStoreCapacityOutOfRange)
	}
	if err := c.rdb.Set(ctx, keys.StoreCapacity(prefix), strconv.Itoa(capacity), 0).Err(); err != nil {
		return bouncererr.New(bouncererr.KindTransport, "set_store_capacity", err)
	}
	c.publish(ctx, prefix, EventSettingsUpdated)
	return nil
}
