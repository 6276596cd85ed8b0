// Package admission implements the Admission Client: the stateless façade
// that dispatches the atomic state scripts, publishes change events, and
// exposes typed accessors over one prefix's configuration. It is the only
// thing outside internal/scripts that talks to Redis on the request path.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmckeone/omnis-bouncer/internal/bouncererr"
	"github.com/dmckeone/omnis-bouncer/internal/keys"
	"github.com/dmckeone/omnis-bouncer/internal/metrics"
	"github.com/dmckeone/omnis-bouncer/internal/scripts"
)

var noKeys []string

// Options configures a Client's defaults. ValidatedExpiry and
// QuarantineExpiry are the TTLs stamped by the atomic scripts;
// DefaultStoreCapacity/DefaultQueueEnabled are the values a reseed writes
// back after a detected backing-store flush.
type Options struct {
	ValidatedExpiry      time.Duration
	QuarantineExpiry     time.Duration
	PublishThrottle      time.Duration
	DefaultStoreCapacity int
	DefaultQueueEnabled  bool
}

// Client is the Admission Client. One Client serves any number of prefixes
// against a single backing store.
type Client struct {
	rdb      *redis.Client
	registry *scripts.Registry
	opts     Options

	sf singleflight.Group

	throttleMu   sync.Mutex
	throttleLast map[string]time.Time

	wpMu    sync.RWMutex
	wpCache map[string]string

	subMu   sync.Mutex
	subs    []*subscription
	nextSub uint64
	subOnce sync.Once
}

// NewClient builds a Client over an already-connected Redis client.
func NewClient(rdb *redis.Client, opts Options) *Client {
	return &Client{
		rdb:          rdb,
		registry:     scripts.NewRegistry(),
		opts:         opts,
		throttleLast: make(map[string]time.Time),
		wpCache:      make(map[string]string),
	}
}

// Status is the point-in-time snapshot exposed to the status UI.
type Status struct {
	QueueEnabled  bool
	StoreCapacity int
	QueueSize     int
	StoreSize     int
	Updated       time.Time
}

func isNoScript(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT")
}

// dispatch runs script s for prefix with argv appended after the prefix
// argument every script expects as ARGV[1]. It implements the two defined
// retry points from the error handling design: a NOSCRIPT reply reloads
// the script body and, if the reload reveals the configuration keys are
// also gone (a backing-store flush wipes both together), reseeds them --
// then retries the call exactly once via cenkalti/backoff's single-retry
// policy.
func (c *Client) dispatch(ctx context.Context, s *scripts.Script, prefix string, argv ...interface{}) (interface{}, error) {
	args := make([]interface{}, 0, len(argv)+1)
	args = append(args, prefix)
	args = append(args, argv...)

	start := time.Now()
	var res interface{}
	var lastKind bouncererr.Kind

	attempt := func() error {
		out, err := c.rdb.EvalSha(ctx, s.SHA, noKeys, args...).Result()
		if err == nil {
			res = out
			return nil
		}
		if !isNoScript(err) {
			return backoff.Permanent(bouncererr.New(bouncererr.KindTransport, s.Name, err))
		}

		lastKind = bouncererr.KindScriptMissing
		metrics.ScriptReloads.WithLabelValues(s.Name).Inc()
		if _, loadErr, _ := c.sf.Do(s.Name, func() (interface{}, error) {
			return c.rdb.ScriptLoad(ctx, s.Body).Result()
		}); loadErr != nil {
			return backoff.Permanent(bouncererr.New(bouncererr.KindTransport, "script_load:"+s.Name, loadErr))
		}

		if s != c.registry.CheckSyncKeys {
			if synced, syncErr := c.CheckSyncKeys(ctx, prefix); syncErr == nil && !synced {
				lastKind = bouncererr.KindUninitialized
				if reseedErr := c.reseed(ctx, prefix); reseedErr != nil {
					return backoff.Permanent(reseedErr)
				}
			}
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		} else {
			err = bouncererr.New(bouncererr.KindTransport, s.Name, err)
		}
		metrics.ScriptErrors.WithLabelValues(s.Name, lastKind.String()).Inc()
		return nil, err
	}

	metrics.ScriptCallDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
	return res, nil
}

// reseed writes the fallback configuration values back to a prefix whose
// sync keys were found missing, grounded on the "flushed mid-run" scenario
// in the testable properties.
func (c *Client) reseed(ctx context.Context, prefix string) error {
	pipe := c.rdb.TxPipeline()
	enabled := "0"
	if c.opts.DefaultQueueEnabled {
		enabled = "1"
	}
	pipe.Set(ctx, keys.QueueEnabled(prefix), enabled, 0)
	pipe.Set(ctx, keys.StoreCapacity(prefix), strconv.Itoa(c.opts.DefaultStoreCapacity), 0)
	pipe.Set(ctx, keys.QueueSyncTimestamp(prefix), strconv.FormatInt(time.Now().Unix(), 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return bouncererr.New(bouncererr.KindTransport, "reseed", err)
	}
	return nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	default:
		return 0
	}
}

// PositionOrAdd is the hot path: it returns whether id was newly added and
// its position (0 = admitted to the store).
func (c *Client) PositionOrAdd(ctx context.Context, prefix, id string, now time.Time) (bool, uint64, error) {
	raw, err := c.dispatch(ctx, c.registry.IDPosition, prefix, id, now.Unix(),
		int64(c.opts.ValidatedExpiry.Seconds()), int64(c.opts.QuarantineExpiry.Seconds()), int64(1))
	if err != nil {
		return false, 0, err
	}
	result, ok := raw.([]interface{})
	if !ok || len(result) != 2 {
		return false, 0, bouncererr.New(bouncererr.KindTransport, "id_position", fmt.Errorf("unexpected reply %#v", raw))
	}
	added := toInt64(result[0]) == 1
	position := toInt64(result[1])
	if added {
		if position == 0 {
			c.publish(ctx, prefix, EventStoreAdded)
		} else {
			c.publish(ctx, prefix, EventQueueAdded)
		}
	}
	return added, uint64(position), nil
}

// Position reports id's current location without inserting it.
func (c *Client) Position(ctx context.Context, prefix, id string, now time.Time) (scripts.Position, error) {
	raw, err := c.dispatch(ctx, c.registry.IDPosition, prefix, id, now.Unix(),
		int64(c.opts.ValidatedExpiry.Seconds()), int64(c.opts.QuarantineExpiry.Seconds()), int64(0))
	if err != nil {
		return scripts.Position{}, err
	}
	result, ok := raw.([]interface{})
	if !ok || len(result) != 2 {
		return scripts.Position{}, bouncererr.New(bouncererr.KindTransport, "id_position", fmt.Errorf("unexpected reply %#v", raw))
	}
	return scripts.DecodePosition(toInt64(result[1])), nil
}

// Add mirrors id_add directly, without the (added, position) tuple.
func (c *Client) Add(ctx context.Context, prefix, id string, now time.Time) (uint64, error) {
	raw, err := c.dispatch(ctx, c.registry.IDAdd, prefix, id, now.Unix(),
		int64(c.opts.ValidatedExpiry.Seconds()), int64(c.opts.QuarantineExpiry.Seconds()))
	if err != nil {
		return 0, err
	}
	position := toInt64(raw)
	if position == 0 {
		c.publish(ctx, prefix, EventStoreAdded)
	} else {
		c.publish(ctx, prefix, EventQueueAdded)
	}
	return uint64(position), nil
}

// Remove evicts id, whether it is currently queued or admitted.
func (c *Client) Remove(ctx context.Context, prefix, id string, now time.Time) error {
	if _, err := c.dispatch(ctx, c.registry.IDRemove, prefix, id, now.Unix()); err != nil {
		return err
	}
	c.publish(ctx, prefix, EventQueueRemoved)
	return nil
}

// Promote unconditionally moves id into the store, bypassing capacity.
func (c *Client) Promote(ctx context.Context, prefix, id string, now time.Time) error {
	if _, err := c.dispatch(ctx, c.registry.IDPromote, prefix, id, now.Unix(), int64(c.opts.ValidatedExpiry.Seconds())); err != nil {
		return err
	}
	c.publish(ctx, prefix, EventStoreAdded)
	return nil
}

// StorePromote fills free store capacity from the queue front, returning
// the number of ids moved.
func (c *Client) StorePromote(ctx context.Context, prefix string) (int, error) {
	raw, err := c.dispatch(ctx, c.registry.StorePromote, prefix)
	if err != nil {
		return 0, err
	}
	moved := int(toInt64(raw))
	if moved > 0 {
		c.publish(ctx, prefix, fmt.Sprintf("%s:%d", EventStorePromote, moved))
	}
	return moved, nil
}

// PromoteN unconditionally moves up to n ids from queue to store.
func (c *Client) PromoteN(ctx context.Context, prefix string, n int) (int, error) {
	raw, err := c.dispatch(ctx, c.registry.StorePromoteN, prefix, int64(n))
	if err != nil {
		return 0, err
	}
	moved := int(toInt64(raw))
	if moved > 0 {
		c.publish(ctx, prefix, fmt.Sprintf("%s:%d", EventStorePromote, moved))
	}
	return moved, nil
}

// QueueTimeout evicts expired queue entries; not on the request hot path.
func (c *Client) QueueTimeout(ctx context.Context, prefix string, now time.Time) (int, error) {
	raw, err := c.dispatch(ctx, c.registry.QueueTimeout, prefix, now.Unix())
	if err != nil {
		return 0, err
	}
	removed := int(toInt64(raw))
	if removed > 0 {
		c.publish(ctx, prefix, fmt.Sprintf("%s:%d", EventQueueExpired, removed))
	}
	return removed, nil
}

// StoreTimeout evicts expired store entries; not on the request hot path.
func (c *Client) StoreTimeout(ctx context.Context, prefix string, now time.Time) (int, error) {
	raw, err := c.dispatch(ctx, c.registry.StoreTimeout, prefix, now.Unix())
	if err != nil {
		return 0, err
	}
	removed := int(toInt64(raw))
	if removed > 0 {
		c.publish(ctx, prefix, fmt.Sprintf("%s:%d", EventStoreExpired, removed))
	}
	return removed, nil
}

// HasIDs reports whether either container holds ids for prefix.
func (c *Client) HasIDs(ctx context.Context, prefix string) (bool, error) {
	raw, err := c.dispatch(ctx, c.registry.HasIDs, prefix)
	if err != nil {
		return false, err
	}
	return toInt64(raw) == 1, nil
}

// CheckSyncKeys reports whether prefix's configuration keys are all
// present. It bypasses dispatch's own sync check to avoid recursion.
func (c *Client) CheckSyncKeys(ctx context.Context, prefix string) (bool, error) {
	s := c.registry.CheckSyncKeys
	res, err := c.rdb.EvalSha(ctx, s.SHA, noKeys, prefix).Result()
	if err != nil {
		if !isNoScript(err) {
			return false, bouncererr.New(bouncererr.KindTransport, s.Name, err)
		}
		if _, loadErr, _ := c.sf.Do(s.Name, func() (interface{}, error) {
			return c.rdb.ScriptLoad(ctx, s.Body).Result()
		}); loadErr != nil {
			return false, bouncererr.New(bouncererr.KindTransport, "script_load:"+s.Name, loadErr)
		}
		res, err = c.rdb.EvalSha(ctx, s.SHA, noKeys, prefix).Result()
		if err != nil {
			return false, bouncererr.New(bouncererr.KindTransport, s.Name, err)
		}
	}
	return toInt64(res) == 1, nil
}
