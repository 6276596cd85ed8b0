// Package housekeeper runs the periodic queue/store maintenance cycle:
// expire queue entries, expire store entries, promote from queue to store,
// and stamp the sync timestamp. It is safe to run on every front-end
// concurrently; a SET NX EX lease elects a single worker per tick.
package housekeeper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmckeone/omnis-bouncer/internal/admission"
	"github.com/dmckeone/omnis-bouncer/internal/keys"
	"github.com/dmckeone/omnis-bouncer/internal/logging"
	"github.com/dmckeone/omnis-bouncer/internal/metrics"
)

// Housekeeper drives one or more prefixes' maintenance cycles on a fixed
// period.
type Housekeeper struct {
	client   *admission.Client
	rdb      *redis.Client
	prefixes []string
	period   time.Duration
	holder   string
}

// New builds a Housekeeper for the given prefixes.
func New(client *admission.Client, rdb *redis.Client, prefixes []string, period time.Duration) *Housekeeper {
	return &Housekeeper{
		client:   client,
		rdb:      rdb,
		prefixes: prefixes,
		period:   period,
		holder:   uuid.New().String(),
	}
}

// Run ticks every period until ctx is cancelled, running one cycle per
// prefix on each tick.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, prefix := range h.prefixes {
				h.tick(ctx, prefix)
			}
		}
	}
}

func (h *Housekeeper) tick(ctx context.Context, prefix string) {
	l := newLease(h.rdb, keys.QueueSyncTimestamp(prefix)+":lease", h.holder, 2*h.period)
	acquired, err := l.acquire(ctx)
	if err != nil {
		logging.Error("housekeeper lease acquire failed", map[string]any{"prefix": prefix, "err": err.Error()})
		return
	}
	if !acquired {
		return
	}
	metrics.HousekeepLeaseHeld.Set(1)
	defer func() {
		metrics.HousekeepLeaseHeld.Set(0)
		if err := l.release(ctx); err != nil {
			logging.Error("housekeeper lease release failed", map[string]any{"prefix": prefix, "err": err.Error()})
		}
	}()

	if err := h.cycle(ctx, prefix); err != nil {
		logging.Error("housekeeper cycle failed", map[string]any{"prefix": prefix, "err": err.Error()})
	}
}

// cycle runs the three maintenance scripts in order (queue_timeout,
// store_timeout, store_promote) and stamps the sync timestamp on success,
// per the component design's cycle contract.
func (h *Housekeeper) cycle(ctx context.Context, prefix string) error {
	start := time.Now()
	now := start

	queueRemoved, err := h.client.QueueTimeout(ctx, prefix, now)
	if err != nil {
		return err
	}
	storeRemoved, err := h.client.StoreTimeout(ctx, prefix, now)
	if err != nil {
		return err
	}
	promoted, err := h.client.StorePromote(ctx, prefix)
	if err != nil {
		return err
	}

	if err := h.rdb.Set(ctx, keys.QueueSyncTimestamp(prefix), now.Unix(), 0).Err(); err != nil {
		return err
	}

	metrics.HousekeepCycles.Inc()
	metrics.HousekeepCycleDuration.Observe(time.Since(start).Seconds())
	if queueRemoved > 0 {
		metrics.HousekeepRemoved.WithLabelValues("queue").Add(float64(queueRemoved))
	}
	if storeRemoved > 0 {
		metrics.HousekeepRemoved.WithLabelValues("store").Add(float64(storeRemoved))
	}
	if promoted > 0 {
		metrics.HousekeepPromoted.Add(float64(promoted))
	}
	if queueRemoved > 0 || storeRemoved > 0 || promoted > 0 {
		logging.Info("housekeeper cycle completed", map[string]any{
			"prefix":        prefix,
			"queue_removed": queueRemoved,
			"store_removed": storeRemoved,
			"promoted":      promoted,
		})
	}
	return nil
}
