package admission

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/dmckeone/omnis-bouncer/internal/bouncererr"
	"github.com/dmckeone/omnis-bouncer/internal/keys"
)

// QueueWaitingPage returns prefix's opaque waiting-page blob, reading
// through to the backing store and priming the local cache on a miss. The
// core treats the blob as opaque bytes; templating and minification are a
// layer above this one.
func (c *Client) QueueWaitingPage(ctx context.Context, prefix string) (string, error) {
	if cached, ok := c.CachedQueueWaitingPage(prefix); ok {
		return cached, nil
	}

	raw, err := c.rdb.Get(ctx, keys.WaitingPage(prefix)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", bouncererr.New(bouncererr.KindTransport, "queue_waiting_page", err)
	}

	c.wpMu.Lock()
	c.wpCache[prefix] = raw
	c.wpMu.Unlock()
	return raw, nil
}

// CachedQueueWaitingPage returns prefix's cached blob without ever
// touching Redis, so a request in flight never blocks on the backing store
// once the cache has been primed.
func (c *Client) CachedQueueWaitingPage(prefix string) (string, bool) {
	c.wpMu.RLock()
	defer c.wpMu.RUnlock()
	cached, ok := c.wpCache[prefix]
	return cached, ok
}

// SetQueueWaitingPage stores a new waiting-page blob for prefix, primes
// this process's cache, and publishes waiting_page:updated so other
// processes invalidate their own cached copy on the next read.
func (c *Client) SetQueueWaitingPage(ctx context.Context, prefix, html string) error {
	if err := c.rdb.Set(ctx, keys.WaitingPage(prefix), html, 0).Err(); err != nil {
		return bouncererr.New(bouncererr.KindTransport, "set_queue_waiting_page", err)
	}

	c.wpMu.Lock()
	c.wpCache[prefix] = html
	c.wpMu.Unlock()

	c.publish(ctx, prefix, EventWaitingPageUpdate)
	return nil
}

func (c *Client) invalidateWaitingPage(prefix string) {
	c.wpMu.Lock()
	delete(c.wpCache, prefix)
	c.wpMu.Unlock()
}
