package admission

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmckeone/omnis-bouncer/internal/keys"
	"github.com/dmckeone/omnis-bouncer/internal/logging"
	"github.com/dmckeone/omnis-bouncer/internal/metrics"
)

// Event names, mirroring the concrete verb set observed in the original
// implementation's QueueEvent enum. All but waiting_page:updated are
// concrete instances of the {settings|queue|store}:<verb> taxonomy;
// waiting_page:updated sits outside it and is not matched by a
// "^(settings|queue|store):" pattern.
const (
	EventSettingsUpdated   = "settings:updated"
	EventWaitingPageUpdate = "waiting_page:updated"
	EventQueueAdded        = "queue:added"
	EventQueueExpired      = "queue:expired"
	EventQueueRemoved      = "queue:removed"
	EventStoreAdded        = "store:added"
	EventStoreExpired      = "store:expired"
	EventStorePromote      = "store:promote"
)

// Event is one change notification delivered to Subscribe callbacks. It is
// an in-process convenience wrapper only -- the wire payload on :events is
// the bare Name string (see publish), not this struct. Count is recovered
// on receipt from a trailing ":<n>" suffix on events whose taxonomy carries
// one (e.g. "store:promote:3"); it is 0 when the event name carries no
// count.
type Event struct {
	Prefix string
	Name   string
	Count  int
	At     time.Time
}

// decodeEvent reconstructs an Event from a raw :events channel message.
// channel is "<prefix>:events"; payload is the raw event name as published.
func decodeEvent(channel, payload string) Event {
	event := Event{
		Prefix: strings.TrimSuffix(channel, ":events"),
		Name:   payload,
		At:     time.Now(),
	}
	if idx := strings.LastIndex(payload, ":"); idx != -1 {
		if n, err := strconv.Atoi(payload[idx+1:]); err == nil {
			event.Count = n
		}
	}
	return event
}

// shouldThrottle reports whether an event last published at last (valid
// only if seen) should be suppressed at now, given window.
func shouldThrottle(last time.Time, seen bool, now time.Time, window time.Duration) bool {
	return seen && now.Sub(last) < window
}

type subscription struct {
	id       uint64
	pattern  *regexp.Regexp
	callback func(Event)
}

// publish sends a change event for prefix, subject to the configured
// publish throttle: an event of the same name for the same prefix already
// published within the throttle window is suppressed. Grounded on the
// original implementation's throttle_buffer/emit/flush_event_throttle_buffer
// design. Per spec.md's external interface, the wire payload is the raw
// event name itself, not an envelope -- matching the original QueueEvent ->
// String wire form. Any count the taxonomy calls for (e.g. "store:promote:3")
// is already baked into name by the caller before it reaches here.
func (c *Client) publish(ctx context.Context, prefix, name string) {
	throttleKey := prefix + "\x00" + name
	if c.opts.PublishThrottle > 0 {
		c.throttleMu.Lock()
		last, seen := c.throttleLast[throttleKey]
		now := time.Now()
		if shouldThrottle(last, seen, now, c.opts.PublishThrottle) {
			c.throttleMu.Unlock()
			metrics.EventsThrottled.WithLabelValues(name).Inc()
			return
		}
		c.throttleLast[throttleKey] = now
		c.throttleMu.Unlock()
	}

	if err := c.rdb.Publish(ctx, keys.Events(prefix), name).Err(); err != nil {
		logging.Error("failed to publish event", map[string]any{"event": name, "prefix": prefix, "err": err.Error()})
		return
	}
	metrics.EventsPublished.WithLabelValues(name).Inc()
}

// Subscribe registers callback for every event whose name matches pattern
// (a regular expression, e.g. "^(settings|queue|store):"). It lazily
// starts a single Redis PSubscribe loop across all prefixes' :events
// channels the first time any caller subscribes.
func (c *Client) Subscribe(pattern string, callback func(Event)) (func(), error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.subOnce.Do(func() {
		go c.runSubscriptionLoop(context.Background())
	})

	c.subMu.Lock()
	c.nextSub++
	id := c.nextSub
	sub := &subscription{id: id, pattern: re, callback: callback}
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
	}
	return unsubscribe, nil
}

func (c *Client) runSubscriptionLoop(ctx context.Context) {
	pubsub := c.rdb.PSubscribe(ctx, "*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		c.dispatchEvent(decodeEvent(msg.Channel, msg.Payload))
	}
}

func (c *Client) dispatchEvent(event Event) {
	c.subMu.Lock()
	matching := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		if s.pattern.MatchString(event.Name) {
			matching = append(matching, s)
		}
	}
	c.subMu.Unlock()

	for _, s := range matching {
		s.callback(event)
	}

	if event.Name == EventWaitingPageUpdate {
		c.invalidateWaitingPage(event.Prefix)
	}
}
