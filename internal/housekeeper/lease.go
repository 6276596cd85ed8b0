package housekeeper

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseLeaseLua releases a lease only if still held by the expected
// holder, avoiding a bare DEL that could release a lease another worker
// has since acquired after this one's lease already expired.
// KEYS[1]: lease key
// ARGV[1]: expected holder
// Returns: 1 if released, 0 if not held by this holder.
const releaseLeaseLua = `
local current = redis.call("GET", KEYS[1])
if current == ARGV[1] then
    redis.call("DEL", KEYS[1])
    return 1
end
return 0
`

var releaseLeaseScript = redis.NewScript(releaseLeaseLua)

// lease is a single-worker mutual-exclusion lock over one housekeeping
// cycle, implemented as SET NX EX with an ownership-checked release.
type lease struct {
	rdb    *redis.Client
	key    string
	holder string
	ttl    time.Duration
}

func newLease(rdb *redis.Client, key, holder string, ttl time.Duration) *lease {
	return &lease{rdb: rdb, key: key, holder: holder, ttl: ttl}
}

// acquire attempts to take the lease, returning false if another worker
// already holds it.
func (l *lease) acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, l.holder, l.ttl).Result()
}

// release gives up the lease if this worker still holds it, so the next
// tick can re-acquire promptly instead of waiting out the full TTL.
func (l *lease) release(ctx context.Context) error {
	return releaseLeaseScript.Run(ctx, l.rdb, []string{l.key}, l.holder).Err()
}
