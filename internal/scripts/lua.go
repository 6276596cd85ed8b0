// Package scripts holds the Lua bodies of the atomic state scripts and the
// small Go-side helpers needed to dispatch and decode them. Each script is a
// pure function of (prefix, arguments, current backing-store state)
// executed by Redis with no interleaving -- the source of truth for the
// queue/store invariants lives here, not in the admission client.
//
// Every key is rebuilt inside the script from the prefix argument rather
// than passed through KEYS, following the same "no KEYS, prefix + string
// concatenation" shape used for multi-key administrative scripts elsewhere
// in this codebase's lineage.
package scripts

// idAddLua adds id if absent, placing it in the store or the queue. A
// repeat call on an id already in either container is a no-op read that
// refreshes its expiry, so id_add composes safely with at-least-once
// retry.
// ARGV[1]: prefix
// ARGV[2]: id
// ARGV[3]: now (epoch seconds)
// ARGV[4]: validated_expiry (seconds)
// ARGV[5]: quarantine_expiry (seconds)
// Returns: position. 0 means admitted to the store; a positive integer is
// the new (or cached) 1-based queue position.
const idAddLua = `
local prefix = ARGV[1]
local id = ARGV[2]
local now = tonumber(ARGV[3])
local validated = tonumber(ARGV[4])
local quarantine = tonumber(ARGV[5])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'
local store_capacity = prefix .. ':store_capacity'

if redis.call('SISMEMBER', store_ids, id) == 1 then
  redis.call('HSET', store_expiry, id, now + validated)
  return 0
end

local cached = redis.call('HGET', queue_position_cache, id)
if cached then
  redis.call('HSET', queue_expiry, id, now + validated)
  return tonumber(cached)
end

local capacity = tonumber(redis.call('GET', store_capacity))
if capacity == nil then
  capacity = -1
end

if capacity < 0 then
  redis.call('SADD', store_ids, id)
  redis.call('HSET', store_expiry, id, now + validated)
  return 0
end

local queue_len = redis.call('LLEN', queue_ids)
if queue_len > 0 then
  redis.call('RPUSH', queue_ids, id)
  local position = queue_len + 1
  redis.call('HSET', queue_position_cache, id, position)
  redis.call('HSET', queue_expiry, id, now + quarantine)
  return position
end

local store_size = redis.call('SCARD', store_ids)
if store_size < capacity then
  redis.call('SADD', store_ids, id)
  redis.call('HSET', store_expiry, id, now + validated)
  return 0
end

redis.call('RPUSH', queue_ids, id)
local position = redis.call('LLEN', queue_ids)
redis.call('HSET', queue_position_cache, id, position)
redis.call('HSET', queue_expiry, id, now + quarantine)
return position
`

// idPositionLua is the hot path: report whether id is newly added and its
// position, touching (and upgrading to validated) its expiry in the same
// call. A touch on a queued id acts as a heartbeat in place of a separate
// keepalive; quarantine expiry is only ever assigned on first insertion.
// ARGV[1]: prefix
// ARGV[2]: id
// ARGV[3]: now (epoch seconds)
// ARGV[4]: validated_expiry (seconds)
// ARGV[5]: quarantine_expiry (seconds)
// ARGV[6]: create (1 to insert when absent, 0 to report NotPresent instead)
// Returns: {added, position}. added is 0 or 1. position is 0 for the
// store, a positive 1-based queue position, or -1 for "not present" (only
// reachable when create is 0 and the id is in neither queue nor store).
const idPositionLua = `
local prefix = ARGV[1]
local id = ARGV[2]
local now = tonumber(ARGV[3])
local validated = tonumber(ARGV[4])
local quarantine = tonumber(ARGV[5])
local create = tonumber(ARGV[6])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'
local store_capacity = prefix .. ':store_capacity'

if redis.call('SISMEMBER', store_ids, id) == 1 then
  redis.call('HSET', store_expiry, id, now + validated)
  return {0, 0}
end

local cached = redis.call('HGET', queue_position_cache, id)
if cached then
  redis.call('HSET', queue_expiry, id, now + validated)
  return {0, tonumber(cached)}
end

if create == 0 then
  return {0, -1}
end

local capacity = tonumber(redis.call('GET', store_capacity))
if capacity == nil then
  capacity = -1
end

if capacity < 0 then
  redis.call('SADD', store_ids, id)
  redis.call('HSET', store_expiry, id, now + validated)
  return {1, 0}
end

local queue_len = redis.call('LLEN', queue_ids)
if queue_len > 0 then
  redis.call('RPUSH', queue_ids, id)
  local position = queue_len + 1
  redis.call('HSET', queue_position_cache, id, position)
  redis.call('HSET', queue_expiry, id, now + quarantine)
  return {1, position}
end

local store_size = redis.call('SCARD', store_ids)
if store_size < capacity then
  redis.call('SADD', store_ids, id)
  redis.call('HSET', store_expiry, id, now + validated)
  return {1, 0}
end

redis.call('RPUSH', queue_ids, id)
local position = redis.call('LLEN', queue_ids)
redis.call('HSET', queue_position_cache, id, position)
redis.call('HSET', queue_expiry, id, now + quarantine)
return {1, position}
`

// idRemoveLua removes id from the queue (lazily, via an antedated expiry
// so the hot path never scans the list) or from the store (eagerly, since
// set membership and removal are both O(1)/O(log n)).
// ARGV[1]: prefix
// ARGV[2]: id
// ARGV[3]: now (epoch seconds)
// Returns: nothing meaningful; always succeeds, including when id is in
// neither container.
const idRemoveLua = `
local prefix = ARGV[1]
local id = ARGV[2]
local now = tonumber(ARGV[3])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_expiry = prefix .. ':queue_expiry_secs'

if redis.call('HEXISTS', queue_expiry, id) == 1 then
  redis.call('HSET', queue_expiry, id, now - 1)
  return 1
end

redis.call('SREM', store_ids, id)
redis.call('HDEL', store_expiry, id)
return 1
`

// idPromoteLua unconditionally moves id into the store, regardless of
// capacity, stamping it with a fresh validated expiry. Used for
// administrative overrides, not the capacity-respecting hot path.
// ARGV[1]: prefix
// ARGV[2]: id
// ARGV[3]: now (epoch seconds)
// ARGV[4]: validated_expiry (seconds)
const idPromoteLua = `
local prefix = ARGV[1]
local id = ARGV[2]
local now = tonumber(ARGV[3])
local validated = tonumber(ARGV[4])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'

redis.call('LREM', queue_ids, 0, id)
redis.call('HDEL', queue_position_cache, id)
redis.call('HDEL', queue_expiry, id)
redis.call('SADD', store_ids, id)
redis.call('HSET', store_expiry, id, now + validated)
return 1
`

// storePromoteLua fills free store capacity from the front of the queue,
// carrying each promoted id's current expiry as-is (it already validated
// itself to reach the front).
// ARGV[1]: prefix
// Returns: the number of ids moved from queue to store.
const storePromoteLua = `
local prefix = ARGV[1]

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'
local store_capacity = prefix .. ':store_capacity'

local capacity = tonumber(redis.call('GET', store_capacity))
if capacity == nil then
  capacity = -1
end

local queue_len = redis.call('LLEN', queue_ids)
local transfer = 0
if capacity < 0 then
  transfer = queue_len
elseif capacity == 0 then
  transfer = 0
else
  local store_size = redis.call('SCARD', store_ids)
  transfer = capacity - store_size
  if transfer < 0 then
    transfer = 0
  end
end
if transfer > queue_len then
  transfer = queue_len
end

local moved = 0
for _ = 1, transfer do
  local id = redis.call('LPOP', queue_ids)
  if not id then
    break
  end
  redis.call('HDEL', queue_position_cache, id)
  local expiry = redis.call('HGET', queue_expiry, id)
  redis.call('HDEL', queue_expiry, id)
  redis.call('SADD', store_ids, id)
  if expiry then
    redis.call('HSET', store_expiry, id, expiry)
  end
  moved = moved + 1
end

return moved
`

// storePromoteNLua unconditionally moves up to n ids from queue to store,
// ignoring capacity. Used for administrative batch promotion.
// ARGV[1]: prefix
// ARGV[2]: n
// Returns: the number of ids moved.
const storePromoteNLua = `
local prefix = ARGV[1]
local n = tonumber(ARGV[2])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'
local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'

local queue_len = redis.call('LLEN', queue_ids)
local transfer = n
if transfer < 0 then
  transfer = 0
end
if transfer > queue_len then
  transfer = queue_len
end

local moved = 0
for _ = 1, transfer do
  local id = redis.call('LPOP', queue_ids)
  if not id then
    break
  end
  redis.call('HDEL', queue_position_cache, id)
  local expiry = redis.call('HGET', queue_expiry, id)
  redis.call('HDEL', queue_expiry, id)
  redis.call('SADD', store_ids, id)
  if expiry then
    redis.call('HSET', store_expiry, id, expiry)
  end
  moved = moved + 1
end

return moved
`

// queueTimeoutLua is the sole O(n) script: it scans the queue front to
// back, evicts expired entries, and rewrites the position cache for
// survivors. Removal shifts indices, so the whole list is rebuilt once
// rather than re-indexed per removal (which would be O(n^2)). This must
// never run on the request-handling hot path.
// ARGV[1]: prefix
// ARGV[2]: now (epoch seconds)
// Returns: the number of ids removed.
const queueTimeoutLua = `
local prefix = ARGV[1]
local now = tonumber(ARGV[2])

local queue_ids = prefix .. ':queue_ids'
local queue_expiry = prefix .. ':queue_expiry_secs'
local queue_position_cache = prefix .. ':queue_position_cache'

local ids = redis.call('LRANGE', queue_ids, 0, -1)
local survivors = {}
local removed = 0

for _, id in ipairs(ids) do
  local expiry = tonumber(redis.call('HGET', queue_expiry, id))
  if expiry == nil or expiry < now then
    redis.call('HDEL', queue_expiry, id)
    redis.call('HDEL', queue_position_cache, id)
    removed = removed + 1
  else
    table.insert(survivors, id)
  end
end

if removed > 0 then
  redis.call('DEL', queue_ids)
  if #survivors > 0 then
    redis.call('RPUSH', queue_ids, unpack(survivors))
  end
end

for position, id in ipairs(survivors) do
  redis.call('HSET', queue_position_cache, id, position)
end

return removed
`

// storeTimeoutLua evicts expired store entries.
// ARGV[1]: prefix
// ARGV[2]: now (epoch seconds)
// Returns: the number of ids removed.
const storeTimeoutLua = `
local prefix = ARGV[1]
local now = tonumber(ARGV[2])

local store_ids = prefix .. ':store_ids'
local store_expiry = prefix .. ':store_expiry_secs'

local ids = redis.call('SMEMBERS', store_ids)
local removed = 0

for _, id in ipairs(ids) do
  local expiry = tonumber(redis.call('HGET', store_expiry, id))
  if expiry == nil or expiry < now then
    redis.call('SREM', store_ids, id)
    redis.call('HDEL', store_expiry, id)
    removed = removed + 1
  end
end

return removed
`

// hasIDsLua reports whether either container holds ids. A key that does
// not exist at all is treated the same as "non-empty": Redis deletes a SET
// or LIST as soon as its last member is removed, so key-absence conflates
// "never initialized" with "drained to zero". Since those two states call
// for different caller behavior (re-seed vs. nothing to do), the safer of
// the two is assumed when the distinction can't be made from this script
// alone.
// ARGV[1]: prefix
// Returns: 1 if either container holds ids, or either key is absent; 0
// only when both keys are confirmed present and empty.
const hasIDsLua = `
local prefix = ARGV[1]

local store_ids = prefix .. ':store_ids'
local queue_ids = prefix .. ':queue_ids'

local store_exists = redis.call('EXISTS', store_ids)
local queue_exists = redis.call('EXISTS', queue_ids)

if store_exists == 0 or queue_exists == 0 then
  return 1
end

if redis.call('SCARD', store_ids) > 0 or redis.call('LLEN', queue_ids) > 0 then
  return 1
end

return 0
`

// checkSyncKeysLua reports whether the three configuration keys a fresh
// prefix must be seeded with are all present. Used by the admission client
// to detect a backing-store flush.
// ARGV[1]: prefix
// Returns: 1 if queue_enabled, store_capacity, and queue_sync_timestamp
// all exist; 0 otherwise.
const checkSyncKeysLua = `
local prefix = ARGV[1]

local enabled = redis.call('EXISTS', prefix .. ':queue_enabled')
local capacity = redis.call('EXISTS', prefix .. ':store_capacity')
local sync = redis.call('EXISTS', prefix .. ':queue_sync_timestamp')

if enabled == 1 and capacity == 1 and sync == 1 then
  return 1
end
return 0
`
