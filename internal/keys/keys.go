// Package keys builds the Redis key names for one admission-core prefix.
// Every entity in the data model lives under "prefix + ':' + suffix"; this
// package is the single place that string is assembled so the atomic
// scripts and the admission client can never drift on naming.
package keys

// StoreIDs returns the key of the Redis SET holding admitted IDs.
func StoreIDs(prefix string) string { return prefix + ":store_ids" }

// StoreExpiry returns the key of the Redis HASH mapping store ID to its
// epoch-seconds expiry.
func StoreExpiry(prefix string) string { return prefix + ":store_expiry_secs" }

// QueueIDs returns the key of the Redis LIST holding the FIFO of waiting
// IDs, front = position 1.
func QueueIDs(prefix string) string { return prefix + ":queue_ids" }

// QueueExpiry returns the key of the Redis HASH mapping queued ID to its
// epoch-seconds expiry.
func QueueExpiry(prefix string) string { return prefix + ":queue_expiry_secs" }

// QueuePositionCache returns the key of the Redis HASH mapping queued ID to
// its last-observed 1-based position.
func QueuePositionCache(prefix string) string { return prefix + ":queue_position_cache" }

// StoreCapacity returns the key of the Redis STRING holding the configured
// store capacity (negative = unbounded, zero = closed, missing = unbounded).
func StoreCapacity(prefix string) string { return prefix + ":store_capacity" }

// QueueEnabled returns the key of the Redis STRING ("0"/"1") controlling
// whether the queue is bypassed.
func QueueEnabled(prefix string) string { return prefix + ":queue_enabled" }

// QueueSyncTimestamp returns the key of the Redis STRING holding the epoch
// seconds of the last successful housekeeping cycle.
func QueueSyncTimestamp(prefix string) string { return prefix + ":queue_sync_timestamp" }

// WaitingPage returns the key of the Redis STRING holding the opaque
// waiting-page HTML blob.
func WaitingPage(prefix string) string { return prefix + ":waiting_page" }

// Events returns the name of the Redis pub/sub channel used for change
// notifications.
func Events(prefix string) string { return prefix + ":events" }
