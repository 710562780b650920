// Package repositories implements SQLite persistence for the search cache.
//
// Writes that touch more than one statement run in a single transaction, including sequence generation.
// Tracks support soft deletes via deleted_at timestamps and deleted records are excluded from queries by default.
//
// Key Implementations:
//   - [TrackRepository] : Track caching with service-specific lookups and upserts
//   - [SearchRepository] : Ranked query results referencing cached tracks
//   - [TrackCacheAdapter] : The cache used by the search service, combining both
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
