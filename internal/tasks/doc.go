// Package tasks orchestrates batch searches with real-time progress reporting.
//
// # Core Operations
//
// [Prefetcher.Run] searches a list of queries through a [services.Searcher]:
//   - Queries are fanned out to a bounded worker pool
//   - A failed query is recorded and the batch continues
//   - With an output directory, each query's results are saved in the chosen format next to a manifest.json
//
// When the searcher is a [services.CachedSearcher] backed by the track cache, a prefetch warms the cache so the
// console and remotes get immediate answers for the same queries.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for richer rendering.
// Updates use select with default to prevent blocking.
//
// # Input
//
// [ReadQueries] parses a query file: one query per line, # comments, duplicates dropped by cache key.
package tasks
