// Package storage persists per-domain governor state.
//
// # Overview
//
// The governor keeps its authoritative state in memory under per-domain
// locks; this package is the persistence layer behind it. Three backends
// implement the Backend interface:
//
//   - MemoryBackend: process-local map, the default
//   - RedisBackend: shared, TTL-expiring records in a Redis-compatible store
//   - SQLiteBackend: durable single-instance storage across restarts
//
// # Degradation
//
// Fallback wraps a remote backend with an in-memory shadow. When the primary
// fails (connection error, timeout) the wrapper logs a warning, serves from
// the shadow and periodically re-probes the primary. Backend loss therefore
// never reaches the admission path as an error.
//
// # Cleanup
//
// Janitor prunes stale domain records on a cron schedule. Redis records also
// carry a TTL, so the backend expires state on its own even if the janitor
// never runs.
package storage
