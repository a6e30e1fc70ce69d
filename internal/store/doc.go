// Package store provides SQLite-backed storage for the reference items the
// engine cites, the citation styles installed locally and the journal of
// completed document commands.
//
// # Patterns
//
// Idempotent writes
//   - Journal records are content addressed; rewriting one is a no-op
//   - Styles are upserted by id
//
// Deterministic reads
//   - Every list query has an ORDER BY on a unique key
//   - Journal ordering uses the per-document seq counter, never wall time
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content hashes come from internal/canon (RFC 8785 canonical JSON and
// SHA-256 with domain separation).
package store
