// Package store persists recorded playback runs in SQLite.
//
// A run holds the canonical JSON of the definition that was played, the
// playback options, and the recorded trace. Runs are keyed by UUIDv7 tokens,
// so ordering by id is creation order.
//
// # Critical Patterns
//
// Logical time only: trace rows carry the logical seq and the frame time
// the recorder saw, never wall-clock timestamps. Replaying a run can
// therefore be compared row for row.
//
// Deterministic reads: every query orders by seq (events) or id COLLATE
// BINARY (runs).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
