// Package store provides SQLite-backed archival of recorded snapshots.
//
// The store keeps two tables:
//   - Sessions: one recording, with a label and the framing mode its
//     snapshots were encoded with
//   - Snapshots: encoded snapshot buffers keyed by (session, seq)
//
// # Ordering and identity
//
//   - Ordering uses seq INTEGER (logical tick), never timestamps
//   - All snapshot reads use ORDER BY seq ASC, id ASC
//   - Writes are idempotent: UNIQUE(session_id, seq) with ON CONFLICT DO NOTHING
//   - content_hash is SHA-256 over the payload with domain separation
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
