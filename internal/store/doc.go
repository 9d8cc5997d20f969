// Package store provides SQLite-backed durable storage for story history.
//
// The store keeps two append-only tables:
//   - Snapshots: whole worlds in canonical JSON, addressed by digest
//   - Moves: one record per applied production (see ir.Move)
//
// # Critical Patterns
//
// Logical Time
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - A game loop resumes its clock from LastSeq
//
// Deterministic Query Results
//   - All queries include: ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Idempotent Writes
//   - Writing a record whose id already exists is a no-op
//
// Integrity
//   - Snapshots are stored with their world digest; a snapshot whose
//     content no longer hashes to its digest is reported as corrupt
//   - VerifyChain checks that every move starts from the world the
//     previous move ended in
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
