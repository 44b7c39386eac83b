// Package store provides SQLite-backed durable storage for reservations.
//
// Tables:
//   - reservations: one row per reservation; never deleted
//   - displacements: challenger/displaced pairs (displace and wait records)
//   - idempotency_keys: (owner, operation, key) to request hash and result
//   - reservation_events: audit log of every status transition
//
// # Patterns
//
// Atomic units of work:
//   - All mutation happens inside Store.InTx
//   - Transactions start with BEGIN IMMEDIATE so conflict detection and the
//     writes that depend on it see a consistent snapshot
//
// Optimistic concurrency:
//   - Every reservation row carries a version
//   - Tx.Update only applies when the version still matches, else ErrStale
//
// Deterministic ordering:
//   - Conflict queries: ORDER BY created_at ASC, seq ASC
//   - Owner listings: ORDER BY created_at DESC, seq DESC
//   - Audit events: ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
