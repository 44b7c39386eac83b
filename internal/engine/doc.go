// Package engine implements reservation admission and the accept/dispute
// negotiation protocol.
//
// ENTRY POINTS:
//
// Create admits a structured request. Resolve and Cancel act on an existing
// reservation on behalf of its owner. List, Get, Challenger and History are
// read-only. Each mutating call is one store transaction; no call ever waits
// on a human decision.
//
// ADMISSION:
//
//  1. Validate the request before any write
//  2. Find live reservations overlapping the interval (conflict.FindConflicts)
//  3. No conflicts: confirmed
//  4. Conflicts: pending, and each confirmed/pending conflict moves to
//     need_confirm with SupersededBy naming the newcomer
//
// A conflict that is already need_confirm is not displaced twice. The
// newcomer records a wait on it and stays pending. If that reservation is
// later restored, the oldest waiter becomes its challenger.
//
// NEGOTIATION:
//
// accept cancels the displaced reservation. dispute rejects the challenger
// and restores whatever it displaced. A pending reservation with no open
// displacement or wait records is confirmed.
//
// INVARIANT:
//
// On any resource, no two reservations in {pending, confirmed} overlap.
// Admission moves every active overlap out of the active set before the new
// reservation enters it. Restoration re-displaces a restored reservation
// immediately when a newer overlapping challenger is waiting on it.
//
// CONCURRENCY:
//
// A per-resource mutex serializes operations in-process, transactions begin
// IMMEDIATE, and every update carries a version check. A stale read aborts
// the transaction and the whole operation, conflict detection included, is
// re-run.
package engine
