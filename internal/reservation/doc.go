// Package reservation defines the domain model shared by every layer of the
// GPU reservation service.
//
// A Reservation binds an owner, a GPU resource and a half-open time interval
// [start, end) to a status. Statuses form a one-directional state machine:
//
//	pending ──────► confirmed ──────► need_confirm ──► cancelled
//	   │                 │                 │
//	   ├──► need_confirm └──► cancelled    ├──► confirmed | pending (restored)
//	   ├──► rejected                       └──► rejected
//	   └──► cancelled
//
// cancelled and rejected are terminal and are never left.
//
// Reservations reference each other only by id (SupersededBy, Supersedes).
// The negotiation bookkeeping between a challenger and the reservation it
// displaced lives in Displacement records.
//
// # Identity
//
// Reservation ids are derived from (owner, idempotency key) with DeriveID, so
// a retried admission produces the same id. Request fingerprints use
// canonical JSON (sorted keys, NFC-normalized strings) hashed with SHA-256
// and a domain separator.
package reservation
