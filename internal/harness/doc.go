// Package harness runs reservation conformance scenarios against the real
// engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: accept_displacement
//	description: "The displaced owner yields; the challenger is confirmed"
//	now: 2030-05-01T09:00:00Z
//	policy: elder
//	resources: [GPU-A]
//	steps:
//	  - create: {as: alice, owner: alice, resource: GPU-A, start: 2030-05-01T14:00:00Z, end: 2030-05-01T18:00:00Z, purpose: training}
//	    expect: {status: confirmed}
//	  - create: {as: bob, owner: bob, resource: GPU-A, start: 2030-05-01T16:00:00Z, end: 2030-05-01T20:00:00Z, purpose: eval}
//	    expect: {status: pending, supersedes: [alice]}
//	  - resolve: {ref: alice, decision: accept}
//	    expect: {status: cancelled}
//	assertions:
//	  - type: status
//	    ref: bob
//	    status: confirmed
//	  - type: no_overlap
//
// Reservations are named by the alias given in "as"; every later reference,
// expectation and golden trace uses aliases instead of generated ids.
//
// # Assertion Types
//
//   - status: the reservation referenced by ref has the given status
//   - superseded_by: ref is superseded by the reservation named in by ("" for none)
//   - supersedes: ref displaced exactly the reservations in refs, in order
//   - event_count: ref has exactly count audit events
//   - no_overlap: no two pending/confirmed reservations overlap on any resource
//
// # Deterministic Testing
//
// Each scenario runs on a fresh in-memory store with a deterministic clock
// (testutil.DeterministicClock starting at "now") and sequential idempotency
// keys (testutil.SequenceKeys), so traces are byte-identical across runs and
// can be compared against golden files.
package harness
