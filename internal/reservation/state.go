package reservation

import (
	"fmt"
	"time"
)

// transitions lists every permitted status change. Terminal statuses have no
// outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:     {StatusConfirmed, StatusNeedConfirm, StatusRejected, StatusCancelled},
	StatusConfirmed:   {StatusNeedConfirm, StatusCancelled},
	StatusNeedConfirm: {StatusCancelled, StatusConfirmed, StatusPending, StatusRejected},
}

// CanTransition reports whether a reservation may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves r to the given status and stamps UpdatedAt. It fails with
// an InvalidStateTransitionError when the change is not permitted.
func (r *Reservation) Transition(to Status, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return NewInvalidStateTransitionError(r.ID, fmt.Sprintf("cannot move from %s to %s", r.Status, to))
	}
	r.Status = to
	r.UpdatedAt = at.UTC()
	return nil
}
