package engine

import (
	"fmt"

	"github.com/roach88/gpures/internal/reservation"
)

// Policy decides whether a new request may contest an older overlapping
// reservation. Contesting puts the older reservation into need_confirm and
// lets its owner accept or dispute. If Contest returns false for any
// conflict the request is recorded as rejected without touching anyone.
type Policy interface {
	Name() string
	Contest(challenger reservation.Request, incumbent reservation.Reservation) bool
}

// ElderPolicy lets every newcomer contest. The elder reservation keeps the
// slot unless its owner accepts.
type ElderPolicy struct{}

func (ElderPolicy) Name() string { return "elder" }

func (ElderPolicy) Contest(reservation.Request, reservation.Reservation) bool { return true }

// PriorityPolicy refuses a newcomer whose priority is lower than an
// incumbent's. Equal or higher priority contests as under ElderPolicy.
type PriorityPolicy struct{}

func (PriorityPolicy) Name() string { return "priority" }

func (PriorityPolicy) Contest(challenger reservation.Request, incumbent reservation.Reservation) bool {
	return challenger.Priority >= incumbent.Priority
}

// ParsePolicy returns the policy registered under name.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "elder":
		return ElderPolicy{}, nil
	case "priority":
		return PriorityPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q: must be elder or priority", name)
	}
}
