package reservation

import (
	"fmt"
	"math"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusNeedConfirm Status = "need_confirm"
	StatusCancelled   Status = "cancelled"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusNeedConfirm,
	StatusCancelled,
	StatusRejected,
}

// LiveStatuses are the statuses that still hold (or may regain) a slot.
var LiveStatuses = []Status{StatusPending, StatusConfirmed, StatusNeedConfirm}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s can never be left.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Active reports whether s occupies the resource. No two active reservations
// on the same resource may overlap.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether Start is strictly before End.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Overlaps reports whether the two half-open intervals share any instant.
// Touching intervals ([a,b) and [b,c)) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// EarliestInstant and LatestInstant bound the instants a reservation may
// name. Both are representable as nanoseconds since the Unix epoch in an
// int64, which is how the store keeps them.
var (
	EarliestInstant = time.Unix(0, math.MinInt64).UTC()
	LatestInstant   = time.Unix(0, math.MaxInt64).UTC()
)

// InRange reports whether both ends lie within [EarliestInstant, LatestInstant].
func (iv Interval) InRange() bool {
	return !iv.Start.Before(EarliestInstant) && !iv.End.After(LatestInstant)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.UTC().Format(time.RFC3339), iv.End.UTC().Format(time.RFC3339))
}

// Reservation is a stored booking of one resource for one interval.
type Reservation struct {
	ID         string   `json:"id"`
	OwnerID    string   `json:"owner_id"`
	ResourceID string   `json:"resource_id"`
	Interval   Interval `json:"interval"`
	Purpose    string   `json:"purpose"`
	Priority   int      `json:"priority"`
	Status     Status   `json:"status"`

	// SupersededBy is set while the reservation is need_confirm and names the
	// challenger that displaced it.
	SupersededBy string `json:"superseded_by,omitempty"`

	// Supersedes lists every reservation this one has displaced, in
	// displacement order. Entries are kept after resolution as an audit trail.
	Supersedes []string `json:"supersedes,omitempty"`

	// Version is bumped on every update and guards against stale writes.
	Version int64 `json:"version"`

	// Seq is the store insertion order; it breaks CreatedAt ties.
	Seq int64 `json:"seq"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Details renders the human-readable summary shown to clients.
func (r Reservation) Details() string {
	start := r.Interval.Start.UTC()
	end := r.Interval.End.UTC()
	layout := "2006-01-02 15:04"
	endLayout := layout
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		endLayout = "15:04"
	}
	details := fmt.Sprintf("%s %s-%s UTC", r.ResourceID, start.Format(layout), end.Format(endLayout))
	if r.Purpose != "" {
		details += " (" + r.Purpose + ")"
	}
	return details
}

// ElderThan reports whether r was created before other, using Seq as the
// tie-breaker for identical timestamps.
func (r Reservation) ElderThan(other Reservation) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.Before(other.CreatedAt)
	}
	return r.Seq < other.Seq
}

// Decision is the displaced owner's answer to a negotiation.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDispute Decision = "dispute"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionDispute:
		return Decision(s), nil
	default:
		return "", NewMalformedRequestError(fmt.Sprintf("decision must be %q or %q, got %q", DecisionAccept, DecisionDispute, s))
	}
}

// DisplacementKind distinguishes how a challenger relates to an older
// reservation it overlaps.
type DisplacementKind string

const (
	// KindDisplace means the challenger pushed an active reservation into
	// need_confirm.
	KindDisplace DisplacementKind = "displace"

	// KindWait means the challenger overlapped a reservation that was already
	// need_confirm. The challenger stays pending until that reservation is
	// resolved.
	KindWait DisplacementKind = "wait"
)

// DisplacementState tracks a displacement record from open to closed.
type DisplacementState string

const (
	StateOpen     DisplacementState = "open"
	StateAccepted DisplacementState = "accepted" // displaced owner yielded
	StateDisputed DisplacementState = "disputed" // displaced owner disputed
	StateReleased DisplacementState = "released" // challenger left; displaced restored
	StateVacated  DisplacementState = "vacated"  // displaced or blocking reservation left
	StateCleared  DisplacementState = "cleared"  // waiting challenger left
)

// Displacement links a challenger to an older overlapping reservation.
type Displacement struct {
	ChallengerID string            `json:"challenger_id"`
	DisplacedID  string            `json:"displaced_id"`
	Kind         DisplacementKind  `json:"kind"`
	PriorStatus  Status            `json:"prior_status,omitempty"`
	State        DisplacementState `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`
}

// Event is one audited status transition.
type Event struct {
	Seq           int64     `json:"seq"`
	ReservationID string    `json:"reservation_id"`
	From          Status    `json:"from,omitempty"`
	To            Status    `json:"to"`
	Reason        string    `json:"reason"`
	Actor         string    `json:"actor,omitempty"`
	RelatedID     string    `json:"related_id,omitempty"`
	At            time.Time `json:"at"`
}

// Event reasons.
const (
	ReasonAdmitted  = "admitted"
	ReasonRefused   = "refused"
	ReasonDisplaced = "displaced"
	ReasonAccepted  = "accepted"
	ReasonDisputed  = "disputed"
	ReasonRestored  = "restored"
	ReasonSettled   = "settled"
	ReasonCancelled = "cancelled"
	ReasonRejected  = "rejected"
)
