package api

import (
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

// ReservationDTO is the client view of a reservation.
type ReservationDTO struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	ResourceID   string          `json:"resourceId"`
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Purpose      string          `json:"purpose"`
	Priority     int             `json:"priority"`
	Status       string          `json:"status"`
	Details      string          `json:"details"`
	SupersededBy string          `json:"supersededBy,omitempty"`
	Supersedes   []string        `json:"supersedes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Negotiation  *NegotiationDTO `json:"negotiation,omitempty"`
}

// NegotiationDTO tells the owner of a need_confirm reservation what took
// their slot and what they can do about it.
type NegotiationDTO struct {
	ChallengerID      string   `json:"challengerId"`
	ChallengerDetails string   `json:"challengerDetails"`
	ChallengerOwnerID string   `json:"challengerOwnerId"`
	Actions           []string `json:"actions"`
}

// EventDTO is one audit entry.
type EventDTO struct {
	Seq       int64     `json:"seq"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Actor     string    `json:"actor,omitempty"`
	RelatedID string    `json:"relatedId,omitempty"`
	At        time.Time `json:"at"`
}

// CreateRequest is the body of POST /api/v1/reservations.
type CreateRequest struct {
	ResourceID     string    `json:"resourceId"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Purpose        string    `json:"purpose"`
	Priority       int       `json:"priority,omitempty"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

// ResolveRequest is the body of POST /api/v1/reservations/{id}/resolve.
type ResolveRequest struct {
	Decision       string `json:"decision"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// ActionRequest is the single-endpoint envelope used by the web client.
type ActionRequest struct {
	Action         string    `json:"action"`
	ReservationID  string    `json:"reservationId,omitempty"`
	Decision       string    `json:"decision,omitempty"`
	GPUType        string    `json:"gpuType,omitempty"`
	StartTime      time.Time `json:"startTime,omitempty"`
	EndTime        time.Time `json:"endTime,omitempty"`
	Details        string    `json:"details,omitempty"`
	Priority       int       `json:"priority,omitempty"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

func toDTO(r reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		ResourceID:   r.ResourceID,
		Start:        r.Interval.Start,
		End:          r.Interval.End,
		Purpose:      r.Purpose,
		Priority:     r.Priority,
		Status:       string(r.Status),
		Details:      r.Details(),
		SupersededBy: r.SupersededBy,
		Supersedes:   r.Supersedes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toEventDTO(e reservation.Event) EventDTO {
	return EventDTO{
		Seq:       e.Seq,
		From:      string(e.From),
		To:        string(e.To),
		Reason:    e.Reason,
		Actor:     e.Actor,
		RelatedID: e.RelatedID,
		At:        e.At,
	}
}

func negotiationFor(challenger reservation.Reservation) *NegotiationDTO {
	return &NegotiationDTO{
		ChallengerID:      challenger.ID,
		ChallengerDetails: challenger.Details(),
		ChallengerOwnerID: challenger.OwnerID,
		Actions:           []string{string(reservation.DecisionAccept), string(reservation.DecisionDispute)},
	}
}
