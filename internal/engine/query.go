package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// List returns every reservation owned by ownerID, newest first, in any
// status. Read-only.
func (e *Engine) List(ctx context.Context, ownerID string) ([]reservation.Reservation, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, reservation.NewMalformedRequestError("ownerId is required")
	}

	var out []reservation.Reservation
	err := e.read(ctx, "list", func() error {
		var err error
		out, err = e.store.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one reservation owned by actor.
func (e *Engine) Get(ctx context.Context, actor, id string) (reservation.Reservation, error) {
	r, err := e.load(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}
	if r.OwnerID != actor {
		return reservation.Reservation{}, reservation.NewForbiddenError(id, "only the owner may view this reservation")
	}
	return r, nil
}

// Challenger returns the reservation that displaced actor's need_confirm
// reservation, so the owner can see what they are asked to yield to.
func (e *Engine) Challenger(ctx context.Context, actor, id string) (reservation.Reservation, error) {
	r, err := e.Get(ctx, actor, id)
	if err != nil {
		return reservation.Reservation{}, err
	}
	if r.Status != reservation.StatusNeedConfirm || r.SupersededBy == "" {
		return reservation.Reservation{}, reservation.NewInvalidStateTransitionError(id, "reservation is not awaiting a decision")
	}
	return e.load(ctx, r.SupersededBy)
}

// History returns the audit trail of actor's reservation, oldest first.
func (e *Engine) History(ctx context.Context, actor, id string) ([]reservation.Event, error) {
	if _, err := e.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	var events []reservation.Event
	err := e.read(ctx, "history", func() error {
		var err error
		events, err = e.store.Events(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (e *Engine) load(ctx context.Context, id string) (reservation.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return reservation.Reservation{}, reservation.NewMalformedRequestError("reservation id is required")
	}
	var r reservation.Reservation
	err := e.read(ctx, "get", func() error {
		var err error
		r, err = e.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return reservation.Reservation{}, reservation.NewReservationNotFoundError(id)
	}
	if err != nil {
		return reservation.Reservation{}, err
	}
	return r, nil
}
