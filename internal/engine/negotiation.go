package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// Resolve records the displaced owner's decision on a need_confirm
// reservation.
//
// accept cancels the displaced reservation; the challenger is confirmed once
// none of its displacement or wait records remain open. dispute rejects the
// challenger and restores the displaced reservation to the status it held
// before it was displaced. Every other reservation the rejected challenger
// displaced is restored too.
//
// Checks run in order: the reservation must exist, actor must own it, and it
// must be need_confirm. A second Resolve on the same reservation therefore
// fails with InvalidStateTransitionError unless it reuses the first call's
// idempotency key, in which case the current state is returned.
func (e *Engine) Resolve(ctx context.Context, actor, id string, decision reservation.Decision, key string) (reservation.Reservation, error) {
	if strings.TrimSpace(actor) == "" || strings.TrimSpace(id) == "" {
		return reservation.Reservation{}, reservation.NewMalformedRequestError("actor and reservation id are required")
	}
	if _, err := reservation.ParseDecision(string(decision)); err != nil {
		return reservation.Reservation{}, err
	}
	hash, err := reservation.ResolutionFingerprint(id, decision)
	if err != nil {
		return reservation.Reservation{}, reservation.NewMalformedRequestError(err.Error())
	}

	out, err := e.mutate(ctx, opResolve, actor, id, key, hash, func(c *txn, target reservation.Reservation) error {
		return c.resolve(target, decision)
	})
	if err != nil {
		return reservation.Reservation{}, err
	}

	e.logger.Info("negotiation resolved", "id", out.ID, "decision", decision, "status", out.Status, "actor", actor)
	return out, nil
}

// Cancel withdraws a reservation on behalf of its owner. Any non-terminal
// reservation can be cancelled. Reservations it displaced are restored and
// challengers that were waiting on it are released.
func (e *Engine) Cancel(ctx context.Context, actor, id, key string) (reservation.Reservation, error) {
	if strings.TrimSpace(actor) == "" || strings.TrimSpace(id) == "" {
		return reservation.Reservation{}, reservation.NewMalformedRequestError("actor and reservation id are required")
	}
	hash, err := reservation.CancelFingerprint(id)
	if err != nil {
		return reservation.Reservation{}, reservation.NewMalformedRequestError(err.Error())
	}

	out, err := e.mutate(ctx, opCancel, actor, id, key, hash, func(c *txn, target reservation.Reservation) error {
		if target.Status.Terminal() {
			return reservation.NewInvalidStateTransitionError(target.ID, fmt.Sprintf("reservation is already %s", target.Status))
		}
		if err := c.transition(&target, reservation.StatusCancelled, reservation.ReasonCancelled, ""); err != nil {
			return err
		}
		return c.retire(target.ID)
	})
	if err != nil {
		return reservation.Reservation{}, err
	}

	e.logger.Info("reservation cancelled", "id", out.ID, "actor", actor)
	return out, nil
}

// mutate runs an owner-only operation on an existing reservation under its
// resource lock, with idempotent replay keyed by (actor, operation, key).
func (e *Engine) mutate(ctx context.Context, operation, actor, id, key, hash string, apply func(*txn, reservation.Reservation) error) (reservation.Reservation, error) {
	var target reservation.Reservation
	err := e.read(ctx, operation, func() error {
		var err error
		target, err = e.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return reservation.Reservation{}, reservation.NewReservationNotFoundError(id)
	}
	if err != nil {
		return reservation.Reservation{}, err
	}

	if key == "" {
		key = e.keys.Generate()
	}

	unlock := e.locks.lock(target.ResourceID)
	defer unlock()

	var out reservation.Reservation
	err = e.run(ctx, operation, func(tx *store.Tx) error {
		c := e.newTxn(ctx, tx, actor)
		r, ok, err := c.replay(actor, operation, key, hash)
		if err != nil {
			return err
		}
		if ok {
			out = r
			return nil
		}

		current, err := c.get(id)
		if err != nil {
			return err
		}
		if current.OwnerID != actor {
			return reservation.NewForbiddenError(id, "only the owner of this reservation may "+operation+" it")
		}
		if err := apply(c, current); err != nil {
			return err
		}
		if err := c.recordKey(actor, operation, key, hash, id); err != nil {
			return err
		}
		out, err = c.get(id)
		return err
	})
	if err != nil {
		return reservation.Reservation{}, err
	}
	return out, nil
}

// resolve applies a decision to a need_confirm reservation.
func (c *txn) resolve(displaced reservation.Reservation, decision reservation.Decision) error {
	if displaced.Status != reservation.StatusNeedConfirm {
		return reservation.NewInvalidStateTransitionError(displaced.ID,
			fmt.Sprintf("reservation is %s; only need_confirm reservations can be resolved", displaced.Status))
	}

	record, err := c.displacedBy(displaced.ID)
	if err != nil {
		return err
	}

	switch decision {
	case reservation.DecisionAccept:
		if err := c.closeRecord(record, reservation.StateAccepted); err != nil {
			return err
		}
		if err := c.transition(&displaced, reservation.StatusCancelled, reservation.ReasonAccepted, record.ChallengerID); err != nil {
			return err
		}
		if err := c.retire(displaced.ID); err != nil {
			return err
		}
		return c.settle(record.ChallengerID)

	case reservation.DecisionDispute:
		if err := c.closeRecord(record, reservation.StateDisputed); err != nil {
			return err
		}
		challenger, err := c.get(record.ChallengerID)
		if err != nil {
			return err
		}
		if err := c.transition(&challenger, reservation.StatusRejected, reservation.ReasonRejected, displaced.ID); err != nil {
			return err
		}
		if err := c.retire(challenger.ID); err != nil {
			return err
		}
		return c.restore(displaced.ID, record.PriorStatus, reservation.ReasonDisputed, challenger.ID)
	}

	return reservation.NewMalformedRequestError(fmt.Sprintf("unknown decision %q", decision))
}

// displacedBy returns the single open displace record naming id as the
// displaced reservation.
func (c *txn) displacedBy(id string) (reservation.Displacement, error) {
	records, err := c.tx.Displacements(c.ctx, store.DisplacementFilter{
		DisplacedID: id,
		Kind:        reservation.KindDisplace,
		State:       reservation.StateOpen,
	})
	if err != nil {
		return reservation.Displacement{}, err
	}
	if len(records) != 1 {
		return reservation.Displacement{}, fmt.Errorf("reservation %s is need_confirm with %d open displacement records: %w", id, len(records), ErrInconsistent)
	}
	return records[0], nil
}
