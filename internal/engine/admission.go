package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/gpures/internal/conflict"
	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// Create admits a structured reservation request.
//
// Validation (required fields, interval shape and range, resource existence,
// start not in the past) happens before any write. The past check follows
// the idempotency key lookup. Then, in one transaction:
//
//   - no overlapping live reservation: the new reservation is confirmed
//   - the policy refuses a conflict: the new reservation is recorded as rejected
//   - otherwise the new reservation is pending; every overlapping confirmed
//     or pending reservation moves to need_confirm with SupersededBy set to
//     the new id, and every overlapping need_confirm reservation gets a wait
//     record so the newcomer stays pending until that one is resolved
//
// Retrying with the same IdempotencyKey returns the reservation created by
// the first successful attempt.
func (e *Engine) Create(ctx context.Context, req reservation.Request) (reservation.Reservation, error) {
	if err := req.Validate(); err != nil {
		return reservation.Reservation{}, err
	}
	if !e.catalog.Exists(req.ResourceID) {
		return reservation.Reservation{}, reservation.NewResourceNotFoundError(req.ResourceID)
	}
	now := e.clock.Now().UTC()

	hash, err := req.Fingerprint()
	if err != nil {
		return reservation.Reservation{}, reservation.NewMalformedRequestError(err.Error())
	}
	key := req.IdempotencyKey
	if key == "" {
		key = e.keys.Generate()
	}
	id := reservation.DeriveID(req.OwnerID, key)

	unlock := e.locks.lock(req.ResourceID)
	defer unlock()

	var (
		admitted reservation.Reservation
		replayed bool
		affected int
	)
	err = e.run(ctx, opCreate, func(tx *store.Tx) error {
		c := e.newTxn(ctx, tx, req.OwnerID)
		r, ok, err := c.replay(req.OwnerID, opCreate, key, hash)
		if err != nil {
			return err
		}
		if ok {
			admitted, replayed, affected = r, true, 0
			return nil
		}
		if err := e.checkNotPast(req.Interval, now); err != nil {
			return err
		}
		admitted, err = c.admit(req, id)
		if err != nil {
			return err
		}
		replayed, affected = false, len(c.changed)
		return c.recordKey(req.OwnerID, opCreate, key, hash, admitted.ID)
	})
	if err != nil {
		e.logger.Debug("admission failed", "owner", req.OwnerID, "resource", req.ResourceID, "error", err)
		return reservation.Reservation{}, err
	}

	if replayed {
		e.logger.Info("admission replayed", "id", admitted.ID, "status", admitted.Status)
	} else {
		e.logger.Info("reservation admitted",
			"id", admitted.ID,
			"owner", admitted.OwnerID,
			"resource", admitted.ResourceID,
			"interval", admitted.Interval.String(),
			"status", admitted.Status,
			"displaced", len(admitted.Supersedes),
			"affected", affected,
		)
	}
	return admitted, nil
}

// checkNotPast rejects an interval starting earlier than the past tolerance
// allows. It runs after the key lookup so a keyed retry of an admitted
// request still replays once the start has passed.
func (e *Engine) checkNotPast(iv reservation.Interval, now time.Time) error {
	if iv.Start.Before(now.Add(-e.pastTolerance)) {
		return reservation.NewPastIntervalError(
			fmt.Sprintf("interval %s starts before now (%s)", iv, now.Format(time.RFC3339)))
	}
	return nil
}

// admit classifies and stores a new reservation inside c's transaction.
func (c *txn) admit(req reservation.Request, id string) (reservation.Reservation, error) {
	conflicts, err := conflict.FindConflicts(c.ctx, c.tx, req.ResourceID, req.Interval)
	if err != nil {
		return reservation.Reservation{}, err
	}

	r := reservation.Reservation{
		ID:         id,
		OwnerID:    req.OwnerID,
		ResourceID: req.ResourceID,
		Interval: reservation.Interval{
			Start: req.Interval.Start.UTC(),
			End:   req.Interval.End.UTC(),
		},
		Purpose:   req.Purpose,
		Priority:  req.Priority,
		CreatedAt: c.now,
		UpdatedAt: c.now,
	}

	if len(conflicts) == 0 {
		r.Status = reservation.StatusConfirmed
		return r, c.insert(&r, reservation.ReasonAdmitted, "")
	}

	for _, incumbent := range conflicts {
		if !c.policy.Contest(req, incumbent) {
			r.Status = reservation.StatusRejected
			return r, c.insert(&r, reservation.ReasonRefused, incumbent.ID)
		}
	}

	r.Status = reservation.StatusPending
	if err := c.insert(&r, reservation.ReasonAdmitted, ""); err != nil {
		return reservation.Reservation{}, err
	}

	for _, incumbent := range conflicts {
		record := reservation.Displacement{
			ChallengerID: r.ID,
			DisplacedID:  incumbent.ID,
			State:        reservation.StateOpen,
			CreatedAt:    c.now,
		}

		if incumbent.Status == reservation.StatusNeedConfirm {
			record.Kind = reservation.KindWait
			if err := c.tx.InsertDisplacement(c.ctx, record); err != nil {
				return reservation.Reservation{}, err
			}
			continue
		}

		record.Kind = reservation.KindDisplace
		record.PriorStatus = incumbent.Status
		incumbent.SupersededBy = r.ID
		if err := c.transition(&incumbent, reservation.StatusNeedConfirm, reservation.ReasonDisplaced, r.ID); err != nil {
			return reservation.Reservation{}, err
		}
		if err := c.tx.InsertDisplacement(c.ctx, record); err != nil {
			return reservation.Reservation{}, err
		}
		r.Supersedes = append(r.Supersedes, incumbent.ID)
	}

	return r, nil
}

func (c *txn) insert(r *reservation.Reservation, reason, relatedID string) error {
	if err := c.tx.Insert(c.ctx, r); err != nil {
		return err
	}
	c.touch(r.ID)
	return c.event(r.ID, "", r.Status, reason, relatedID)
}
