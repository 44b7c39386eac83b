package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// Idempotency key scopes.
const (
	opCreate  = "create"
	opResolve = "resolve"
	opCancel  = "cancel"
)

// txn carries one transaction attempt. All status changes go through
// transition so each one is version-checked and audited.
type txn struct {
	ctx    context.Context
	tx     *store.Tx
	now    time.Time
	actor  string
	policy Policy

	// changed records every reservation written, in first-touch order.
	changed []string
}

func (e *Engine) newTxn(ctx context.Context, tx *store.Tx, actor string) *txn {
	return &txn{
		ctx:    ctx,
		tx:     tx,
		now:    e.clock.Now().UTC(),
		actor:  actor,
		policy: e.policy,
	}
}

// get loads a reservation, mapping a missing row to ReservationNotFoundError.
func (c *txn) get(id string) (reservation.Reservation, error) {
	r, err := c.tx.Get(c.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return reservation.Reservation{}, reservation.NewReservationNotFoundError(id)
	}
	return r, err
}

// transition changes r's status, persists it with a version check and
// appends an audit event.
func (c *txn) transition(r *reservation.Reservation, to reservation.Status, reason, relatedID string) error {
	from := r.Status
	if err := r.Transition(to, c.now); err != nil {
		return err
	}
	if err := c.tx.Update(c.ctx, r); err != nil {
		return err
	}
	c.touch(r.ID)
	return c.event(r.ID, from, to, reason, relatedID)
}

func (c *txn) event(id string, from, to reservation.Status, reason, relatedID string) error {
	return c.tx.AppendEvent(c.ctx, &reservation.Event{
		ReservationID: id,
		From:          from,
		To:            to,
		Reason:        reason,
		Actor:         c.actor,
		RelatedID:     relatedID,
		At:            c.now,
	})
}

// closeRecord moves an open displacement record to a final state.
func (c *txn) closeRecord(d reservation.Displacement, state reservation.DisplacementState) error {
	d.State = state
	resolved := c.now
	d.ResolvedAt = &resolved
	return c.tx.UpdateDisplacement(c.ctx, d)
}

func (c *txn) touch(id string) {
	for _, seen := range c.changed {
		if seen == id {
			return
		}
	}
	c.changed = append(c.changed, id)
}

// replay looks up an idempotency key. It returns the reservation recorded
// for it, or ok=false when the key is new. A key reused with a different
// request is a MalformedRequestError.
func (c *txn) replay(owner, operation, key, hash string) (reservation.Reservation, bool, error) {
	rec, err := c.tx.LookupKey(c.ctx, owner, operation, key)
	if errors.Is(err, store.ErrNotFound) {
		return reservation.Reservation{}, false, nil
	}
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	if rec.RequestHash != hash {
		return reservation.Reservation{}, false, reservation.NewMalformedRequestError(
			fmt.Sprintf("idempotency key %q was already used for a different %s request", key, operation))
	}
	r, err := c.get(rec.ReservationID)
	if err != nil {
		return reservation.Reservation{}, false, err
	}
	return r, true, nil
}

func (c *txn) recordKey(owner, operation, key, hash, reservationID string) error {
	return c.tx.RecordKey(c.ctx, store.KeyRecord{
		OwnerID:       owner,
		Operation:     operation,
		Key:           key,
		RequestHash:   hash,
		ReservationID: reservationID,
	}, c.now)
}
