package engine

import (
	"fmt"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// retire releases everything tied to a reservation that has just become
// terminal.
//
// As a challenger, its open displace records are released and the displaced
// reservations restored; its wait records are cleared. As a displaced or
// blocking reservation, the open records naming it are vacated and their
// challengers settled.
func (c *txn) retire(id string) error {
	owned, err := c.tx.Displacements(c.ctx, store.DisplacementFilter{ChallengerID: id, State: reservation.StateOpen})
	if err != nil {
		return err
	}
	for _, record := range owned {
		if record.Kind == reservation.KindWait {
			if err := c.closeRecord(record, reservation.StateCleared); err != nil {
				return err
			}
			continue
		}
		if err := c.closeRecord(record, reservation.StateReleased); err != nil {
			return err
		}
		if err := c.restore(record.DisplacedID, record.PriorStatus, reservation.ReasonRestored, id); err != nil {
			return err
		}
	}

	against, err := c.tx.Displacements(c.ctx, store.DisplacementFilter{DisplacedID: id, State: reservation.StateOpen})
	if err != nil {
		return err
	}
	for _, record := range against {
		if err := c.closeRecord(record, reservation.StateVacated); err != nil {
			return err
		}
		if err := c.settle(record.ChallengerID); err != nil {
			return err
		}
	}
	return nil
}

// restore returns a need_confirm reservation to its prior active status and
// clears SupersededBy, then hands the slot to the oldest waiting challenger,
// if any.
func (c *txn) restore(id string, prior reservation.Status, reason, relatedID string) error {
	r, err := c.get(id)
	if err != nil {
		return err
	}
	if r.Status != reservation.StatusNeedConfirm {
		return nil
	}
	if !prior.Active() {
		return fmt.Errorf("restore %s: prior status %q is not active: %w", id, prior, ErrInconsistent)
	}

	r.SupersededBy = ""
	if err := c.transition(&r, prior, reason, relatedID); err != nil {
		return err
	}
	return c.promote(r)
}

// promote turns the oldest open wait record on r into a displacement, moving
// r straight back to need_confirm. With no waiters r is settled instead.
func (c *txn) promote(r reservation.Reservation) error {
	waiters, err := c.tx.Displacements(c.ctx, store.DisplacementFilter{
		DisplacedID: r.ID,
		Kind:        reservation.KindWait,
		State:       reservation.StateOpen,
	})
	if err != nil {
		return err
	}
	if len(waiters) == 0 {
		return c.settle(r.ID)
	}

	next := waiters[0]
	next.Kind = reservation.KindDisplace
	next.PriorStatus = r.Status
	if err := c.tx.UpdateDisplacement(c.ctx, next); err != nil {
		return err
	}

	r.SupersededBy = next.ChallengerID
	return c.transition(&r, reservation.StatusNeedConfirm, reservation.ReasonDisplaced, next.ChallengerID)
}

// settle confirms a pending reservation that no longer has any open
// displace or wait records of its own.
func (c *txn) settle(id string) error {
	r, err := c.get(id)
	if err != nil {
		return err
	}
	if r.Status != reservation.StatusPending {
		return nil
	}

	open, err := c.tx.Displacements(c.ctx, store.DisplacementFilter{ChallengerID: id, State: reservation.StateOpen})
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return nil
	}
	return c.transition(&r, reservation.StatusConfirmed, reservation.ReasonSettled, "")
}
