package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

// Tx is a unit of work opened by Store.InTx. Every read inside a Tx sees the
// transaction's own writes.
type Tx struct {
	tx *sql.Tx
}

// Get returns the reservation with the given id, or ErrNotFound.
func (t *Tx) Get(ctx context.Context, id string) (reservation.Reservation, error) {
	return getReservation(ctx, t.tx, id)
}

// Overlapping returns reservations on resourceID whose status is in statuses
// and whose interval overlaps iv, oldest first.
func (t *Tx) Overlapping(ctx context.Context, resourceID string, iv reservation.Interval, statuses []reservation.Status) ([]reservation.Reservation, error) {
	return overlapping(ctx, t.tx, resourceID, iv, statuses)
}

// Displacements returns displacement records matching filter.
func (t *Tx) Displacements(ctx context.Context, filter DisplacementFilter) ([]reservation.Displacement, error) {
	return displacements(ctx, t.tx, filter)
}

// Insert stores a new reservation and sets r.Seq and r.Version.
// Supersedes is not stored here; it is derived from displacement records.
func (t *Tx) Insert(ctx context.Context, r *reservation.Reservation) error {
	if !r.Interval.InRange() {
		return fmt.Errorf("insert reservation %s: %w", r.ID, ErrOutOfRange)
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO reservations
		(id, owner_id, resource_id, start_at, end_at, purpose, priority, status, superseded_by, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		r.ID,
		r.OwnerID,
		r.ResourceID,
		toNanos(r.Interval.Start),
		toNanos(r.Interval.End),
		r.Purpose,
		r.Priority,
		string(r.Status),
		nullString(r.SupersededBy),
		toNanos(r.CreatedAt),
		toNanos(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	r.Seq = seq
	r.Version = 1
	return nil
}

// Update writes the mutable fields of r (status, superseded_by, updated_at)
// if the stored version still equals r.Version, then bumps r.Version.
// Returns ErrStale when another writer got there first.
func (t *Tx) Update(ctx context.Context, r *reservation.Reservation) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, superseded_by = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		string(r.Status),
		nullString(r.SupersededBy),
		toNanos(r.UpdatedAt),
		r.ID,
		r.Version,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update reservation %s at version %d: %w", r.ID, r.Version, ErrStale)
	}
	r.Version++
	return nil
}

// InsertDisplacement records a challenger/displaced pair.
// Uses ON CONFLICT DO NOTHING so a replayed write is harmless.
func (t *Tx) InsertDisplacement(ctx context.Context, d reservation.Displacement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO displacements
		(challenger_id, displaced_id, kind, prior_status, state, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(challenger_id, displaced_id) DO NOTHING
	`,
		d.ChallengerID,
		d.DisplacedID,
		string(d.Kind),
		string(d.PriorStatus),
		string(d.State),
		toNanos(d.CreatedAt),
		nullNanos(d.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("insert displacement: %w", err)
	}
	return nil
}

// UpdateDisplacement rewrites kind, prior status, state and resolution time
// of an existing record.
func (t *Tx) UpdateDisplacement(ctx context.Context, d reservation.Displacement) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE displacements
		SET kind = ?, prior_status = ?, state = ?, resolved_at = ?
		WHERE challenger_id = ? AND displaced_id = ?
	`,
		string(d.Kind),
		string(d.PriorStatus),
		string(d.State),
		nullNanos(d.ResolvedAt),
		d.ChallengerID,
		d.DisplacedID,
	)
	if err != nil {
		return fmt.Errorf("update displacement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update displacement: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update displacement %s/%s: %w", d.ChallengerID, d.DisplacedID, ErrNotFound)
	}
	return nil
}

// LookupKey returns the record stored for (owner, operation, key), or
// ErrNotFound.
func (t *Tx) LookupKey(ctx context.Context, ownerID, operation, key string) (KeyRecord, error) {
	rec := KeyRecord{OwnerID: ownerID, Operation: operation, Key: key}
	err := t.tx.QueryRowContext(ctx, `
		SELECT request_hash, reservation_id
		FROM idempotency_keys
		WHERE owner_id = ? AND operation = ? AND key = ?
	`, ownerID, operation, key).Scan(&rec.RequestHash, &rec.ReservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyRecord{}, ErrNotFound
	}
	if err != nil {
		return KeyRecord{}, fmt.Errorf("lookup key: %w", err)
	}
	return rec, nil
}

// RecordKey stores an idempotency key. A second write for the same key is
// ignored; the first request wins.
func (t *Tx) RecordKey(ctx context.Context, rec KeyRecord, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO idempotency_keys
		(owner_id, operation, key, request_hash, reservation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.OwnerID, rec.Operation, rec.Key, rec.RequestHash, rec.ReservationID, toNanos(at))
	if err != nil {
		return fmt.Errorf("record key: %w", err)
	}
	return nil
}

// AppendEvent adds an audit event and sets e.Seq.
func (t *Tx) AppendEvent(ctx context.Context, e *reservation.Event) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO reservation_events
		(reservation_id, from_status, to_status, reason, actor, related_id, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ReservationID, string(e.From), string(e.To), e.Reason, e.Actor, e.RelatedID, toNanos(e.At))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	e.Seq = seq
	return nil
}
