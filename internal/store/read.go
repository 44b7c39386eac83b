package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gpures/internal/reservation"
)

// DisplacementFilter narrows a displacement query. Empty fields match
// everything.
type DisplacementFilter struct {
	ChallengerID string
	DisplacedID  string
	Kind         reservation.DisplacementKind
	State        reservation.DisplacementState
}

// KeyRecord binds an idempotency key to the request it was first used with.
type KeyRecord struct {
	OwnerID       string
	Operation     string
	Key           string
	RequestHash   string
	ReservationID string
}

// Get returns the reservation with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (reservation.Reservation, error) {
	return getReservation(ctx, s.db, id)
}

// ListByOwner returns every reservation owned by ownerID, newest first.
// Returns an empty slice (not nil) when the owner has none.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]reservation.Reservation, error) {
	res, err := queryReservations(ctx, s.db, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE owner_id = ?
		ORDER BY created_at DESC, seq DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	return res, nil
}

// ListByResource returns every reservation on resourceID, oldest first.
func (s *Store) ListByResource(ctx context.Context, resourceID string) ([]reservation.Reservation, error) {
	res, err := queryReservations(ctx, s.db, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE resource_id = ?
		ORDER BY created_at ASC, seq ASC
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list by resource: %w", err)
	}
	return res, nil
}

// Overlapping returns reservations on resourceID whose status is in statuses
// and whose interval overlaps iv, oldest first.
func (s *Store) Overlapping(ctx context.Context, resourceID string, iv reservation.Interval, statuses []reservation.Status) ([]reservation.Reservation, error) {
	return overlapping(ctx, s.db, resourceID, iv, statuses)
}

// Events returns the audit log of a reservation in seq order.
func (s *Store) Events(ctx context.Context, reservationID string) ([]reservation.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, reservation_id, from_status, to_status, reason, actor, related_id, at
		FROM reservation_events
		WHERE reservation_id = ?
		ORDER BY seq ASC
	`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	defer rows.Close()

	events := []reservation.Event{}
	for rows.Next() {
		var (
			e        reservation.Event
			from, to string
			at       int64
		)
		if err := rows.Scan(&e.Seq, &e.ReservationID, &from, &to, &e.Reason, &e.Actor, &e.RelatedID, &at); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		e.From = reservation.Status(from)
		e.To = reservation.Status(to)
		e.At = fromNanos(at)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return events, nil
}

// Displacements returns displacement records matching filter.
func (s *Store) Displacements(ctx context.Context, filter DisplacementFilter) ([]reservation.Displacement, error) {
	return displacements(ctx, s.db, filter)
}

func getReservation(ctx context.Context, q querier, id string) (reservation.Reservation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Reservation{}, ErrNotFound
	}
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}

	withLinks := []reservation.Reservation{r}
	if err := loadSupersedes(ctx, q, withLinks); err != nil {
		return reservation.Reservation{}, err
	}
	return withLinks[0], nil
}

func overlapping(ctx context.Context, q querier, resourceID string, iv reservation.Interval, statuses []reservation.Status) ([]reservation.Reservation, error) {
	if len(statuses) == 0 {
		return []reservation.Reservation{}, nil
	}
	if !iv.InRange() {
		return nil, fmt.Errorf("overlapping: %w", ErrOutOfRange)
	}
	placeholders, args := statusArgs(statuses)
	args = append([]any{resourceID, toNanos(iv.End), toNanos(iv.Start)}, args...)

	res, err := queryReservations(ctx, q, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE resource_id = ?
		  AND start_at < ?
		  AND ? < end_at
		  AND status IN (`+placeholders+`)
		ORDER BY created_at ASC, seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("overlapping: %w", err)
	}
	return res, nil
}

// queryReservations runs a reservation query and attaches Supersedes.
// Rows are fully drained before the link query runs; the pool has a single
// connection.
func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]reservation.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	res := []reservation.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := loadSupersedes(ctx, q, res); err != nil {
		return nil, err
	}
	return res, nil
}

// loadSupersedes fills Supersedes from the displace records where each
// reservation is the challenger, in the order the records were created.
func loadSupersedes(ctx context.Context, q querier, res []reservation.Reservation) error {
	if len(res) == 0 {
		return nil
	}

	index := make(map[string]int, len(res))
	args := make([]any, len(res))
	for i, r := range res {
		index[r.ID] = i
		args[i] = r.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(res)), ",")

	rows, err := q.QueryContext(ctx, `
		SELECT d.challenger_id, d.displaced_id
		FROM displacements d
		JOIN reservations x ON x.id = d.displaced_id
		WHERE d.kind = 'displace'
		  AND d.challenger_id IN (`+placeholders+`)
		ORDER BY d.created_at ASC, x.seq ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("load supersedes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var challenger, displaced string
		if err := rows.Scan(&challenger, &displaced); err != nil {
			return fmt.Errorf("load supersedes: scan: %w", err)
		}
		i := index[challenger]
		res[i].Supersedes = append(res[i].Supersedes, displaced)
	}
	return rows.Err()
}

// displacements returns records ordered by challenger age, then displaced
// age. The oldest waiting challenger therefore comes first.
func displacements(ctx context.Context, q querier, filter DisplacementFilter) ([]reservation.Displacement, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ChallengerID != "" {
		clauses = append(clauses, "d.challenger_id = ?")
		args = append(args, filter.ChallengerID)
	}
	if filter.DisplacedID != "" {
		clauses = append(clauses, "d.displaced_id = ?")
		args = append(args, filter.DisplacedID)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "d.kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.State != "" {
		clauses = append(clauses, "d.state = ?")
		args = append(args, string(filter.State))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := q.QueryContext(ctx, `
		SELECT d.challenger_id, d.displaced_id, d.kind, d.prior_status, d.state, d.created_at, d.resolved_at
		FROM displacements d
		JOIN reservations c ON c.id = d.challenger_id
		JOIN reservations x ON x.id = d.displaced_id
		`+where+`
		ORDER BY c.created_at ASC, c.seq ASC, x.created_at ASC, x.seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("displacements: %w", err)
	}
	defer rows.Close()

	out := []reservation.Displacement{}
	for rows.Next() {
		d, err := scanDisplacement(rows)
		if err != nil {
			return nil, fmt.Errorf("displacements: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("displacements: %w", err)
	}
	return out, nil
}
