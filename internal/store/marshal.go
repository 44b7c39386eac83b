package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

// querier is satisfied by both *sql.DB and *sql.Tx so reads can be shared
// between the Store and a Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reservationColumns = `seq, id, owner_id, resource_id, start_at, end_at, purpose,
	priority, status, superseded_by, version, created_at, updated_at`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (reservation.Reservation, error) {
	var (
		r                    reservation.Reservation
		status               string
		supersededBy         sql.NullString
		startAt, endAt       int64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&r.Seq,
		&r.ID,
		&r.OwnerID,
		&r.ResourceID,
		&startAt,
		&endAt,
		&r.Purpose,
		&r.Priority,
		&status,
		&supersededBy,
		&r.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return reservation.Reservation{}, err
	}
	r.Status = reservation.Status(status)
	r.SupersededBy = supersededBy.String
	r.Interval = reservation.Interval{Start: fromNanos(startAt), End: fromNanos(endAt)}
	r.CreatedAt = fromNanos(createdAt)
	r.UpdatedAt = fromNanos(updatedAt)
	return r, nil
}

func scanDisplacement(row rowScanner) (reservation.Displacement, error) {
	var (
		d                  reservation.Displacement
		kind, prior, state string
		createdAt          int64
		resolvedAt         sql.NullInt64
	)
	if err := row.Scan(&d.ChallengerID, &d.DisplacedID, &kind, &prior, &state, &createdAt, &resolvedAt); err != nil {
		return reservation.Displacement{}, err
	}
	d.Kind = reservation.DisplacementKind(kind)
	d.PriorStatus = reservation.Status(prior)
	d.State = reservation.DisplacementState(state)
	d.CreatedAt = fromNanos(createdAt)
	if resolvedAt.Valid {
		t := fromNanos(resolvedAt.Int64)
		d.ResolvedAt = &t
	}
	return d, nil
}

// toNanos converts a timestamp to the stored representation.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

// statusArgs builds the placeholder list and arguments for a status IN clause.
func statusArgs(statuses []reservation.Status) (string, []any) {
	placeholders := make([]byte, 0, len(statuses)*2)
	args := make([]any, len(statuses))
	for i, s := range statuses {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = string(s)
	}
	return string(placeholders), args
}
