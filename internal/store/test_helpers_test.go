package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma returns the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}

// clock returns a time on a fixed test day.
func clock(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2030-05-01 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// newTestReservation creates a confirmed reservation with minimal fields.
func newTestReservation(id, owner, resource, start, end string) reservation.Reservation {
	created := clock("08:00")
	return reservation.Reservation{
		ID:         id,
		OwnerID:    owner,
		ResourceID: resource,
		Interval:   reservation.Interval{Start: clock(start), End: clock(end)},
		Purpose:    "test",
		Status:     reservation.StatusConfirmed,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// insertAll inserts reservations in order inside one transaction.
func insertAll(t *testing.T, s *Store, rs ...*reservation.Reservation) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx *Tx) error {
		for _, r := range rs {
			if err := tx.Insert(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func ids(rs []reservation.Reservation) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
