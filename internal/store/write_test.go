package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

func TestInsert_AssignsSeqAndVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	r2 := newTestReservation("r2", "bob", "GPU-A", "19:00", "20:00")
	insertAll(t, s, &r1, &r2)

	if r1.Seq == 0 || r2.Seq <= r1.Seq {
		t.Errorf("seq not increasing: r1=%d r2=%d", r1.Seq, r2.Seq)
	}
	if r1.Version != 1 {
		t.Errorf("Version = %d, want 1", r1.Version)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.OwnerID != "alice" || got.Status != reservation.StatusConfirmed {
		t.Errorf("Get() = %+v", got)
	}
	if !got.Interval.Start.Equal(clock("14:00")) || !got.Interval.End.Equal(clock("18:00")) {
		t.Errorf("interval round trip = %s", got.Interval)
	}
}

func TestInsert_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	insertAll(t, s, &r1)

	dup := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	err := s.InTx(ctx, func(tx *Tx) error { return tx.Insert(ctx, &dup) })
	if err == nil {
		t.Error("expected UNIQUE violation for duplicate id")
	}
}

func TestInsert_OutOfRangeInterval(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		iv   reservation.Interval
	}{
		{"after latest", reservation.Interval{
			Start: time.Date(2300, 1, 1, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2300, 1, 1, 12, 0, 0, 0, time.UTC),
		}},
		{"straddles latest", reservation.Interval{
			Start: time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2263, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
		{"before earliest", reservation.Interval{
			Start: time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(1600, 1, 2, 0, 0, 0, 0, time.UTC),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReservation("r-"+tt.name, "alice", "GPU-A", "14:00", "18:00")
			r.Interval = tt.iv
			err := s.InTx(ctx, func(tx *Tx) error { return tx.Insert(ctx, &r) })
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Insert() error = %v, want ErrOutOfRange", err)
			}
		})
	}

	got, err := s.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListByOwner() = %v, want nothing stored", ids(got))
	}
}

func TestUpdate_VersionCheck(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	insertAll(t, s, &r1)

	stale := r1
	err := s.InTx(ctx, func(tx *Tx) error {
		r1.Status = reservation.StatusNeedConfirm
		r1.UpdatedAt = clock("09:00")
		return tx.Update(ctx, &r1)
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if r1.Version != 2 {
		t.Errorf("Version = %d, want 2", r1.Version)
	}

	err = s.InTx(ctx, func(tx *Tx) error {
		stale.Status = reservation.StatusCancelled
		return tx.Update(ctx, &stale)
	})
	if !errors.Is(err, ErrStale) {
		t.Fatalf("stale Update() error = %v, want ErrStale", err)
	}

	got, _ := s.Get(ctx, "r1")
	if got.Status != reservation.StatusNeedConfirm {
		t.Errorf("status = %s, stale write must not apply", got.Status)
	}
}

func TestDisplacement_InsertAndUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	r2 := newTestReservation("r2", "bob", "GPU-A", "16:00", "17:00")
	r2.CreatedAt = clock("09:00")
	insertAll(t, s, &r1, &r2)

	d := reservation.Displacement{
		ChallengerID: "r2",
		DisplacedID:  "r1",
		Kind:         reservation.KindDisplace,
		PriorStatus:  reservation.StatusConfirmed,
		State:        reservation.StateOpen,
		CreatedAt:    clock("09:00"),
	}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertDisplacement(ctx, d); err != nil {
			return err
		}
		// Replayed insert is ignored.
		return tx.InsertDisplacement(ctx, d)
	})
	if err != nil {
		t.Fatalf("InsertDisplacement() failed: %v", err)
	}

	open, err := s.Displacements(ctx, DisplacementFilter{DisplacedID: "r1", State: reservation.StateOpen})
	if err != nil {
		t.Fatalf("Displacements() failed: %v", err)
	}
	if len(open) != 1 || open[0].PriorStatus != reservation.StatusConfirmed || open[0].ResolvedAt != nil {
		t.Fatalf("open displacements = %+v", open)
	}

	resolved := clock("10:00")
	d.State = reservation.StateAccepted
	d.ResolvedAt = &resolved
	if err := s.InTx(ctx, func(tx *Tx) error { return tx.UpdateDisplacement(ctx, d) }); err != nil {
		t.Fatalf("UpdateDisplacement() failed: %v", err)
	}

	all, _ := s.Displacements(ctx, DisplacementFilter{ChallengerID: "r2"})
	if len(all) != 1 || all[0].State != reservation.StateAccepted || all[0].ResolvedAt == nil || !all[0].ResolvedAt.Equal(resolved) {
		t.Errorf("after update = %+v", all)
	}

	missing := reservation.Displacement{ChallengerID: "r1", DisplacedID: "r2"}
	err = s.InTx(ctx, func(tx *Tx) error { return tx.UpdateDisplacement(ctx, missing) })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateDisplacement(missing) error = %v, want ErrNotFound", err)
	}
}

func TestIdempotencyKeys(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	insertAll(t, s, &r1)

	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.LookupKey(ctx, "alice", "create", "k1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("LookupKey() before record = %v, want ErrNotFound", err)
		}
		first := KeyRecord{OwnerID: "alice", Operation: "create", Key: "k1", RequestHash: "h1", ReservationID: "r1"}
		if err := tx.RecordKey(ctx, first, clock("09:00")); err != nil {
			return err
		}
		second := first
		second.RequestHash = "h2"
		return tx.RecordKey(ctx, second, clock("09:01"))
	})
	if err != nil {
		t.Fatalf("RecordKey() failed: %v", err)
	}

	err = s.InTx(ctx, func(tx *Tx) error {
		rec, err := tx.LookupKey(ctx, "alice", "create", "k1")
		if err != nil {
			return err
		}
		if rec.RequestHash != "h1" || rec.ReservationID != "r1" {
			t.Errorf("LookupKey() = %+v, first write must win", rec)
		}
		if _, err := tx.LookupKey(ctx, "bob", "create", "k1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("keys must be scoped per owner, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("LookupKey() failed: %v", err)
	}
}

func TestAppendEvent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "alice", "GPU-A", "14:00", "18:00")
	insertAll(t, s, &r1)

	events := []reservation.Event{
		{ReservationID: "r1", To: reservation.StatusConfirmed, Reason: reservation.ReasonAdmitted, Actor: "alice", At: clock("08:00")},
		{ReservationID: "r1", From: reservation.StatusConfirmed, To: reservation.StatusNeedConfirm, Reason: reservation.ReasonDisplaced, RelatedID: "r2", At: clock("09:00")},
	}
	err := s.InTx(ctx, func(tx *Tx) error {
		for i := range events {
			if err := tx.AppendEvent(ctx, &events[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	got, err := s.Events(ctx, "r1")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Events() returned %d, want 2", len(got))
	}
	if got[0].Seq >= got[1].Seq {
		t.Errorf("events not in seq order: %d, %d", got[0].Seq, got[1].Seq)
	}
	if got[1].From != reservation.StatusConfirmed || got[1].RelatedID != "r2" || !got[1].At.Equal(clock("09:00")) {
		t.Errorf("event round trip = %+v", got[1])
	}
}
