package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/gpures/internal/reservation"
)

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListByOwner_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ListByOwner(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	if got == nil {
		t.Error("ListByOwner() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("ListByOwner() returned %d, want 0", len(got))
	}
}

func TestListByOwner_NewestFirst(t *testing.T) {
	s := createTestStore(t)

	r1 := newTestReservation("r1", "alice", "GPU-A", "10:00", "11:00")
	r2 := newTestReservation("r2", "alice", "GPU-B", "10:00", "11:00")
	r2.CreatedAt = clock("09:00")
	r3 := newTestReservation("r3", "bob", "GPU-A", "12:00", "13:00")
	r4 := newTestReservation("r4", "alice", "GPU-A", "12:00", "13:00") // same CreatedAt as r1
	insertAll(t, s, &r1, &r2, &r3, &r4)

	got, err := s.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListByOwner() failed: %v", err)
	}
	want := []string{"r2", "r4", "r1"}
	if !equalStrings(ids(got), want) {
		t.Errorf("ListByOwner() = %v, want %v", ids(got), want)
	}
}

func TestOverlapping_HalfOpenAndStatusFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inside := newTestReservation("inside", "a", "GPU-A", "15:00", "16:00")
	touching := newTestReservation("touching", "a", "GPU-A", "18:00", "19:00")
	cancelled := newTestReservation("cancelled", "a", "GPU-A", "14:00", "18:00")
	cancelled.Status = reservation.StatusCancelled
	otherGPU := newTestReservation("other", "a", "GPU-B", "14:00", "18:00")
	waiting := newTestReservation("waiting", "a", "GPU-A", "17:00", "20:00")
	waiting.Status = reservation.StatusNeedConfirm
	insertAll(t, s, &inside, &touching, &cancelled, &otherGPU, &waiting)

	iv := reservation.Interval{Start: clock("14:00"), End: clock("18:00")}

	got, err := s.Overlapping(ctx, "GPU-A", iv, reservation.LiveStatuses)
	if err != nil {
		t.Fatalf("Overlapping() failed: %v", err)
	}
	want := []string{"inside", "waiting"}
	if !equalStrings(ids(got), want) {
		t.Errorf("Overlapping() = %v, want %v", ids(got), want)
	}

	got, err = s.Overlapping(ctx, "GPU-A", iv, []reservation.Status{reservation.StatusConfirmed})
	if err != nil {
		t.Fatalf("Overlapping() failed: %v", err)
	}
	if !equalStrings(ids(got), []string{"inside"}) {
		t.Errorf("Overlapping(confirmed) = %v", ids(got))
	}

	got, err = s.Overlapping(ctx, "GPU-A", iv, nil)
	if err != nil || len(got) != 0 || got == nil {
		t.Errorf("Overlapping(no statuses) = %v, %v; want empty slice", got, err)
	}
}

func TestOverlapping_OrderedOldestFirst(t *testing.T) {
	s := createTestStore(t)

	newer := newTestReservation("newer", "a", "GPU-A", "14:00", "15:00")
	newer.CreatedAt = clock("09:00")
	older := newTestReservation("older", "a", "GPU-A", "15:00", "16:00")
	older.CreatedAt = clock("07:00")
	tieA := newTestReservation("tie-a", "a", "GPU-A", "16:00", "17:00")
	tieB := newTestReservation("tie-b", "a", "GPU-A", "17:00", "18:00")
	insertAll(t, s, &newer, &older, &tieA, &tieB)

	got, err := s.Overlapping(context.Background(), "GPU-A",
		reservation.Interval{Start: clock("00:00"), End: clock("23:00")}, reservation.LiveStatuses)
	if err != nil {
		t.Fatalf("Overlapping() failed: %v", err)
	}
	want := []string{"older", "tie-a", "tie-b", "newer"}
	if !equalStrings(ids(got), want) {
		t.Errorf("Overlapping() = %v, want %v", ids(got), want)
	}
}

func TestOverlapping_BoundaryInstantsRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	late := newTestReservation("late", "a", "GPU-A", "14:00", "15:00")
	late.Interval = reservation.Interval{
		Start: reservation.LatestInstant.Add(-2 * time.Hour),
		End:   reservation.LatestInstant,
	}
	early := newTestReservation("early", "a", "GPU-B", "14:00", "15:00")
	early.Interval = reservation.Interval{
		Start: reservation.EarliestInstant,
		End:   reservation.EarliestInstant.Add(time.Hour),
	}
	insertAll(t, s, &late, &early)

	tests := []struct {
		resource string
		query    reservation.Interval
		want     reservation.Interval
	}{
		{"GPU-A", reservation.Interval{Start: late.Interval.Start.Add(time.Hour), End: late.Interval.End}, late.Interval},
		{"GPU-B", reservation.Interval{Start: early.Interval.Start, End: early.Interval.Start.Add(time.Minute)}, early.Interval},
	}
	for _, tt := range tests {
		got, err := s.Overlapping(ctx, tt.resource, tt.query, reservation.LiveStatuses)
		if err != nil {
			t.Fatalf("Overlapping(%s) failed: %v", tt.resource, err)
		}
		if len(got) != 1 {
			t.Fatalf("Overlapping(%s) = %v, want one row", tt.resource, ids(got))
		}
		if !got[0].Interval.Start.Equal(tt.want.Start) || !got[0].Interval.End.Equal(tt.want.End) {
			t.Errorf("Overlapping(%s) interval = %s, want %s", tt.resource, got[0].Interval, tt.want)
		}
	}

	beyond := reservation.Interval{
		Start: time.Date(2300, 1, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2300, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if _, err := s.Overlapping(ctx, "GPU-A", beyond, reservation.LiveStatuses); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Overlapping(beyond) error = %v, want ErrOutOfRange", err)
	}
}

func TestSupersedesLoadedFromDisplaceRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r1 := newTestReservation("r1", "a", "GPU-A", "14:00", "15:00")
	r2 := newTestReservation("r2", "b", "GPU-A", "15:00", "16:00")
	r3 := newTestReservation("r3", "c", "GPU-A", "14:00", "16:00")
	r3.CreatedAt = clock("09:00")
	r4 := newTestReservation("r4", "d", "GPU-A", "14:30", "15:30")
	r4.CreatedAt = clock("10:00")
	insertAll(t, s, &r1, &r2, &r3, &r4)

	err := s.InTx(ctx, func(tx *Tx) error {
		for _, d := range []reservation.Displacement{
			{ChallengerID: "r3", DisplacedID: "r1", Kind: reservation.KindDisplace, State: reservation.StateOpen, CreatedAt: clock("09:00")},
			{ChallengerID: "r3", DisplacedID: "r2", Kind: reservation.KindDisplace, State: reservation.StateAccepted, CreatedAt: clock("09:00")},
			{ChallengerID: "r4", DisplacedID: "r1", Kind: reservation.KindWait, State: reservation.StateOpen, CreatedAt: clock("10:00")},
		} {
			if err := tx.InsertDisplacement(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InsertDisplacement() failed: %v", err)
	}

	r3got, err := s.Get(ctx, "r3")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !equalStrings(r3got.Supersedes, []string{"r1", "r2"}) {
		t.Errorf("r3.Supersedes = %v, want [r1 r2]", r3got.Supersedes)
	}

	list, err := s.ListByResource(ctx, "GPU-A")
	if err != nil {
		t.Fatalf("ListByResource() failed: %v", err)
	}
	for _, r := range list {
		if r.ID == "r4" && len(r.Supersedes) != 0 {
			t.Errorf("wait records must not appear in Supersedes: %v", r.Supersedes)
		}
	}

	waiters, err := s.Displacements(ctx, DisplacementFilter{DisplacedID: "r1", Kind: reservation.KindWait})
	if err != nil || len(waiters) != 1 || waiters[0].ChallengerID != "r4" {
		t.Errorf("waiters = %+v, %v", waiters, err)
	}
}
