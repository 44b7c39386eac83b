package reservation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2030-05-01 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: at("14:00"), End: at("18:00")}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"contained", Interval{at("16:00"), at("17:00")}, true},
		{"containing", Interval{at("13:00"), at("19:00")}, true},
		{"overlaps start", Interval{at("13:00"), at("14:30")}, true},
		{"overlaps end", Interval{at("17:30"), at("19:00")}, true},
		{"identical", Interval{at("14:00"), at("18:00")}, true},
		{"touches end", Interval{at("18:00"), at("19:00")}, false},
		{"touches start", Interval{at("12:00"), at("14:00")}, false},
		{"disjoint before", Interval{at("09:00"), at("10:00")}, false},
		{"disjoint after", Interval{at("20:00"), at("21:00")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestIntervalValid(t *testing.T) {
	assert.True(t, Interval{at("14:00"), at("15:00")}.Valid())
	assert.False(t, Interval{at("14:00"), at("14:00")}.Valid())
	assert.False(t, Interval{at("15:00"), at("14:00")}.Valid())
}

func TestIntervalInRange(t *testing.T) {
	assert.True(t, Interval{at("14:00"), at("15:00")}.InRange())
	assert.True(t, Interval{EarliestInstant, LatestInstant}.InRange())
	assert.False(t, Interval{EarliestInstant.Add(-time.Nanosecond), at("15:00")}.InRange())
	assert.False(t, Interval{at("14:00"), LatestInstant.Add(time.Nanosecond)}.InRange())

	assert.Equal(t, int64(math.MaxInt64), LatestInstant.UnixNano())
	assert.Equal(t, int64(math.MinInt64), EarliestInstant.UnixNano())
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.False(t, StatusNeedConfirm.Active())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusNeedConfirm.Terminal())
	assert.False(t, Status("booked").Valid())
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{}
	for _, edge := range [][2]Status{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusNeedConfirm},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusNeedConfirm},
		{StatusConfirmed, StatusCancelled},
		{StatusNeedConfirm, StatusCancelled},
		{StatusNeedConfirm, StatusConfirmed},
		{StatusNeedConfirm, StatusPending},
		{StatusNeedConfirm, StatusRejected},
	} {
		allowed[edge] = true
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesAreNeverLeft(t *testing.T) {
	for _, from := range []Status{StatusCancelled, StatusRejected} {
		for _, to := range AllStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransitionStampsUpdatedAt(t *testing.T) {
	r := Reservation{ID: "r1", Status: StatusPending}
	now := at("12:00")

	require.NoError(t, r.Transition(StatusConfirmed, now))
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, now, r.UpdatedAt)

	err := r.Transition(StatusPending, now)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidStateTransition))
	assert.Equal(t, StatusConfirmed, r.Status)
}

func TestElderThan(t *testing.T) {
	a := Reservation{CreatedAt: at("10:00"), Seq: 5}
	b := Reservation{CreatedAt: at("11:00"), Seq: 1}
	c := Reservation{CreatedAt: at("10:00"), Seq: 6}

	assert.True(t, a.ElderThan(b))
	assert.False(t, b.ElderThan(a))
	assert.True(t, a.ElderThan(c), "seq breaks timestamp ties")
}

func TestDetails(t *testing.T) {
	r := Reservation{
		ResourceID: "GPU-A",
		Interval:   Interval{at("14:00"), at("18:00")},
		Purpose:    "training",
	}
	assert.Equal(t, "GPU-A 2030-05-01 14:00-18:00 UTC (training)", r.Details())

	r.Interval.End = r.Interval.End.Add(24 * time.Hour)
	r.Purpose = ""
	assert.Equal(t, "GPU-A 2030-05-01 14:00-2030-05-02 18:00 UTC", r.Details())
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("accept")
	require.NoError(t, err)
	assert.Equal(t, DecisionAccept, d)

	_, err = ParseDecision("maybe")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedRequest))
}
