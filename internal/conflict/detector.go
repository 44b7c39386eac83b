// Package conflict finds existing reservations that collide with a candidate
// resource and time interval.
package conflict

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/gpures/internal/reservation"
)

// Querier reads reservations by resource, interval and status. Implemented by
// store.Store for read-only callers and by store.Tx inside an admission.
type Querier interface {
	Overlapping(ctx context.Context, resourceID string, iv reservation.Interval, statuses []reservation.Status) ([]reservation.Reservation, error)
}

// FindConflicts returns every reservation on resourceID that overlaps iv and
// whose status is live (pending, confirmed, need_confirm) and not listed in
// exclude. Results are ordered oldest first; ties on CreatedAt fall back to
// store insertion order.
//
// FindConflicts never writes.
func FindConflicts(ctx context.Context, q Querier, resourceID string, iv reservation.Interval, exclude ...reservation.Status) ([]reservation.Reservation, error) {
	if strings.TrimSpace(resourceID) == "" {
		return nil, reservation.NewMalformedRequestError("resourceId is required")
	}
	if !iv.Valid() {
		return nil, reservation.NewInvalidIntervalError(fmt.Sprintf("interval %s is empty or inverted", iv))
	}
	if !iv.InRange() {
		return nil, reservation.NewInvalidIntervalError(fmt.Sprintf("interval %s is outside the storable range", iv))
	}

	statuses := searchStatuses(exclude)
	if len(statuses) == 0 {
		return []reservation.Reservation{}, nil
	}

	found, err := q.Overlapping(ctx, resourceID, iv, statuses)
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}

	// The store already filters and orders, but the contract is enforced here
	// so any Querier gives the same answer.
	conflicts := make([]reservation.Reservation, 0, len(found))
	for _, r := range found {
		if r.ResourceID == resourceID && r.Interval.Overlaps(iv) && containsStatus(statuses, r.Status) {
			conflicts = append(conflicts, r)
		}
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].ElderThan(conflicts[j])
	})
	return conflicts, nil
}

func searchStatuses(exclude []reservation.Status) []reservation.Status {
	statuses := make([]reservation.Status, 0, len(reservation.LiveStatuses))
	for _, s := range reservation.LiveStatuses {
		if !containsStatus(exclude, s) {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

func containsStatus(list []reservation.Status, s reservation.Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
