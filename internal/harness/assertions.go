package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gpures/internal/engine"
	"github.com/roach88/gpures/internal/store"
)

// AssertionContext gives assertions access to the scenario's store and
// alias tables.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *engine.Engine
	IDs    map[string]string
	Owners map[string]string
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Op, event.Ref, event.Outcome)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStatus:
		return assertStatus(result, a)
	case AssertSupersededBy:
		return assertSupersededBy(result, a)
	case AssertSupersedes:
		return assertSupersedes(result, a)
	case AssertEventCount:
		return assertEventCount(result, a, actx)
	case AssertNoOverlap:
		return assertNoOverlap(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func stateOf(result *Result, a Assertion) (FinalState, error) {
	state, ok := result.State[a.Ref]
	if !ok {
		return FinalState{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("reservation %s exists", a.Ref),
			Actual:   "never created",
			Trace:    result.Trace,
		}
	}
	return state, nil
}

func assertStatus(result *Result, a Assertion) error {
	state, err := stateOf(result, a)
	if err != nil {
		return err
	}
	if state.Status != a.Status {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s is %s", a.Ref, a.Status),
			Actual:   fmt.Sprintf("%s is %s", a.Ref, state.Status),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertSupersededBy(result *Result, a Assertion) error {
	state, err := stateOf(result, a)
	if err != nil {
		return err
	}
	if state.SupersededBy != a.By {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s superseded by %q", a.Ref, a.By),
			Actual:   fmt.Sprintf("superseded by %q", state.SupersededBy),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertSupersedes(result *Result, a Assertion) error {
	state, err := stateOf(result, a)
	if err != nil {
		return err
	}
	want := a.Refs
	if want == nil {
		want = []string{}
	}
	got := state.Supersedes
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s supersedes %v", a.Ref, want),
			Actual:   fmt.Sprintf("supersedes %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventCount(result *Result, a Assertion, actx *AssertionContext) error {
	events, err := actx.Engine.History(actx.Ctx, actx.Owners[a.Ref], actx.IDs[a.Ref])
	if err != nil {
		return fmt.Errorf("history of %s: %w", a.Ref, err)
	}
	if len(events) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s has %d events", a.Ref, a.Count),
			Actual:   fmt.Sprintf("%d events", len(events)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertNoOverlap checks that no two pending/confirmed reservations created
// by the scenario overlap on the same resource.
func assertNoOverlap(result *Result, actx *AssertionContext) error {
	seen := make(map[string]bool)
	for _, alias := range result.Aliases {
		r, err := actx.Store.Get(actx.Ctx, actx.IDs[alias])
		if err != nil {
			return err
		}
		if seen[r.ResourceID] {
			continue
		}
		seen[r.ResourceID] = true

		all, err := actx.Store.ListByResource(actx.Ctx, r.ResourceID)
		if err != nil {
			return err
		}
		for i, a := range all {
			for _, b := range all[i+1:] {
				if a.Status.Active() && b.Status.Active() && a.Interval.Overlaps(b.Interval) {
					return &AssertionError{
						Type:     AssertNoOverlap,
						Expected: fmt.Sprintf("no overlapping active reservations on %s", r.ResourceID),
						Actual:   fmt.Sprintf("%s (%s) overlaps %s (%s)", a.Interval, a.Status, b.Interval, b.Status),
						Trace:    result.Trace,
					}
				}
			}
		}
	}
	return nil
}
