package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/gpures/internal/catalog"
	"github.com/roach88/gpures/internal/engine"
	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
	"github.com/roach88/gpures/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.DeterministicClock

	// ids maps alias to reservation id; aliases maps back.
	ids     map[string]string
	aliases map[string]string
	owners  map[string]string
	order   []string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A returned error means
// the scenario could not be executed at all; step and assertion mismatches
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	policy, err := engine.ParsePolicy(scenario.Policy)
	if err != nil {
		return nil, err
	}

	resources := make([]catalog.Resource, 0, len(scenario.Resources))
	for _, id := range scenario.Resources {
		resources = append(resources, catalog.Resource{ID: id})
	}

	clock := testutil.NewDeterministicClock(scenario.Now, time.Millisecond)
	h := &Harness{
		store: st,
		clock: clock,
		engine: engine.New(st, catalog.FromResources(resources...),
			engine.WithClock(clock),
			engine.WithKeyGenerator(testutil.NewSequenceKeys(scenario.Name)),
			engine.WithPolicy(policy),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
		ids:     make(map[string]string),
		aliases: make(map[string]string),
		owners:  make(map[string]string),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := h.collectState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to collect final state: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Engine: h.engine, IDs: h.ids, Owners: h.owners}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	var (
		event = TraceEvent{Op: step.Op()}
		out   reservation.Reservation
		err   error
	)

	switch {
	case step.Advance != "":
		d, perr := time.ParseDuration(step.Advance)
		if perr != nil {
			return perr
		}
		h.clock.Advance(d)
		event.Outcome = step.Advance
		result.AddTrace(event)
		return nil

	case step.Create != nil:
		c := step.Create
		event.Ref, event.Actor = c.As, c.Owner
		out, err = h.engine.Create(ctx, reservation.Request{
			OwnerID:        c.Owner,
			ResourceID:     c.Resource,
			Interval:       reservation.Interval{Start: c.Start, End: c.End},
			Purpose:        c.Purpose,
			Priority:       c.Priority,
			IdempotencyKey: c.Key,
		})
		if err == nil {
			h.remember(c.As, out)
		}

	case step.Resolve != nil:
		r := step.Resolve
		event.Ref, event.Actor, event.Decision = r.Ref, h.actorFor(r.Ref, r.Actor), r.Decision
		out, err = h.engine.Resolve(ctx, event.Actor, h.idFor(r.Ref), reservation.Decision(r.Decision), r.Key)

	case step.Cancel != nil:
		c := step.Cancel
		event.Ref, event.Actor = c.Ref, h.actorFor(c.Ref, c.Actor)
		out, err = h.engine.Cancel(ctx, event.Actor, h.idFor(c.Ref), c.Key)
	}

	if err != nil {
		kind := reservation.KindOf(err)
		if kind == "" {
			return err
		}
		event.Outcome = string(kind)
	} else {
		event.Outcome = string(out.Status)
	}
	result.AddTrace(event)

	if step.Expect != nil {
		h.checkExpect(index, step.Expect, event, out, err, result)
	}
	return nil
}

func (h *Harness) checkExpect(index int, expect *ExpectClause, event TraceEvent, out reservation.Reservation, err error, result *Result) {
	if expect.Error != "" {
		if err == nil {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: expected %s, got status %s", index, event.Op, event.Ref, expect.Error, out.Status))
		} else if event.Outcome != expect.Error {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: expected %s, got %s", index, event.Op, event.Ref, expect.Error, event.Outcome))
		}
		return
	}

	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: expected status %s, got error %v", index, event.Op, event.Ref, expect.Status, err))
		return
	}
	if string(out.Status) != expect.Status {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: expected status %s, got %s", index, event.Op, event.Ref, expect.Status, out.Status))
	}
	if expect.Supersedes != nil {
		got := h.aliasAll(out.Supersedes)
		if !slices.Equal(got, expect.Supersedes) {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: expected supersedes %v, got %v", index, event.Op, event.Ref, expect.Supersedes, got))
		}
	}
}

func (h *Harness) remember(alias string, r reservation.Reservation) {
	if _, ok := h.ids[alias]; ok {
		return
	}
	h.ids[alias] = r.ID
	if _, ok := h.aliases[r.ID]; !ok {
		h.aliases[r.ID] = alias
	}
	h.owners[alias] = r.OwnerID
	h.order = append(h.order, alias)
}

// idFor returns the id behind alias. An alias whose create failed resolves to
// itself, which the engine reports as ReservationNotFoundError.
func (h *Harness) idFor(alias string) string {
	if id, ok := h.ids[alias]; ok {
		return id
	}
	return alias
}

func (h *Harness) actorFor(alias, actor string) string {
	if actor != "" {
		return actor
	}
	return h.owners[alias]
}

func (h *Harness) aliasFor(id string) string {
	if alias, ok := h.aliases[id]; ok {
		return alias
	}
	return id
}

func (h *Harness) aliasAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.aliasFor(id))
	}
	return out
}

func (h *Harness) collectState(ctx context.Context, result *Result) error {
	for _, alias := range h.order {
		r, err := h.store.Get(ctx, h.ids[alias])
		if err != nil {
			return err
		}
		state := FinalState{Status: string(r.Status)}
		if r.SupersededBy != "" {
			state.SupersededBy = h.aliasFor(r.SupersededBy)
		}
		if len(r.Supersedes) > 0 {
			state.Supersedes = h.aliasAll(r.Supersedes)
		}
		result.State[alias] = state
	}
	result.Aliases = append([]string(nil), h.order...)
	return nil
}
