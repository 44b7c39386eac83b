package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gpures/internal/reservation"
)

// Snapshot renders a scenario's trace and final state as canonical JSON.
// Golden files hold exactly these bytes.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"seq":     event.Seq,
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Ref != "" {
			m["ref"] = event.Ref
		}
		if event.Actor != "" {
			m["actor"] = event.Actor
		}
		if event.Decision != "" {
			m["decision"] = event.Decision
		}
		trace[i] = m
	}

	final := make(map[string]any, len(result.State))
	for alias, state := range result.State {
		m := map[string]any{"status": state.Status}
		if state.SupersededBy != "" {
			m["superseded_by"] = state.SupersededBy
		}
		if len(state.Supersedes) > 0 {
			m["supersedes"] = state.Supersedes
		}
		final[alias] = m
	}

	return reservation.MarshalCanonical(map[string]any{
		"scenario_name": scenario.Name,
		"trace":         trace,
		"final":         final,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
