package harness

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioNow = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

func clockAt(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2030, 5, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func create(as, owner, from, to string) Step {
	return Step{Create: &CreateStep{
		As:       as,
		Owner:    owner,
		Resource: "GPU-A",
		Start:    clockAt(from),
		End:      clockAt(to),
		Purpose:  "training",
	}}
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_DisplacementTrace(t *testing.T) {
	scenario := &Scenario{
		Name:        "trace",
		Description: "trace shape",
		Now:         scenarioNow,
		Resources:   []string{"GPU-A"},
		Steps: []Step{
			create("alice", "alice", "10:00", "12:00"),
			create("bob", "bob", "11:00", "13:00"),
			{Resolve: &ResolveStep{Ref: "alice", Decision: "accept"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Seq: 1, Op: "create", Ref: "alice", Actor: "alice", Outcome: "confirmed"}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Op: "create", Ref: "bob", Actor: "bob", Outcome: "pending"}, result.Trace[1])
	assert.Equal(t, TraceEvent{Seq: 3, Op: "resolve", Ref: "alice", Actor: "alice", Decision: "accept", Outcome: "cancelled"}, result.Trace[2])

	assert.Equal(t, []string{"alice", "bob"}, result.Aliases)
	assert.Equal(t, FinalState{Status: "cancelled", SupersededBy: "bob"}, result.State["alice"])
	assert.Equal(t, FinalState{Status: "confirmed", Supersedes: []string{"alice"}}, result.State["bob"])
}

func TestRun_FailedExpectation(t *testing.T) {
	first := create("alice", "alice", "10:00", "12:00")
	first.Expect = &ExpectClause{Status: "pending"}
	second := create("bob", "bob", "13:00", "14:00")
	second.Expect = &ExpectClause{Error: "PastIntervalError"}

	scenario := &Scenario{
		Name:        "failing",
		Description: "expectations that do not hold",
		Now:         scenarioNow,
		Resources:   []string{"GPU-A"},
		Steps:       []Step{first, second},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected status pending, got confirmed")
	assert.Contains(t, result.Errors[1], "expected PastIntervalError, got status confirmed")
}

func TestRun_FailedCreateLeavesAliasUnbound(t *testing.T) {
	bad := create("bad", "alice", "12:00", "10:00")
	bad.Expect = &ExpectClause{Error: "InvalidIntervalError"}

	scenario := &Scenario{
		Name:        "unbound",
		Description: "a failed create binds no alias",
		Now:         scenarioNow,
		Resources:   []string{"GPU-A"},
		Steps: []Step{
			bad,
			{
				Cancel: &CancelStep{Ref: "bad", Actor: "alice"},
				Expect: &ExpectClause{Error: "ReservationNotFoundError"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.State)
}

func TestRun_UnknownPolicy(t *testing.T) {
	scenario := &Scenario{
		Name:        "policy",
		Description: "bad policy",
		Now:         scenarioNow,
		Policy:      "loudest",
		Resources:   []string{"GPU-A"},
		Steps:       []Step{create("alice", "alice", "10:00", "11:00")},
	}

	_, err := Run(scenario)
	require.Error(t, err)
}

func TestRun_Advance(t *testing.T) {
	late := create("late", "alice", "09:30", "10:30")
	late.Expect = &ExpectClause{Error: "PastIntervalError"}

	scenario := &Scenario{
		Name:        "advance",
		Description: "clock moves between steps",
		Now:         scenarioNow,
		Resources:   []string{"GPU-A"},
		Steps: []Step{
			create("early", "alice", "09:30", "10:30"),
			{Advance: "2h"},
			late,
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, TraceEvent{Seq: 2, Op: "advance", Outcome: "2h"}, result.Trace[1])
}
