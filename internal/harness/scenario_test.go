package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: valid
description: "two reservations"
now: 2030-05-01T09:00:00Z
resources: [GPU-A]
steps:
  - create: {as: alice, owner: alice, resource: GPU-A, start: 2030-05-01T10:00:00Z, end: 2030-05-01T12:00:00Z, purpose: training}
    expect: {status: confirmed}
  - create: {as: bob, owner: bob, resource: GPU-A, start: 2030-05-01T11:00:00Z, end: 2030-05-01T13:00:00Z, purpose: eval, priority: 3}
    expect: {status: pending, supersedes: [alice]}
  - resolve: {ref: alice, decision: dispute}
  - advance: 30m
assertions:
  - type: status
    ref: alice
    status: confirmed
  - type: no_overlap
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", scenario.Name)
	assert.Equal(t, scenarioNow, scenario.Now.UTC())
	assert.Equal(t, []string{"GPU-A"}, scenario.Resources)
	require.Len(t, scenario.Steps, 4)
	assert.Equal(t, "create", scenario.Steps[0].Op())
	assert.Equal(t, 3, scenario.Steps[1].Create.Priority)
	assert.Equal(t, []string{"alice"}, scenario.Steps[1].Expect.Supersedes)
	assert.Equal(t, "resolve", scenario.Steps[2].Op())
	assert.Equal(t, "advance", scenario.Steps[3].Op())
	assert.Len(t, scenario.Assertions, 2)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(validScenario + "typo: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	header := "name: s\ndescription: d\nnow: 2030-05-01T09:00:00Z\nresources: [GPU-A]\n"
	alice := "  - create: {as: alice, owner: alice, resource: GPU-A, start: 2030-05-01T10:00:00Z, end: 2030-05-01T12:00:00Z, purpose: p}\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nnow: 2030-05-01T09:00:00Z\nresources: [GPU-A]\nsteps:\n" + alice,
			want: "name is required",
		},
		{
			name: "missing now",
			yaml: "name: s\ndescription: d\nresources: [GPU-A]\nsteps:\n" + alice,
			want: "now is required",
		},
		{
			name: "no resources",
			yaml: "name: s\ndescription: d\nnow: 2030-05-01T09:00:00Z\nsteps:\n" + alice,
			want: "resources list is required",
		},
		{
			name: "no steps",
			yaml: header,
			want: "steps list is required",
		},
		{
			name: "two operations in one step",
			yaml: header + "steps:\n" + alice + "    advance: 1h\n",
			want: "exactly one of create, resolve, cancel, advance",
		},
		{
			name: "duplicate alias",
			yaml: header + "steps:\n" + alice + alice,
			want: `alias "alice" already used`,
		},
		{
			name: "resolve before create",
			yaml: header + "steps:\n  - resolve: {ref: alice, decision: accept}\n" + alice,
			want: `unknown ref "alice"`,
		},
		{
			name: "bad decision",
			yaml: header + "steps:\n" + alice + "  - resolve: {ref: alice, decision: maybe}\n",
			want: "steps[1].resolve",
		},
		{
			name: "bad duration",
			yaml: header + "steps:\n  - advance: soon\n",
			want: "steps[0].advance",
		},
		{
			name: "status and error",
			yaml: header + "steps:\n" + alice + "    expect: {status: confirmed, error: ForbiddenError}\n",
			want: "exactly one of status or error",
		},
		{
			name: "unknown expected status",
			yaml: header + "steps:\n" + alice + "    expect: {status: booked}\n",
			want: `unknown status "booked"`,
		},
		{
			name: "unknown assertion type",
			yaml: header + "steps:\n" + alice + "assertions:\n  - type: vibes\n    ref: alice\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "assertion on unknown ref",
			yaml: header + "steps:\n" + alice + "assertions:\n  - type: status\n    ref: bob\n    status: confirmed\n",
			want: `unknown ref "bob"`,
		},
		{
			name: "negative event count",
			yaml: header + "steps:\n" + alice + "assertions:\n  - type: event_count\n    ref: alice\n    count: -1\n",
			want: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
