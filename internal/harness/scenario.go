package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gpures/internal/reservation"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the engine clock at the first step.
	Now time.Time `yaml:"now"`

	// Policy selects the conflict policy (elder or priority). Default: elder.
	Policy string `yaml:"policy,omitempty"`

	// Resources lists the catalog for this scenario.
	Resources []string `yaml:"resources"`

	// Steps run in order. Each step holds exactly one operation.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation with an optional expectation.
type Step struct {
	Create  *CreateStep  `yaml:"create,omitempty"`
	Resolve *ResolveStep `yaml:"resolve,omitempty"`
	Cancel  *CancelStep  `yaml:"cancel,omitempty"`

	// Advance moves the clock forward, e.g. "90m".
	Advance string `yaml:"advance,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// CreateStep submits a reservation request.
type CreateStep struct {
	// As names the reservation for later steps. Required.
	As       string    `yaml:"as"`
	Owner    string    `yaml:"owner"`
	Resource string    `yaml:"resource"`
	Start    time.Time `yaml:"start"`
	End      time.Time `yaml:"end"`
	Purpose  string    `yaml:"purpose"`
	Priority int       `yaml:"priority,omitempty"`
	Key      string    `yaml:"key,omitempty"`
}

// ResolveStep records an accept or dispute decision.
type ResolveStep struct {
	Ref      string `yaml:"ref"`
	Decision string `yaml:"decision"`

	// Actor defaults to the owner of Ref.
	Actor string `yaml:"actor,omitempty"`
	Key   string `yaml:"key,omitempty"`
}

// CancelStep withdraws a reservation.
type CancelStep struct {
	Ref   string `yaml:"ref"`
	Actor string `yaml:"actor,omitempty"`
	Key   string `yaml:"key,omitempty"`
}

// ExpectClause checks a step's outcome. Status and Error are exclusive.
type ExpectClause struct {
	Status     string   `yaml:"status,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	Supersedes []string `yaml:"supersedes,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	Type   string   `yaml:"type"`
	Ref    string   `yaml:"ref,omitempty"`
	Status string   `yaml:"status,omitempty"`
	By     string   `yaml:"by,omitempty"`
	Refs   []string `yaml:"refs,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus       = "status"
	AssertSupersededBy = "superseded_by"
	AssertSupersedes   = "supersedes"
	AssertEventCount   = "event_count"
	AssertNoOverlap    = "no_overlap"
)

// Op returns the step's operation name.
func (s Step) Op() string {
	switch {
	case s.Create != nil:
		return "create"
	case s.Resolve != nil:
		return "resolve"
	case s.Cancel != nil:
		return "cancel"
	case s.Advance != "":
		return "advance"
	default:
		return ""
	}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// reference names an alias created by an earlier step.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now.IsZero() {
		return fmt.Errorf("now is required")
	}
	if len(s.Resources) == 0 {
		return fmt.Errorf("resources list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	aliases := make(map[string]bool)
	known := func(ref string) bool { return aliases[ref] }

	for i, step := range s.Steps {
		ops := 0
		for _, set := range []bool{step.Create != nil, step.Resolve != nil, step.Cancel != nil, step.Advance != ""} {
			if set {
				ops++
			}
		}
		if ops != 1 {
			return fmt.Errorf("steps[%d]: exactly one of create, resolve, cancel, advance is required", i)
		}

		switch {
		case step.Create != nil:
			if step.Create.As == "" {
				return fmt.Errorf("steps[%d].create: as is required", i)
			}
			if aliases[step.Create.As] {
				return fmt.Errorf("steps[%d].create: alias %q already used", i, step.Create.As)
			}
			aliases[step.Create.As] = true
		case step.Resolve != nil:
			if !known(step.Resolve.Ref) {
				return fmt.Errorf("steps[%d].resolve: unknown ref %q", i, step.Resolve.Ref)
			}
			if _, err := reservation.ParseDecision(step.Resolve.Decision); err != nil {
				return fmt.Errorf("steps[%d].resolve: %w", i, err)
			}
		case step.Cancel != nil:
			if !known(step.Cancel.Ref) {
				return fmt.Errorf("steps[%d].cancel: unknown ref %q", i, step.Cancel.Ref)
			}
		case step.Advance != "":
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("steps[%d].advance: %w", i, err)
			}
			if step.Expect != nil {
				return fmt.Errorf("steps[%d]: advance takes no expect clause", i)
			}
		}

		if e := step.Expect; e != nil {
			if (e.Status == "") == (e.Error == "") {
				return fmt.Errorf("steps[%d].expect: exactly one of status or error is required", i)
			}
			if e.Status != "" && !reservation.Status(e.Status).Valid() {
				return fmt.Errorf("steps[%d].expect: unknown status %q", i, e.Status)
			}
			for _, ref := range e.Supersedes {
				if !known(ref) {
					return fmt.Errorf("steps[%d].expect: unknown ref %q", i, ref)
				}
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, known); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, known func(string) bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Type != AssertNoOverlap && !known(a.Ref) {
		return fmt.Errorf("assertions[%d]: unknown ref %q", index, a.Ref)
	}

	switch a.Type {
	case AssertStatus:
		if !reservation.Status(a.Status).Valid() {
			return fmt.Errorf("assertions[%d]: status must be a known status, got %q", index, a.Status)
		}
	case AssertSupersededBy:
		if a.By != "" && !known(a.By) {
			return fmt.Errorf("assertions[%d]: unknown ref %q", index, a.By)
		}
	case AssertSupersedes:
		for _, ref := range a.Refs {
			if !known(ref) {
				return fmt.Errorf("assertions[%d]: unknown ref %q", index, ref)
			}
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertNoOverlap:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
