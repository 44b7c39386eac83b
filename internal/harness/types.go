package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Op       string `json:"op"`
	Ref      string `json:"ref,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Decision string `json:"decision,omitempty"`

	// Outcome is the resulting status, or the error kind when the step failed.
	Outcome string `json:"outcome"`
}

// FinalState is a reservation's state at the end of a scenario, with ids
// replaced by aliases.
type FinalState struct {
	Status       string   `json:"status"`
	SupersededBy string   `json:"superseded_by,omitempty"`
	Supersedes   []string `json:"supersedes,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	Errors []string `json:"errors,omitempty"`

	// State maps each alias to its final state.
	State map[string]FinalState `json:"state,omitempty"`

	// Aliases lists aliases in creation order.
	Aliases []string `json:"aliases,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]FinalState),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
