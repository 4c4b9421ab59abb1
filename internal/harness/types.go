package harness

// TraceEvent is one invocation or completion of a scenario step.
type TraceEvent struct {
	Type   string            `json:"type"` // "invocation" or "completion"
	Action string            `json:"action,omitempty"`
	Args   map[string]any    `json:"args,omitempty"`
	Case   string            `json:"case,omitempty"`
	Result map[string]string `json:"-"`
	Seq    int64             `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(action string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   "invocation",
		Action: action,
		Args:   args,
		Seq:    seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outcome string, result map[string]string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   "completion",
		Case:   outcome,
		Result: result,
		Seq:    seq,
	})
}
