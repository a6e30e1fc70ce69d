package harness

import "github.com/roach88/citesync/internal/host/memhost"

// Trace event kinds.
const (
	EventCommand = "command"
	EventCall    = "call"
	EventDialog  = "dialog"
	EventAlert   = "alert"
	EventOutcome = "outcome"
)

// TraceEvent is one recorded step of a scenario run.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step int    `json:"step"`
	Kind string `json:"kind"`
	// Name is the command, host method, dialog name or outcome code.
	Name string `json:"name"`
	// Field is the document index of the field a call touched, or -1.
	Field int `json:"field"`
	// Detail is the alert text or error message.
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Document is the final document.
	Document memhost.File `json:"document"`

	// NewIndices are the session's new citation indices after the last step.
	NewIndices []int `json:"new_indices"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		NewIndices: []int{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
