package harness

import (
	"github.com/roach88/docrow/internal/value"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int64
	Op     string
	Table  string
	ID     value.ID    // nil when the step carried none
	Found  *bool       // set for get
	Doc    value.Value // returned document, nil when none
	Record string      // identity of the saved or fetched record
	Error  string      // failure message, empty on success
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string

	// Pass is true if every expectation and assertion held.
	Pass bool

	// Trace contains every step in execution order.
	Trace []TraceEvent

	// Errors contains expectation and assertion failures.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot renders the trace as a Value for canonical serialization.
func (r *Result) Snapshot() value.Object {
	events := make(value.Array, len(r.Trace))
	for i, e := range r.Trace {
		ev := value.Object{
			"seq":   value.Int(e.Seq),
			"op":    value.String(e.Op),
			"table": value.String(e.Table),
		}
		if e.ID != nil {
			ev["id"] = value.String(e.ID.String())
		}
		if e.Found != nil {
			ev["found"] = value.Bool(*e.Found)
		}
		if e.Doc != nil {
			ev["doc"] = e.Doc
		}
		if e.Record != "" {
			ev["record"] = value.String(e.Record)
		}
		if e.Error != "" {
			ev["error"] = value.String(e.Error)
		}
		events[i] = ev
	}
	return value.Object{
		"scenario": value.String(r.Name),
		"trace":    events,
	}
}
