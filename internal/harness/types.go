package harness

import (
	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	// Step is the 1-based step number.
	Step int `json:"step"`
	// Query is the compiled query name.
	Query string `json:"query"`
	// Plan labels the stored plan by first appearance: p1, p2, ...
	// Empty when the step failed.
	Plan string `json:"plan,omitempty"`
	// Hits is the stored hit count after this step.
	Hits int64 `json:"hits,omitempty"`
	// Require is the formatted require tree of the finalized query.
	Require string `json:"require,omitempty"`
	// Prefetch is the formatted merged entity fetch.
	Prefetch string `json:"prefetch,omitempty"`
	// Stats are the collector counters.
	Stats prefetch.Stats `json:"stats"`
	// Error is the failure kind: structure, conflicting, incombinable or other.
	Error string `json:"error,omitempty"`

	fetch *query.EntityFetch
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists step outcomes in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
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

// lastEvent returns the last trace event for the named query.
func (r *Result) lastEvent(query string) (TraceEvent, bool) {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Query == query {
			return r.Trace[i], true
		}
	}
	return TraceEvent{}, false
}

// encode converts an event to its canonical IR form. Absent fields are
// omitted so golden files only show what a step produced.
func (e TraceEvent) encode() ir.Object {
	obj := ir.Object{
		"step":  ir.Int(e.Step),
		"query": ir.String(e.Query),
		"stats": ir.Object{
			"registered": ir.Int(e.Stats.Registered),
			"inserted":   ir.Int(e.Stats.Inserted),
			"discarded":  ir.Int(e.Stats.Discarded),
			"combined":   ir.Int(e.Stats.Combined),
		},
	}
	if e.Plan != "" {
		obj["plan"] = ir.String(e.Plan)
	}
	if e.Hits != 0 {
		obj["hits"] = ir.Int(e.Hits)
	}
	if e.Require != "" {
		obj["require"] = ir.String(e.Require)
	}
	if e.Prefetch != "" {
		obj["prefetch"] = ir.String(e.Prefetch)
	}
	if e.Error != "" {
		obj["error"] = ir.String(e.Error)
	}
	return obj
}
