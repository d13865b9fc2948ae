package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/requery/internal/query"
	"github.com/roach88/requery/internal/store"
)

// AssertionContext provides what assertions need beyond the trace.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Error != "" {
				fmt.Fprintf(&buf, "  [%d] %s error=%s\n", event.Step, event.Query, event.Error)
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s plan=%s %s\n", event.Step, event.Query, event.Plan, orNone(event.Prefetch))
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertSamePlan:
		return assertSamePlan(result.Trace, a)
	case AssertDistinctPlans:
		return assertDistinctPlans(result.Trace, a)
	case AssertPlanCount:
		return assertPlanCount(actx, a)
	case AssertPrefetchContains:
		return assertPrefetchContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// planOf returns the plan label of the last step that compiled name.
func planOf(trace []TraceEvent, name string) (string, error) {
	for i := len(trace) - 1; i >= 0; i-- {
		e := trace[i]
		if e.Query != name {
			continue
		}
		if e.Error != "" {
			return "", fmt.Errorf("query %s failed with %s error", name, e.Error)
		}
		return e.Plan, nil
	}
	return "", fmt.Errorf("query %s was not compiled", name)
}

// assertSamePlan checks that every named query compiled to the first one's plan.
func assertSamePlan(trace []TraceEvent, a Assertion) error {
	first, err := planOf(trace, a.Queries[0])
	if err != nil {
		return err
	}
	for _, q := range a.Queries[1:] {
		p, err := planOf(trace, q)
		if err != nil {
			return err
		}
		if p != first {
			return &AssertionError{
				Type:     AssertSamePlan,
				Expected: fmt.Sprintf("%s and %s share plan %s", a.Queries[0], q, first),
				Actual:   fmt.Sprintf("%s compiled to %s", q, p),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertDistinctPlans checks that no two named queries share a plan.
func assertDistinctPlans(trace []TraceEvent, a Assertion) error {
	seen := make(map[string]string)
	for _, q := range a.Queries {
		p, err := planOf(trace, q)
		if err != nil {
			return err
		}
		if other, dup := seen[p]; dup {
			return &AssertionError{
				Type:     AssertDistinctPlans,
				Expected: fmt.Sprintf("%s and %s compile to different plans", other, q),
				Actual:   fmt.Sprintf("both compiled to %s", p),
				Trace:    trace,
			}
		}
		seen[p] = q
	}
	return nil
}

func assertPlanCount(actx *AssertionContext, a Assertion) error {
	n, err := actx.Store.CountPlans(actx.Ctx)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertPlanCount,
			Expected: fmt.Sprintf("%d stored plans", a.Count),
			Actual:   fmt.Sprintf("%d stored plans", n),
		}
	}
	return nil
}

// assertPrefetchContains checks that the query's merged fetch lists the
// given content directive as one of its top-level children.
func assertPrefetchContains(result *Result, a Assertion) error {
	e, ok := result.lastEvent(a.Query)
	if !ok {
		return fmt.Errorf("query %s was not compiled", a.Query)
	}
	if e.fetch != nil {
		for _, c := range e.fetch.Content() {
			if query.Format(c) == a.Content {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertPrefetchContains,
		Expected: fmt.Sprintf("prefetch of %s lists %s", a.Query, a.Content),
		Actual:   orNone(e.Prefetch),
		Trace:    result.Trace,
	}
}
