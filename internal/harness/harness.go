package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/requery/internal/compiler"
	"github.com/roach88/requery/internal/planner"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
	"github.com/roach88/requery/internal/store"
	"github.com/roach88/requery/internal/testutil"
)

// clockBase is the fixed start of the store clock for every run.
var clockBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness runs scenario steps against a planner and a private plan store.
type Harness struct {
	store   *store.Store
	planner *planner.Planner
	queries map[string]*query.Query
	labels  map[string]string
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for the run and its planner.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory plan store, sequential pass ids and a
// step clock, so identical scenarios produce identical traces.
//
// Execution flow:
// 1. Compile every spec document into named queries
// 2. Compile and store each step's query, checking its expectations
// 3. Evaluate assertions against the trace and the store
//
// A returned error means the scenario could not be set up. Failed
// expectations and assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	queries, err := loadQueries(scenario.Specs)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewStepClock(clockBase, time.Second)
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		planner: planner.New(
			planner.WithIDGenerator(testutil.NewSequenceIDGenerator("pass")),
			planner.WithLogger(cfg.logger),
		),
		queries: queries,
		labels:  make(map[string]string),
		logger:  cfg.logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, err
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

// loadQueries compiles the spec documents into one name-to-query map.
// A name defined twice across documents is an error.
func loadQueries(specs []string) (map[string]*query.Query, error) {
	queries := make(map[string]*query.Query)
	for _, path := range specs {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read spec: %w", err)
		}
		compiled, errs := compiler.CompileSource(path, string(src))
		if len(errs) > 0 {
			return nil, fmt.Errorf("compile spec %s: %w", path, errs[0])
		}
		for _, c := range compiled {
			if _, dup := queries[c.Name]; dup {
				return nil, fmt.Errorf("compile spec %s: query %q defined twice", path, c.Name)
			}
			queries[c.Name] = c.Query
		}
	}
	return queries, nil
}

// executeStep compiles and stores one query, appends its trace event and
// checks the step's expectations.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	q, ok := h.queries[step.Compile]
	if !ok {
		return fmt.Errorf("step %d: unknown query %q", n, step.Compile)
	}

	event := TraceEvent{Step: n, Query: step.Compile}
	plan, err := h.planner.Compile(ctx, q)
	if err != nil {
		event.Error = errorKind(err)
		h.logger.Info("step failed", "step", n, "query", step.Compile, "error", err)
	} else {
		rec, err := h.store.SavePlan(ctx, step.Compile, plan)
		if err != nil {
			return fmt.Errorf("step %d: %w", n, err)
		}
		event.fetch = plan.Prefetch
		event.Plan = h.label(plan.Hash)
		event.Hits = rec.Hits
		event.Stats = plan.Stats
		if plan.Query.Require != nil {
			event.Require = query.Format(plan.Query.Require)
		}
		if plan.Prefetch != nil {
			event.Prefetch = query.Format(plan.Prefetch)
		}
		h.logger.Info("step completed", "step", n, "query", step.Compile, "plan", event.Plan, "hits", rec.Hits)
	}
	result.Trace = append(result.Trace, event)

	for _, msg := range checkExpect(event, step.Expect) {
		result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Compile, msg))
	}
	return nil
}

// label returns the stable label for a plan hash, assigning the next one
// on first sight.
func (h *Harness) label(hash string) string {
	if l, ok := h.labels[hash]; ok {
		return l
	}
	l := fmt.Sprintf("p%d", len(h.labels)+1)
	h.labels[hash] = l
	return l
}

func errorKind(err error) string {
	switch {
	case query.IsStructureError(err):
		return "structure"
	case query.IsConflictingError(err):
		return "conflicting"
	case query.IsIncombinableError(err):
		return "incombinable"
	default:
		return "other"
	}
}

// checkExpect compares a step outcome against its expectations.
func checkExpect(event TraceEvent, expect *Expect) []string {
	if expect == nil {
		if event.Error != "" {
			return []string{fmt.Sprintf("unexpected %s error", event.Error)}
		}
		return nil
	}

	if expect.Error != "" {
		switch {
		case event.Error == "":
			return []string{fmt.Sprintf("expected %s error, compiled to %s", expect.Error, event.Plan)}
		case expect.Error != "any" && expect.Error != event.Error:
			return []string{fmt.Sprintf("expected %s error, got %s", expect.Error, event.Error)}
		}
		return nil
	}
	if event.Error != "" {
		return []string{fmt.Sprintf("unexpected %s error", event.Error)}
	}

	var msgs []string
	if expect.Require != "" && expect.Require != event.Require {
		msgs = append(msgs, fmt.Sprintf("require: expected %s, got %s", expect.Require, orNone(event.Require)))
	}
	if expect.Prefetch != "" && expect.Prefetch != event.Prefetch {
		msgs = append(msgs, fmt.Sprintf("prefetch: expected %s, got %s", expect.Prefetch, orNone(event.Prefetch)))
	}
	if expect.Stats != nil {
		want := prefetch.Stats{
			Registered: expect.Stats.Registered,
			Inserted:   expect.Stats.Inserted,
			Discarded:  expect.Stats.Discarded,
			Combined:   expect.Stats.Combined,
		}
		if want != event.Stats {
			msgs = append(msgs, fmt.Sprintf("stats: expected %+v, got %+v", want, event.Stats))
		}
	}
	return msgs
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
