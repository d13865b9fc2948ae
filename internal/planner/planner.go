package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
)

// Plan is the finalized outcome of one compilation pass.
type Plan struct {
	// ID identifies the pass.
	ID string
	// Query is the finalized query: prefetch needs merged into its
	// entityFetch and inapplicable directives pruned.
	Query *query.Query
	// Prefetch is the merged entity fetch, or nil when neither the query
	// nor its filters need entity data.
	Prefetch *query.EntityFetch
	// Hash is the plan-domain content hash of the finalized query.
	Hash string
	// SourceHash is the constraint-domain hash of the query as given.
	SourceHash string
	// Stats describes what the collector did.
	Stats prefetch.Stats
}

// Planner compiles queries into plans.
type Planner struct {
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithIDGenerator sets the plan id generator. Tests use a deterministic one.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Planner) {
		p.ids = g
	}
}

// WithLogger sets the logger for the planner and its collectors.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// New creates a planner with UUIDv7 ids and a discarding logger.
func New(opts ...Option) *Planner {
	p := &Planner{
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile runs a pass with a default planner.
func Compile(ctx context.Context, q *query.Query) (*Plan, error) {
	return New().Compile(ctx, q)
}

// Compile runs one compilation pass over q. q itself is not modified.
//
// Merge failures between discovered and explicit requirements surface as
// conflicting or incombinable directive errors.
func (p *Planner) Compile(ctx context.Context, q *query.Query) (*Plan, error) {
	if q == nil {
		return nil, errors.New("compile: nil query")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}

	source, err := q.Hash()
	if err != nil {
		return nil, fmt.Errorf("compile %s: hash: %w", q.Collection, err)
	}

	discovered, err := Discover(q)
	if err != nil {
		return nil, fmt.Errorf("compile %s: discover: %w", q.Collection, err)
	}

	var seed *query.EntityFetch
	if q.Require != nil {
		seed = q.Require.EntityFetch()
	}
	collector := prefetch.NewCollector(seed, prefetch.WithLogger(p.logger))
	if err := collector.Register(discovered...); err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}
	fetch, err := collector.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}

	require, err := withFetch(q.Require, fetch)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}
	merged, err := query.NewQuery(q.Collection, q.FilterBy, q.OrderBy, require)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}
	final, err := merged.Prune()
	if err != nil {
		return nil, fmt.Errorf("compile %s: prune: %w", q.Collection, err)
	}
	if err := revalidate(final); err != nil {
		return nil, fmt.Errorf("compile %s: %w", q.Collection, err)
	}
	hash, err := ir.Hash(ir.DomainPlan, final.Encode())
	if err != nil {
		return nil, fmt.Errorf("compile %s: hash: %w", q.Collection, err)
	}

	plan := &Plan{
		ID:         p.ids.Generate(),
		Query:      final,
		Prefetch:   fetch,
		Hash:       hash,
		SourceHash: source,
		Stats:      collector.Stats(),
	}
	p.logger.Debug("plan compiled",
		"plan_id", plan.ID,
		"collection", q.Collection,
		"hash", hash,
		"discovered", len(discovered),
		"registered", plan.Stats.Registered,
		"combined", plan.Stats.Combined,
	)
	return plan, nil
}

func withFetch(r *query.Require, fetch *query.EntityFetch) (*query.Require, error) {
	if r == nil {
		if fetch == nil {
			return nil, nil
		}
		return query.NewRequire(fetch)
	}
	if query.Equal(fetch, r.EntityFetch()) {
		return r, nil
	}
	return r.WithEntityFetch(fetch)
}

// revalidate rebuilds the finalized trees from their canonical encoding so
// every node passes construction checks again after the rewrite.
func revalidate(q *query.Query) error {
	if _, err := query.DecodeQuery(q.Encode()); err != nil {
		return fmt.Errorf("revalidate: %w", err)
	}
	return nil
}
