package prefetch

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/requery/internal/query"
)

// Stats counts what the collector did with registered requirements.
type Stats struct {
	Registered int `json:"registered"`
	Inserted   int `json:"inserted"`
	Discarded  int `json:"discarded"`
	Combined   int `json:"combined"`
}

// Collector accumulates entity content requirements.
type Collector struct {
	merger *query.Merger
	stats  Stats
	logger *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for per-registration debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// NewCollector creates a collector. A non-nil seed initializes the
// accumulated set with its content; an entity fetch is always internally
// consistent so seeding never merges anything.
func NewCollector(seed *query.EntityFetch, opts ...Option) *Collector {
	var content []query.EntityContent
	if seed != nil {
		content = seed.Content()
	}
	c := &Collector{
		merger: query.NewMerger(content...),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register folds each requirement into the accumulated set in order. The
// first merge failure stops registration and is returned; requirements before
// it stay registered.
//
// Merge failures are query errors (conflicting or incombinable directives)
// and are fatal to the compilation pass.
func (c *Collector) Register(reqs ...query.EntityContent) error {
	for _, r := range reqs {
		outcome, err := c.merger.Add(r)
		if err != nil {
			c.logger.Debug("prefetch registration failed",
				"requirement", query.Format(r),
				"error", err,
			)
			return fmt.Errorf("register %s: %w", query.Format(r), err)
		}
		c.stats.Registered++
		switch outcome {
		case query.Inserted:
			c.stats.Inserted++
		case query.Discarded:
			c.stats.Discarded++
		case query.Combined:
			c.stats.Combined++
		}
		c.logger.Debug("prefetch requirement registered",
			"requirement", query.Format(r),
			"outcome", outcome.String(),
			"entries", c.merger.Len(),
		)
	}
	return nil
}

// Snapshot returns the accumulated requirements as an entity fetch, or nil
// when nothing was registered or seeded.
func (c *Collector) Snapshot() (*query.EntityFetch, error) {
	if c.merger.Len() == 0 {
		return nil, nil
	}
	f, err := query.NewEntityFetch(c.merger.Content()...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return f, nil
}

// Stats returns the registration counters.
func (c *Collector) Stats() Stats { return c.stats }

// Len returns the number of accumulated requirements.
func (c *Collector) Len() int { return c.merger.Len() }
