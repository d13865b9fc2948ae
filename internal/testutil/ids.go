package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator hands out numbered identifiers with a fixed prefix:
// "pass-0001", "pass-0002" and so on.
//
// Two generators created with the same prefix produce identical sequences,
// which keeps plan ids in golden snapshots stable across runs.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. An empty prefix defaults to "pass".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "pass"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
