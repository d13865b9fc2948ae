// Package store provides SQLite-backed storage for compiled query plans.
//
// Each finalized query is stored once, keyed by its plan-domain content
// hash. Saving an equivalent plan again increments its hit counter and
// records the latest pass id instead of inserting a new row.
//
// # Ordering
//
// Listings order by seq, a logical insertion counter, then by hash with
// binary collation. Timestamps are informational only.
//
// # Encoding
//
// The finalized query is stored as canonical JSON (see internal/ir), so a
// stored row decodes back into an equal query and rehashes to the same key.
package store
