package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
)

// marshalQuery converts a query to canonical JSON TEXT for storage.
func marshalQuery(q *query.Query) (string, error) {
	data, err := ir.Marshal(q.Encode())
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}
	return string(data), nil
}

// unmarshalQuery parses canonical JSON TEXT back into a validated query.
func unmarshalQuery(data string) (*query.Query, error) {
	v, err := ir.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}
	q, err := query.DecodeQuery(v)
	if err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}
	return q, nil
}

// marshalStats converts collector stats to JSON TEXT. Field order follows
// the struct, which keeps stored rows stable.
func marshalStats(stats prefetch.Stats) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stats); err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalStats(data string) (prefetch.Stats, error) {
	var stats prefetch.Stats
	if data == "" || data == "{}" {
		return stats, nil
	}
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return prefetch.Stats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}
