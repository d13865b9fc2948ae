package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/requery/internal/planner"
)

// SavePlan stores a compiled plan under its hash and returns the stored row.
//
// A plan whose hash is already stored is not inserted again: its hit
// counter is incremented and last_pass_id and last_seen_at are updated.
// name, collection, query and first_pass_id keep their first values.
func (s *Store) SavePlan(ctx context.Context, name string, p *planner.Plan) (PlanRecord, error) {
	if p == nil || p.Query == nil {
		return PlanRecord{}, errors.New("save plan: nil plan")
	}
	if p.Hash == "" {
		return PlanRecord{}, errors.New("save plan: plan has no hash")
	}

	queryJSON, err := marshalQuery(p.Query)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan %s: %w", p.Hash, err)
	}
	statsJSON, err := marshalStats(p.Stats)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan %s: %w", p.Hash, err)
	}
	now := formatTime(s.now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans
		(hash, name, collection, query, source_hash, first_pass_id, last_pass_id, stats, hits, seq, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, (SELECT COALESCE(MAX(seq), 0) + 1 FROM plans), ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			hits = hits + 1,
			last_pass_id = excluded.last_pass_id,
			last_seen_at = excluded.last_seen_at
	`,
		p.Hash,
		name,
		p.Query.Collection,
		queryJSON,
		p.SourceHash,
		p.ID,
		p.ID,
		statsJSON,
		now,
		now,
	)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan %s: %w", p.Hash, err)
	}

	return s.LoadPlan(ctx, p.Hash)
}

// DeletePlan removes a stored plan. Deleting an unknown hash is not an error.
func (s *Store) DeletePlan(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("delete plan %s: %w", hash, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
