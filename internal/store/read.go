package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
)

// ErrPlanNotFound is returned by LoadPlan for an unknown hash.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRecord is a stored plan.
type PlanRecord struct {
	Hash        string
	Name        string
	Collection  string
	Query       *query.Query
	SourceHash  string
	FirstPassID string
	LastPassID  string
	Stats       prefetch.Stats
	Hits        int64
	Seq         int64
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// ListFilter narrows ListPlans. Zero values match everything.
type ListFilter struct {
	Collection string
	Name       string
	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

const planColumns = `hash, name, collection, query, source_hash, first_pass_id, last_pass_id, stats, hits, seq, created_at, last_seen_at`

// LoadPlan retrieves a stored plan by hash. Returns an error wrapping
// ErrPlanNotFound if the hash is unknown.
func (s *Store) LoadPlan(ctx context.Context, hash string) (PlanRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE hash = ?`, hash)
	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("load plan %s: %w", hash, ErrPlanNotFound)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("load plan %s: %w", hash, err)
	}
	return rec, nil
}

// ListPlans returns stored plans ordered by seq ASC, hash ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListPlans(ctx context.Context, filter ListFilter) ([]PlanRecord, error) {
	var where []string
	var args []any
	if filter.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, filter.Collection)
	}
	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}

	stmt := `SELECT ` + planColumns + ` FROM plans`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	stmt += ` ORDER BY seq ASC, hash COLLATE BINARY ASC`
	if filter.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// CountPlans returns the number of stored plans.
func (s *Store) CountPlans(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (PlanRecord, error) {
	var rec PlanRecord
	var queryJSON, statsJSON, createdAt, lastSeenAt string
	if err := row.Scan(
		&rec.Hash, &rec.Name, &rec.Collection, &queryJSON, &rec.SourceHash,
		&rec.FirstPassID, &rec.LastPassID, &statsJSON, &rec.Hits, &rec.Seq,
		&createdAt, &lastSeenAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlanRecord{}, err
		}
		return PlanRecord{}, fmt.Errorf("scan plan: %w", err)
	}

	var err error
	if rec.Query, err = unmarshalQuery(queryJSON); err != nil {
		return PlanRecord{}, fmt.Errorf("plan %s: %w", rec.Hash, err)
	}
	if rec.Stats, err = unmarshalStats(statsJSON); err != nil {
		return PlanRecord{}, fmt.Errorf("plan %s: %w", rec.Hash, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return PlanRecord{}, fmt.Errorf("plan %s: created_at: %w", rec.Hash, err)
	}
	if rec.LastSeenAt, err = time.Parse(time.RFC3339Nano, lastSeenAt); err != nil {
		return PlanRecord{}, fmt.Errorf("plan %s: last_seen_at: %w", rec.Hash, err)
	}
	return rec, nil
}
