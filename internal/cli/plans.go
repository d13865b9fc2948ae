package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/planner"
	"github.com/roach88/requery/internal/store"
)

// PlansOptions holds flags for the plans command.
type PlansOptions struct {
	*RootOptions
	Collection string
	Name       string
	Limit      int
	Verify     bool
}

// StoredPlan is a plan store row as reported by the CLI.
type StoredPlan struct {
	Hash        string    `json:"hash"`
	Name        string    `json:"name"`
	Collection  string    `json:"collection"`
	Query       string    `json:"query"`
	SourceHash  string    `json:"source_hash"`
	FirstPassID string    `json:"first_pass_id"`
	LastPassID  string    `json:"last_pass_id"`
	Hits        int64     `json:"hits"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	// Verified is set by --verify.
	Verified *bool  `json:"verified,omitempty"`
	Problem  string `json:"problem,omitempty"`
}

// PlansResult is the plans command payload.
type PlansResult struct {
	Plans []StoredPlan `json:"plans"`
	// Changed counts plans that failed --verify.
	Changed int `json:"changed,omitempty"`
}

// NewPlansCommand creates the plans command.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plans [hash]",
		Short: "List or show stored plans",
		Long: `List plans in the plan store, or show one plan by hash.

With --verify each stored query is hashed again and compiled once more;
a plan whose hash changes is reported and the command exits with 1.
This detects encoding changes that would orphan stored plans.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := ""
			if len(args) == 1 {
				hash = args[0]
			}
			return runPlans(cmd.Context(), opts, hash, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only plans for this collection")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only plans with this query name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of plans (0 = all)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompile stored queries and check their hashes")

	return cmd
}

func runPlans(ctx context.Context, opts *PlansOptions, hash string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.DB == "" {
		_ = formatter.Error(ErrCodeNotFound, "--db is required", nil)
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.Limit < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--limit must not be negative", nil)
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("opening plan store: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open plan store", err)
	}
	defer st.Close()

	var records []store.PlanRecord
	if hash != "" {
		rec, err := st.LoadPlan(ctx, hash)
		if errors.Is(err, store.ErrPlanNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("plan not found: %s", hash), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("plan not found: %s", hash))
		}
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load plan", err)
		}
		records = []store.PlanRecord{rec}
	} else {
		records, err = st.ListPlans(ctx, store.ListFilter{
			Collection: opts.Collection,
			Name:       opts.Name,
			Limit:      opts.Limit,
		})
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list plans", err)
		}
	}
	formatter.VerboseLog("Loaded %d plan(s) from %s", len(records), opts.DB)

	result := PlansResult{Plans: make([]StoredPlan, 0, len(records))}
	p := planner.New(planner.WithLogger(opts.logger()))
	for _, rec := range records {
		sp := newStoredPlan(rec)
		if opts.Verify {
			problem := verifyPlan(ctx, p, rec)
			ok := problem == ""
			sp.Verified = &ok
			sp.Problem = problem
			if !ok {
				result.Changed++
				opts.logger().Warn("stored plan changed", "hash", rec.Hash, "name", rec.Name, "problem", problem)
			}
		}
		result.Plans = append(result.Plans, sp)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Changed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_PLAN_CHANGED",
				Message: fmt.Sprintf("%d stored plan(s) changed", result.Changed),
			}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputPlansText(formatter.Writer, result, opts.Verify, hash != "")
	}

	if result.Changed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d stored plan(s) changed", result.Changed))
	}
	return nil
}

func newStoredPlan(rec store.PlanRecord) StoredPlan {
	return StoredPlan{
		Hash:        rec.Hash,
		Name:        rec.Name,
		Collection:  rec.Collection,
		Query:       rec.Query.String(),
		SourceHash:  rec.SourceHash,
		FirstPassID: rec.FirstPassID,
		LastPassID:  rec.LastPassID,
		Hits:        rec.Hits,
		Seq:         rec.Seq,
		CreatedAt:   rec.CreatedAt,
		LastSeenAt:  rec.LastSeenAt,
	}
}

// verifyPlan checks that the stored query still hashes to its key and that
// compiling it again is a no-op. Returns an empty string when both hold.
func verifyPlan(ctx context.Context, p *planner.Planner, rec store.PlanRecord) string {
	rehash, err := ir.Hash(ir.DomainPlan, rec.Query.Encode())
	if err != nil {
		return fmt.Sprintf("hash: %v", err)
	}
	if rehash != rec.Hash {
		return fmt.Sprintf("stored query hashes to %s", rehash)
	}
	plan, err := p.Compile(ctx, rec.Query)
	if err != nil {
		return fmt.Sprintf("recompile: %v", err)
	}
	if plan.Hash != rec.Hash {
		return fmt.Sprintf("recompiled plan hashes to %s", plan.Hash)
	}
	return ""
}

func outputPlansText(w io.Writer, result PlansResult, verify, single bool) {
	if len(result.Plans) == 0 {
		fmt.Fprintln(w, "No plans stored.")
		return
	}

	for _, sp := range result.Plans {
		mark := ""
		if sp.Verified != nil {
			mark = "✓ "
			if !*sp.Verified {
				mark = "✗ "
			}
		}
		fmt.Fprintf(w, "%s%s  %s  %s  hits=%d\n", mark, shortHash(sp.Hash), sp.Collection, sp.Name, sp.Hits)
		if single {
			fmt.Fprintf(w, "  hash:        %s\n", sp.Hash)
			fmt.Fprintf(w, "  source hash: %s\n", sp.SourceHash)
			fmt.Fprintf(w, "  query:       %s\n", sp.Query)
			fmt.Fprintf(w, "  first pass:  %s\n", sp.FirstPassID)
			fmt.Fprintf(w, "  last pass:   %s\n", sp.LastPassID)
			fmt.Fprintf(w, "  created:     %s\n", sp.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "  last seen:   %s\n", sp.LastSeenAt.Format(time.RFC3339))
		}
		if sp.Problem != "" {
			fmt.Fprintf(w, "  %s\n", sp.Problem)
		}
	}

	if verify {
		fmt.Fprintln(w)
		if result.Changed > 0 {
			fmt.Fprintf(w, "✗ %d of %d plan(s) changed\n", result.Changed, len(result.Plans))
		} else {
			fmt.Fprintf(w, "✓ All %d plan(s) verified\n", len(result.Plans))
		}
	}
}
