package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/planner"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
	"github.com/roach88/requery/internal/request"
	"github.com/roach88/requery/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// PlanOutput is one compiled query as reported by the CLI.
type PlanOutput struct {
	Name       string         `json:"name"`
	Collection string         `json:"collection"`
	Hash       string         `json:"hash"`
	SourceHash string         `json:"source_hash"`
	Query      string         `json:"query"`
	Prefetch   string         `json:"prefetch,omitempty"`
	Stats      prefetch.Stats `json:"stats"`
	Request    RequestSummary `json:"request"`
	Hits       int64          `json:"hits,omitempty"` // set when stored
}

// RequestSummary is what an execution engine would read from the plan.
type RequestSummary struct {
	Form       string   `json:"form"`
	Limit      int      `json:"limit"`
	Locales    []string `json:"locales,omitempty"`
	AllLocales bool     `json:"all_locales,omitempty"`
	PriceMode  string   `json:"price_mode"`
	PriceLists []string `json:"price_lists,omitempty"`
}

func summarizeRequest(q *query.Query) RequestSummary {
	r := request.New(q)
	tags, all := r.RequiredLocales()
	locales := make([]string, 0, len(tags))
	for _, tag := range tags {
		locales = append(locales, tag.String())
	}
	if len(locales) == 0 {
		locales = nil
	}
	return RequestSummary{
		Form:       r.ResultForm().String(),
		Limit:      r.Limit(),
		Locales:    locales,
		AllLocales: all,
		PriceMode:  r.PriceMode().String(),
		PriceLists: r.PriceLists(),
	}
}

// CompilationResult holds the plans of one compile run.
type CompilationResult struct {
	Plans []PlanOutput `json:"plans"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <queries-dir>",
		Short: "Compile CUE queries to finalized plans",
		Long: `Compile every query in a CUE package into a finalized plan.

Filter and ordering needs are merged into the entity fetch of each query.
With --db the plans are stored by hash; compiling the same plan again
counts a hit instead of adding a row.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write plans as canonical JSON to this file")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger()

	loadResult, loadErrors := LoadQueries(dir)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return outputCompileError(formatter, code, message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	var st *store.Store
	if opts.DB != "" {
		var err error
		st, err = store.Open(opts.DB)
		if err != nil {
			return outputCompileError(formatter, ErrCodeStore, fmt.Sprintf("opening plan store: %v", err), nil)
		}
		defer st.Close()
	}

	p := planner.New(planner.WithLogger(logger))
	result := &CompilationResult{Plans: make([]PlanOutput, 0, len(loadResult.Queries))}
	var planErrs []error
	for _, c := range loadResult.Queries {
		formatter.VerboseLog("Compiling query: %s", c.Name)
		plan, err := p.Compile(ctx, c.Query)
		if err != nil {
			planErrs = append(planErrs, &LoadError{
				Code:    planErrorCode(err),
				Message: fmt.Sprintf("query.%s: %v", c.Name, err),
				Pos:     c.Pos,
			})
			continue
		}
		out := newPlanOutput(c.Name, plan)
		if st != nil {
			rec, err := st.SavePlan(ctx, c.Name, plan)
			if err != nil {
				return outputCompileError(formatter, ErrCodeStore, fmt.Sprintf("saving plan %s: %v", c.Name, err), nil)
			}
			out.Hits = rec.Hits
			logger.Debug("plan stored", "query", c.Name, "hash", rec.Hash, "hits", rec.Hits)
		}
		result.Plans = append(result.Plans, out)
	}
	if len(planErrs) > 0 {
		return outputCompileErrors(formatter, planErrs)
	}

	if opts.Output != "" {
		if err := writePlansToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output, st != nil)
}

func newPlanOutput(name string, plan *planner.Plan) PlanOutput {
	out := PlanOutput{
		Name:       name,
		Collection: plan.Query.Collection,
		Hash:       plan.Hash,
		SourceHash: plan.SourceHash,
		Query:      plan.Query.String(),
		Stats:      plan.Stats,
		Request:    summarizeRequest(plan.Query),
	}
	if plan.Prefetch != nil {
		out.Prefetch = query.Format(plan.Prefetch)
	}
	return out
}

func planErrorCode(err error) string {
	switch {
	case query.IsConflictingError(err):
		return ErrCodeConflicting
	case query.IsIncombinableError(err):
		return ErrCodeIncombinable
	case query.IsStructureError(err):
		return ErrCodeStructure
	default:
		return ErrCodeGeneric
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string, stored bool) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d query(s)\n\n", len(result.Plans))
	for _, p := range result.Plans {
		fmt.Fprintf(w, "  %s: %s\n", p.Name, shortHash(p.Hash))
		fmt.Fprintf(w, "    %s\n", p.Query)
		fmt.Fprintf(w, "    registered=%d inserted=%d discarded=%d combined=%d\n",
			p.Stats.Registered, p.Stats.Inserted, p.Stats.Discarded, p.Stats.Combined)
		fmt.Fprintf(w, "    %s limit=%d price=%s", p.Request.Form, p.Request.Limit, p.Request.PriceMode)
		if len(p.Request.Locales) > 0 {
			fmt.Fprintf(w, " locales=%s", strings.Join(p.Request.Locales, ","))
		}
		fmt.Fprintln(w)
		if stored {
			fmt.Fprintf(w, "    hits=%d\n", p.Hits)
		}
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote plans to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writePlansToFile writes the plans as canonical JSON, one document.
func writePlansToFile(result *CompilationResult, filename string) error {
	plans := make(ir.Array, len(result.Plans))
	for i, p := range result.Plans {
		plans[i] = ir.Object{
			"name":        ir.String(p.Name),
			"collection":  ir.String(p.Collection),
			"hash":        ir.String(p.Hash),
			"source_hash": ir.String(p.SourceHash),
			"query":       ir.String(p.Query),
			"prefetch":    ir.String(p.Prefetch),
			"stats": ir.Object{
				"registered": ir.Int(p.Stats.Registered),
				"inserted":   ir.Int(p.Stats.Inserted),
				"discarded":  ir.Int(p.Stats.Discarded),
				"combined":   ir.Int(p.Stats.Combined),
			},
		}
	}
	data, err := ir.Marshal(ir.Object{"plans": plans})
	if err != nil {
		return fmt.Errorf("marshaling plans: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
