package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. After the root
// pre-run they hold the merged flag, environment and config file values.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DB         string // plan store path, empty for none
	ConfigFile string

	// Logger writes diagnostics to stderr; debug level with --verbose.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the requery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "requery",
		Short: "requery - query constraint compiler",
		Long: `Compile CUE query documents into finalized query plans.

Queries are validated, their filter and ordering needs are merged into
the entity fetch, and the resulting plans can be stored by content hash.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite plan store")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./requery.yaml if present)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlansCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger builds the CLI text logger.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// logger returns the configured logger, or a discarding one when a
// command runs without the root pre-run (as in unit tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
