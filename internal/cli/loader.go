package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/requery/internal/compiler"
	"github.com/roach88/requery/internal/query"
)

// LoadResult contains the queries loaded from a directory.
type LoadResult struct {
	Queries   []compiler.Compiled
	CUEValue  cue.Value // raw value, for further lookups
	FileCount int
}

// LoadError is a loader or compile error with a CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadQueries loads the CUE package in dir and compiles every query under
// its top-level `query` struct.
//
// A nil result means the directory could not be loaded at all. Otherwise
// compile errors are collected and the queries that did compile are
// returned alongside them.
func LoadQueries(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("queries directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing queries directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}

	compiled, compileErrs := compiler.CompileAll(value)
	result.Queries = compiled

	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
	}
	if len(result.Queries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoQueries, Message: "no queries found in " + dir})
	}
	return result, errs
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapCompileErrorToCode(compileErr),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants, shared by all commands. Query validation codes
// (E2xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoQueries   = "E008" // No queries defined
	ErrCodeStore       = "E009" // Plan store error

	// Directive construction errors
	ErrCodeStructure    = "E101" // Malformed directive
	ErrCodeConflicting  = "E102" // Directives that cannot coexist
	ErrCodeIncombinable = "E103" // Directives that cannot be merged
	ErrCodeCUE          = "E104" // CUE evaluation error inside a query
)

// MapCompileErrorToCode maps a compile error to an error code.
func MapCompileErrorToCode(err *compiler.CompileError) string {
	switch {
	case query.IsStructureError(err):
		return ErrCodeStructure
	case query.IsConflictingError(err):
		return ErrCodeConflicting
	case query.IsIncombinableError(err):
		return ErrCodeIncombinable
	case err.Field == "cue":
		return ErrCodeCUE
	case strings.HasSuffix(err.Field, "collection"):
		return compiler.ErrBlankCollection
	default:
		return ErrCodeStructure
	}
}
