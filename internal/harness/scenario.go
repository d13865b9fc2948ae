package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario defines a planning scenario: a set of CUE query documents, an
// ordered list of compilation steps, and assertions over the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" validate:"required,excludesall=/\\"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Specs lists CUE query documents, relative to the scenario file.
	Specs []string `yaml:"specs" validate:"required,min=1,dive,required"`

	// Steps compile named queries in order.
	Steps []Step `yaml:"steps" validate:"required,min=1,dive"`

	// Assertions validate the final trace and plan store.
	Assertions []Assertion `yaml:"assertions,omitempty" validate:"dive"`
}

// Step compiles one named query from the loaded specs.
type Step struct {
	// Compile is the query name under `query:` in a spec document.
	Compile string `yaml:"compile" validate:"required"`

	// Expect checks the outcome of the step. Nil means the step must
	// compile without error.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Empty fields are not
// checked.
type Expect struct {
	// Require is the formatted require tree of the finalized query.
	Require string `yaml:"require,omitempty"`

	// Prefetch is the formatted merged entity fetch.
	Prefetch string `yaml:"prefetch,omitempty"`

	// Stats are the collector counters.
	Stats *StatsExpect `yaml:"stats,omitempty"`

	// Error is the expected failure kind.
	Error string `yaml:"error,omitempty" validate:"omitempty,oneof=structure conflicting incombinable any"`
}

// StatsExpect mirrors prefetch.Stats for YAML.
type StatsExpect struct {
	Registered int `yaml:"registered" validate:"min=0"`
	Inserted   int `yaml:"inserted" validate:"min=0"`
	Discarded  int `yaml:"discarded" validate:"min=0"`
	Combined   int `yaml:"combined" validate:"min=0"`
}

// Assertion validates the trace or the plan store after all steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "same_plan": the named queries compiled to one plan
	// - "distinct_plans": the named queries compiled to pairwise different plans
	// - "plan_count": the store holds exactly Count plans
	// - "prefetch_contains": the prefetch of Query lists Content
	Type string `yaml:"type" validate:"required,oneof=same_plan distinct_plans plan_count prefetch_contains"`

	// Queries are step query names (same_plan, distinct_plans).
	Queries []string `yaml:"queries,omitempty" validate:"dive,required"`

	// Query is a step query name (prefetch_contains).
	Query string `yaml:"query,omitempty"`

	// Content is a formatted entity content directive (prefetch_contains).
	Content string `yaml:"content,omitempty"`

	// Count is the expected number of stored plans (plan_count).
	Count int `yaml:"count,omitempty" validate:"min=0"`
}

// Assertion type constants.
const (
	AssertSamePlan         = "same_plan"
	AssertDistinctPlans    = "distinct_plans"
	AssertPlanCount        = "plan_count"
	AssertPrefetchContains = "prefetch_contains"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report YAML field names so messages match the scenario file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, spec := range scenario.Specs {
		if spec != "" && !filepath.IsAbs(spec) {
			scenario.Specs[i] = filepath.Join(base, spec)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Loading stops at the first invalid scenario.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario runs the struct tag rules, then the checks that depend
// on the assertion type or on the file system.
func validateScenario(s *Scenario) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldError(verrs[0])
		}
		return err
	}

	for _, spec := range s.Specs {
		if _, err := os.Stat(spec); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", spec)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// fieldError renders a validator failure with the YAML path of the field,
// e.g. "steps[0].compile is required".
func fieldError(fe validator.FieldError) error {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must have at least %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "excludesall":
		return fmt.Errorf("%s must not contain path separators", field)
	default:
		return fmt.Errorf("%s fails %s", field, fe.Tag())
	}
}

// validateAssertion checks the fields each assertion type needs.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertSamePlan, AssertDistinctPlans:
		if len(a.Queries) < 2 {
			return fmt.Errorf("assertions[%d]: %s needs at least two queries", index, a.Type)
		}
	case AssertPrefetchContains:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for prefetch_contains", index)
		}
		if a.Content == "" {
			return fmt.Errorf("assertions[%d]: content is required for prefetch_contains", index)
		}
	}
	return nil
}
