package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSpec writes a CUE query document into dir and returns its file name.
func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return name
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalSpec = `
query: byCode: {
	collection: "product"
	filterBy: [{attributeEquals: ["code", "A"]}]
}
`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "products.cue", minimalSpec)
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
specs:
  - products.cue
steps:
  - compile: byCode
    expect:
      stats: { registered: 1, inserted: 1 }
assertions:
  - type: plan_count
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, []string{filepath.Join(dir, "products.cue")}, scenario.Specs)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "byCode", scenario.Steps[0].Compile)
	require.NotNil(t, scenario.Steps[0].Expect)
	assert.Equal(t, &StatsExpect{Registered: 1, Inserted: 1}, scenario.Steps[0].Expect.Stats)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertPlanCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "name: [unclosed",
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown field",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode}]
assertion: []
`,
			wantErr: "field assertion not found",
		},
		{
			name: "missing name",
			content: `
description: d
specs: [products.cue]
steps: [{compile: byCode}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
specs: [products.cue]
steps: [{compile: byCode}]
`,
			wantErr: "description is required",
		},
		{
			name: "no steps",
			content: `
name: x
description: d
specs: [products.cue]
`,
			wantErr: "steps is required",
		},
		{
			name: "step without query",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode}, {expect: {error: any}}]
`,
			wantErr: "steps[1].compile is required",
		},
		{
			name: "unknown error kind",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode, expect: {error: fatal}}]
`,
			wantErr: `steps[0].expect.error must be one of [structure conflicting incombinable any], got "fatal"`,
		},
		{
			name: "unknown assertion type",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode}]
assertions: [{type: trace_order}]
`,
			wantErr: "assertions[0].type must be one of",
		},
		{
			name: "same_plan with one query",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode}]
assertions: [{type: same_plan, queries: [byCode]}]
`,
			wantErr: "assertions[0]: same_plan needs at least two queries",
		},
		{
			name: "prefetch_contains without content",
			content: `
name: x
description: d
specs: [products.cue]
steps: [{compile: byCode}]
assertions: [{type: prefetch_contains, query: byCode}]
`,
			wantErr: "content is required for prefetch_contains",
		},
		{
			name: "missing spec file",
			content: `
name: x
description: d
specs: [nowhere.cue]
steps: [{compile: byCode}]
`,
			wantErr: "spec file not found",
		},
		{
			name: "name with path separator",
			content: `
name: a/b
description: d
specs: [products.cue]
steps: [{compile: byCode}]
`,
			wantErr: "name must not contain path separators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSpec(t, dir, "products.cue", minimalSpec)
			_, err := LoadScenario(writeScenario(t, dir, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "products.cue", minimalSpec)
	for _, name := range []string{"b.yaml", "a.yml"} {
		content := "name: " + name[:1] + "\ndescription: d\nspecs: [products.cue]\nsteps: [{compile: byCode}]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	scenarios, err := LoadScenarios(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, scenarios)
}
