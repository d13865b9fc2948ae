package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/requery/internal/compiler"
	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/prefetch"
)

func queriesDir() string {
	return filepath.Join("..", "..", "testdata", "queries")
}

func invalidDir() string {
	return filepath.Join("..", "..", "testdata", "invalid")
}

// writeQueries writes a CUE package with the given body into a temp dir.
func writeQueries(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.cue"), []byte("package queries\n\n"+body), 0644))
	return dir
}

func runCompileCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type compileResponse struct {
	Status string            `json:"status"`
	Data   CompilationResult `json:"data"`
}

func TestCompileValidQueries(t *testing.T) {
	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, queriesDir())
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 query(s)")
	assert.Contains(t, out, "byCode: ")
	assert.Contains(t, out, "localized: ")
	assert.Contains(t, out, "registered=1 inserted=0 discarded=0 combined=1")
	assert.Contains(t, out, "PAGINATED_LIST limit=20 price=RESPECTING_FILTER locales=cs")
	assert.NotContains(t, out, "hits=")
}

func TestCompileValidQueriesJSON(t *testing.T) {
	out, err := runCompileCmd(t, &RootOptions{Format: "json"}, queriesDir())
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Plans, 2)

	byCode := resp.Data.Plans[0]
	assert.Equal(t, "byCode", byCode.Name)
	assert.Equal(t, "product", byCode.Collection)
	assert.Equal(t, "entityFetch(attributeContent('name','code'))", byCode.Prefetch)
	assert.Equal(t, prefetch.Stats{Registered: 1, Combined: 1}, byCode.Stats)
	assert.Len(t, byCode.Hash, 64)
	assert.NotEqual(t, byCode.Hash, byCode.SourceHash)

	localized := resp.Data.Plans[1]
	assert.Equal(t, "localized", localized.Name)
	assert.Equal(t, "entityFetch(dataInLocales('cs'),priceContent(RESPECTING_FILTER))", localized.Prefetch)
	assert.Equal(t, prefetch.Stats{Registered: 3, Inserted: 2, Discarded: 1}, localized.Stats)
	assert.Contains(t, localized.Query, "orderBy(priceNatural(DESC))")
	assert.Equal(t, RequestSummary{
		Form:       "PAGINATED_LIST",
		Limit:      20,
		Locales:    []string{"cs"},
		PriceMode:  "RESPECTING_FILTER",
		PriceLists: []string{"basic"},
	}, localized.Request)
	assert.Equal(t, "NONE", byCode.Request.PriceMode)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "plans.json")

	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, queriesDir(), "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote plans to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	v, err := ir.Unmarshal(data)
	require.NoError(t, err)
	canonical, err := ir.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, string(canonical)+"\n", string(data), "output file is canonical JSON")

	obj, ok := v.(ir.Object)
	require.True(t, ok)
	plans, ok := obj["plans"].(ir.Array)
	require.True(t, ok)
	require.Len(t, plans, 2)
	assert.Equal(t, ir.String("byCode"), plans[0].(ir.Object)["name"])
}

func TestCompileStoresPlans(t *testing.T) {
	opts := &RootOptions{Format: "json", DB: filepath.Join(t.TempDir(), "plans.db")}

	for _, wantHits := range []int64{1, 2} {
		out, err := runCompileCmd(t, opts, queriesDir())
		require.NoError(t, err)

		var resp compileResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Data.Plans, 2)
		for _, p := range resp.Data.Plans {
			assert.Equal(t, wantHits, p.Hits, p.Name)
		}
	}

	out, err := runCompileCmd(t, &RootOptions{Format: "text", DB: opts.DB}, queriesDir())
	require.NoError(t, err)
	assert.Contains(t, out, "hits=3")
}

func TestCompileNonExistentDirectory(t *testing.T) {
	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files found")
}

func TestCompileNoQueries(t *testing.T) {
	dir := writeQueries(t, `other: 1`)

	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNoQueries)
	assert.Contains(t, out, "no queries found")
}

func TestCompileInvalidQueries(t *testing.T) {
	dir := writeQueries(t, `
query: ok: {collection: "product"}
query: noCollection: {filterBy: [{attributeEquals: ["code", "A"]}]}
query: badPage: {collection: "product", require: [{page: [0, 20]}]}
`)

	t.Run("text", func(t *testing.T) {
		out, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")
		assert.Contains(t, out, "✗ Compilation failed")
		assert.Contains(t, out, compiler.ErrBlankCollection+": query.noCollection.collection: collection is required")
		assert.Contains(t, out, ErrCodeStructure+": query.badPage.require")
		assert.Contains(t, out, "queries.cue:")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCompileCmd(t, &RootOptions{Format: "json"}, dir)
		require.Error(t, err)

		var resp struct {
			Status string     `json:"status"`
			Data   []CLIError `json:"data"`
			Error  *CLIError  `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.Len(t, resp.Data, 2)
		require.NotNil(t, resp.Error)
		assert.Equal(t, resp.Data[0], *resp.Error)
	})
}

func TestCompileCUEError(t *testing.T) {
	dir := writeQueries(t, `query: q: {collection: "product" + 1}`)

	out, err := runCompileCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NotEmpty(t, out)
}

func TestCompileVerboseOutput(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{queriesDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errOut.String(), "Compiling query: byCode")
	assert.Contains(t, errOut.String(), "Compiling query: localized")
	assert.NotContains(t, out.String(), "Compiling query")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package q"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), []byte("package sub"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

func TestMapCompileErrorToCode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing collection", `query: q: {}`, compiler.ErrBlankCollection},
		{"blank collection", `query: q: {collection: " "}`, ErrCodeStructure},
		{"bad arity", `query: q: {collection: "p", require: [{page: [0, 20]}]}`, ErrCodeStructure},
		{"unknown directive", `query: q: {collection: "p", filterBy: [{nope: []}]}`, ErrCodeStructure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := compiler.CompileSource("q.cue", tt.src)
			require.Len(t, errs, 1)
			var ce *compiler.CompileError
			require.ErrorAs(t, errs[0], &ce)
			assert.Equal(t, tt.want, MapCompileErrorToCode(ce))
		})
	}
}
