package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStore compiles the test queries into a fresh plan store.
func seedStore(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "plans.db")
	_, err := runCompileCmd(t, &RootOptions{Format: "text", DB: db}, queriesDir())
	require.NoError(t, err)
	return db
}

func runPlansCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewPlansCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type plansResponse struct {
	Status string     `json:"status"`
	Data   PlansResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func listPlansJSON(t *testing.T, db string, args ...string) plansResponse {
	t.Helper()
	out, err := runPlansCmd(t, &RootOptions{Format: "json", DB: db}, args...)
	require.NoError(t, err)
	var resp plansResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestPlansList(t *testing.T) {
	db := seedStore(t)

	resp := listPlansJSON(t, db)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Plans, 2)
	assert.Equal(t, "byCode", resp.Data.Plans[0].Name)
	assert.Equal(t, int64(1), resp.Data.Plans[0].Seq)
	assert.Equal(t, "localized", resp.Data.Plans[1].Name)
	assert.Equal(t, int64(2), resp.Data.Plans[1].Seq)
	for _, p := range resp.Data.Plans {
		assert.Equal(t, "product", p.Collection)
		assert.Equal(t, int64(1), p.Hits)
		assert.Nil(t, p.Verified)
		assert.Equal(t, p.FirstPassID, p.LastPassID)
	}

	out, err := runPlansCmd(t, &RootOptions{Format: "text", DB: db})
	require.NoError(t, err)
	assert.Contains(t, out, "product  byCode  hits=1")
	assert.Contains(t, out, "product  localized  hits=1")
}

func TestPlansFilters(t *testing.T) {
	db := seedStore(t)

	tests := []struct {
		name  string
		args  []string
		names []string
	}{
		{"by name", []string{"--name", "localized"}, []string{"localized"}},
		{"by collection", []string{"--collection", "product"}, []string{"byCode", "localized"}},
		{"unknown collection", []string{"--collection", "brand"}, []string{}},
		{"limit", []string{"--limit", "1"}, []string{"byCode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := listPlansJSON(t, db, tt.args...)
			names := []string{}
			for _, p := range resp.Data.Plans {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestPlansShow(t *testing.T) {
	db := seedStore(t)
	hash := listPlansJSON(t, db, "--name", "byCode").Data.Plans[0].Hash

	out, err := runPlansCmd(t, &RootOptions{Format: "text", DB: db}, hash)
	require.NoError(t, err)
	assert.Contains(t, out, "hash:        "+hash)
	assert.Contains(t, out, "query:       query(collection('product'),filterBy(attributeEquals('code','A')),require(entityFetch(attributeContent('name','code'))))")

	_, err = runPlansCmd(t, &RootOptions{Format: "text", DB: db}, "deadbeef")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "plan not found: deadbeef")
}

func TestPlansVerify(t *testing.T) {
	db := seedStore(t)

	out, err := runPlansCmd(t, &RootOptions{Format: "text", DB: db}, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 plan(s) verified")

	resp := listPlansJSON(t, db, "--verify")
	for _, p := range resp.Data.Plans {
		require.NotNil(t, p.Verified)
		assert.True(t, *p.Verified, p.Problem)
	}
}

func TestPlansVerifyDetectsChangedHash(t *testing.T) {
	db := seedStore(t)

	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE plans SET hash = 'deadbeef' WHERE name = 'byCode'`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out, err := runPlansCmd(t, &RootOptions{Format: "text", DB: db}, "--verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ deadbeef")
	assert.Contains(t, out, "stored query hashes to ")
	assert.Contains(t, out, "✗ 1 of 2 plan(s) changed")

	out, err = runPlansCmd(t, &RootOptions{Format: "json", DB: db}, "--verify")
	require.Error(t, err)
	var resp plansResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Changed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_PLAN_CHANGED", resp.Error.Code)
}

func TestPlansErrors(t *testing.T) {
	t.Run("no db", func(t *testing.T) {
		out, err := runPlansCmd(t, &RootOptions{Format: "text"})
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "--db is required")
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := runPlansCmd(t, &RootOptions{Format: "text", DB: filepath.Join(t.TempDir(), "p.db")}, "--limit", "-1")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("empty store", func(t *testing.T) {
		out, err := runPlansCmd(t, &RootOptions{Format: "text", DB: filepath.Join(t.TempDir(), "p.db")})
		require.NoError(t, err)
		assert.Contains(t, out, "No plans stored.")
	})
}
