package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const chiAtlSpec = `package specs

waterfall: "chi-atl": {
	name:   "Chicago to Atlanta"
	status: "active"
	lane: {
		origin_zip:      "60601"
		destination_zip: "30301"
		equipment_type:  "dry_van"
	}
	tiers: [{
		rank:            1
		response_window: "30m"
		carriers: [{id: "A", email: "dispatch@a.test"}, {id: "B"}]
	}, {
		rank:            2
		response_window: "1h"
		carriers: [{id: "C"}]
	}]
}
`

// env is a temporary database and specs directory for one test.
type env struct {
	dir   string
	db    string
	specs string
}

func newEnv(t *testing.T, specs ...string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:   dir,
		db:    filepath.Join(dir, "waterfall.db"),
		specs: filepath.Join(dir, "specs"),
	}
	require.NoError(t, os.MkdirAll(e.specs, 0o755))
	if len(specs) == 0 {
		specs = []string{chiAtlSpec}
	}
	for i, s := range specs {
		name := filepath.Join(e.specs, "spec"+string(rune('a'+i))+".cue")
		require.NoError(t, os.WriteFile(name, []byte(s), 0o644))
	}
	return e
}

// run executes the root command with the env's database and specs and
// returns stdout and the command error.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"--db", e.db, "--specs", e.specs}, args...)
	return executeRoot(t, nil, full...)
}

// executeRoot runs the root command with args and optional stdin.
func executeRoot(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if stdin != nil {
		cmd.SetIn(bytes.NewReader(stdin))
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// decodeData decodes the data field of a JSON CLIResponse into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return raw.CLIResponse
}
