package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"
const harnessGolden = "../harness/testdata/golden"

func TestTestCommand_HarnessScenariosPass(t *testing.T) {
	out, err := executeRoot(t, nil, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ decline_then_accept")
	assert.Contains(t, out, "0 failed")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := executeRoot(t, nil, "--format", "json", "test", harnessScenarios, "--filter", "pause_*")
	require.NoError(t, err)

	var result struct {
		Total  int `json:"total"`
		Passed int `json:"passed"`
	}
	decodeData(t, out, &result)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)
}

const failingScenario = `name: wrong_expectation
waterfall:
  id: chi-atl
  lane: { origin_zip: "60601", destination_zip: "30301", equipment_type: dry_van }
  tiers:
    - rank: 1
      response_window: 30m
      carriers: [A]
load: { id: L1, origin_zip: "60601", destination_zip: "30301", equipment_type: dry_van }
steps:
  - action: start
  - at: 1m
    action: respond
    carrier: A
    tier: 1
    outcome: accept
expect:
  status: completed
  result: unassigned
`

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(failingScenario), 0o644))

	out, err := executeRoot(t, nil, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "Expectation failed: result")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	golden := filepath.Join(dir, "golden")
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "decline_then_accept.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.yaml"), src, 0o644))

	_, err = executeRoot(t, nil, "test", dir, "--golden", golden)
	require.Error(t, err, "golden file missing")

	out, err := executeRoot(t, nil, "test", dir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	written, err := os.ReadFile(filepath.Join(golden, "decline_then_accept.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "decline_then_accept.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	_, err = executeRoot(t, nil, "test", dir, "--golden", golden)
	require.NoError(t, err)
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := executeRoot(t, nil, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeRoot(t, nil, "test", harnessScenarios, "--update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")

	out, err := executeRoot(t, nil, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
