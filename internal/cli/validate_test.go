package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/compiler"
)

func TestValidate_Valid(t *testing.T) {
	e := newEnv(t)

	out, err := executeRoot(t, nil, "validate", e.specs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid (1 waterfalls)")
	assert.NotContains(t, out, "warning:")
}

func TestValidate_DefaultsToSpecsFlag(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid")
}

func TestValidate_SemanticErrors(t *testing.T) {
	spec := `package specs

waterfall: "broken": {
	lane: {origin_zip: "60601", destination_zip: "30301", equipment_type: "reefer"}
	tiers: [{
		rank:            0
		response_window: "0s"
		carriers: [{id: "A"}, {id: "A"}]
	}]
}
`
	e := newEnv(t, spec)

	out, err := executeRoot(t, nil, "validate", e.specs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrTierRankInvalid)
	assert.Contains(t, out, compiler.ErrTierWindowInvalid)
	assert.Contains(t, out, compiler.ErrCarrierDuplicate)
}

func TestValidate_CompileErrorReported(t *testing.T) {
	bad := `package specs

waterfall: "bad": {
	lane: {origin_zip: "1", destination_zip: "2", equipment_type: "reefer"}
	tiers: [{rank: 1, response_window: "later", carriers: [{id: "X"}]}]
}
`
	e := newEnv(t, chiAtlSpec, bad)

	out, err := executeRoot(t, nil, "validate", e.specs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeDuration)
	assert.Contains(t, out, "line ")
}

func TestValidate_OverlapWarnings(t *testing.T) {
	shadow := `package specs

waterfall: "chi-atl-v2": {
	status: "draft"
	lane: {origin_zip: "60601", destination_zip: "30301", equipment_type: "dry_van"}
	tiers: [{rank: 1, response_window: "15m", carriers: [{id: "D"}]}]
}
`
	e := newEnv(t, chiAtlSpec, shadow)

	out, err := executeRoot(t, nil, "validate", e.specs)
	require.NoError(t, err, "overlaps are warnings")
	assert.Contains(t, out, "✓ All specs valid (2 waterfalls)")
	assert.Contains(t, out, "warning: [warning] lane")
}

func TestValidate_JSON(t *testing.T) {
	e := newEnv(t)

	out, err := executeRoot(t, nil, "--format", "json", "validate", e.specs)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Waterfalls)
}

func TestValidate_JSONErrors(t *testing.T) {
	spec := `package specs

waterfall: "empty": {
	lane: {origin_zip: "1", destination_zip: "2", equipment_type: "reefer"}
	tiers: []
}
`
	e := newEnv(t, spec)

	out, err := executeRoot(t, nil, "--format", "json", "validate", e.specs)
	require.Error(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrWaterfallNoTiers, resp.Error.Code)
	assert.False(t, result.Valid)
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, err := executeRoot(t, nil, "validate", "/nonexistent/specs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
