package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWaterfalls(t *testing.T) {
	e := newEnv(t)

	result, errs := LoadWaterfalls(e.specs, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Waterfalls, 1)

	w := result.Waterfalls[0]
	assert.Equal(t, "chi-atl", w.ID)
	assert.Equal(t, "Chicago to Atlanta", w.Name)
	require.Len(t, w.Tiers, 2)
	assert.Equal(t, []string{"A", "B"}, w.Tiers[0].CarrierIDs())
}

func TestLoadWaterfalls_DirectoryErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{
			name: "missing",
			dir:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
			code: ErrCodeNotFound,
		},
		{
			name: "file",
			dir: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "spec.cue")
				require.NoError(t, os.WriteFile(p, []byte("package specs\n"), 0o644))
				return p
			},
			code: ErrCodeNotFound,
		},
		{
			name: "empty",
			dir:  func(t *testing.T) string { return t.TempDir() },
			code: ErrCodeNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadWaterfalls(tt.dir(t), LoadModeCollectAll)
			assert.Nil(t, result)
			require.Len(t, errs, 1)
			var loadErr *LoadError
			require.ErrorAs(t, errs[0], &loadErr)
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadWaterfalls_CollectsCompileErrors(t *testing.T) {
	bad := `package specs

waterfall: "bad-window": {
	lane: {origin_zip: "1", destination_zip: "2", equipment_type: "reefer"}
	tiers: [{rank: 1, response_window: "soon", carriers: [{id: "X"}]}]
}
`
	e := newEnv(t, chiAtlSpec, bad)

	result, errs := LoadWaterfalls(e.specs, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	require.Len(t, result.Waterfalls, 1, "valid waterfalls still load")
	assert.Equal(t, "chi-atl", result.Waterfalls[0].ID)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeDuration, loadErr.Code)
	assert.Contains(t, loadErr.Message, "waterfall.bad-window")
	assert.Contains(t, loadErr.Message, "tiers[0].response_window")
}

func TestLoadWaterfalls_NoWaterfalls(t *testing.T) {
	e := newEnv(t, "package specs\n\nother: 1\n")

	result, errs := LoadWaterfalls(e.specs, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no waterfalls found")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeSchema},
		{"status", ErrCodeStatus},
		{"id", ErrCodeLabel},
		{"tiers[2].response_window", ErrCodeDuration},
		{"lane", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in ./specs"}
	assert.Equal(t, "E003: no CUE files found in ./specs", err.Error())
}
