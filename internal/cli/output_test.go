package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	return resp
}

func TestOutputFormatter_JSONEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(TickResult{Expired: 2}))
	resp := decodeResponse(t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"expired": float64(2)}, resp.Data)

	buf.Reset()
	require.NoError(t, f.Error("STALE_RESPONSE", "offer already expired", errorDetails{LoadID: "L1", CarrierID: "A"}))
	resp = decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STALE_RESPONSE", resp.Error.Code)
	assert.Equal(t, "offer already expired", resp.Error.Message)
	assert.Equal(t, map[string]any{"load_id": "L1", "carrier_id": "A"}, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"quiet", false, "Error [NOT_FOUND]: load L9 not found\n"},
		{"verbose", true, "Error [NOT_FOUND]: load L9 not found\nDetails: {L9  }\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, f.Error("NOT_FOUND", "load L9 not found", errorDetails{LoadID: "L9"}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	f.VerboseLog("Dispatching load %s", "L1")
	assert.Empty(t, out.String())
	assert.Equal(t, "Dispatching load L1\n", diag.String())

	f.Verbose = false
	diag.Reset()
	f.VerboseLog("Dispatching load %s", "L2")
	assert.Empty(t, diag.String())
}

func TestOutputFormatter_SuccessWithWarnings(t *testing.T) {
	warnings := []string{"lane shadowed"}

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.SuccessWithWarnings("ok", warnings))
	assert.Equal(t, warnings, decodeResponse(t, buf).Warnings)

	buf.Reset()
	f.Format = "text"
	require.NoError(t, f.SuccessWithWarnings("All specs valid", warnings))
	assert.Equal(t, "All specs valid\nwarning: lane shadowed\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "failed", errors.New("boom"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))
}

func TestExitError_Error(t *testing.T) {
	assert.Equal(t, "failed", NewExitError(ExitFailure, "failed").Error())
	err := WrapExitError(ExitFailure, "failed", errors.New("boom"))
	assert.Equal(t, "failed: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
}
