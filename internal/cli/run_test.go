package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/engine"
)

func TestRun_StdinCommands(t *testing.T) {
	e := newEnv(t)

	input := strings.Join([]string{
		`# start one load, decline tier 1, accept tier 2`,
		`{"type":"start_load","load":{"id":"L1","origin_zip":"60601","destination_zip":"30301","equipment_type":"dry_van"}}`,
		`{"type":"response","load_id":"L1","carrier_id":"A","tier":1,"outcome":"decline"}`,
		``,
		`{"type":"response","load_id":"L1","carrier_id":"B","tier":1,"outcome":"decline"}`,
		`not json`,
		`{"type":"response","load_id":"L1","carrier_id":"C","tier":2,"outcome":"accept"}`,
		`{"type":"tick"}`,
	}, "\n")

	_, err := executeRoot(t, []byte(input), "--db", e.db, "--specs", e.specs, "run", "--stdin", "--sweep-interval", "0s")
	require.NoError(t, err)

	out, err := e.run(t, "--format", "json", "status", "L1")
	require.NoError(t, err)
	var view ExecutionView
	decodeData(t, out, &view)
	assert.Equal(t, "completed", view.Status)
	assert.Equal(t, "assigned", view.Result)
	assert.Equal(t, "C", view.AssignedCarrier)
}

func TestRun_StdinEmptyInput(t *testing.T) {
	e := newEnv(t)

	_, err := executeRoot(t, []byte{}, "--db", e.db, "--specs", e.specs, "run", "--stdin")
	require.NoError(t, err)
}

func TestRun_InvalidSpecs(t *testing.T) {
	e := newEnv(t, "package specs\n\nwaterfall: x: { lane: 1 }\n")

	_, err := executeRoot(t, []byte{}, "--db", e.db, "--specs", e.specs, "run", "--stdin")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "loading waterfall specs")
}

func TestParseCommand(t *testing.T) {
	offerID, err := domain.OfferID("L1", "A", 1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    engine.Event
		wantErr string
	}{
		{
			name:  "start_load",
			input: `{"type":"start_load","load":{"id":"L1","origin_zip":"1","destination_zip":"2","equipment_type":"flatbed"}}`,
			want: engine.Event{Type: engine.EventStartLoad, Load: domain.Load{
				ID: "L1", OriginZip: "1", DestinationZip: "2", EquipmentType: "flatbed",
			}},
		},
		{
			name:  "response by carrier and tier",
			input: `{"type":"response","load_id":"L1","carrier_id":"A","tier":1,"outcome":"accept"}`,
			want:  engine.Event{Type: engine.EventResponse, OfferID: offerID, Outcome: domain.OutcomeAccept},
		},
		{
			name:  "response by offer id",
			input: `{"type":"response","offer_id":"abc","outcome":"decline"}`,
			want:  engine.Event{Type: engine.EventResponse, OfferID: "abc", Outcome: domain.OutcomeDecline},
		},
		{
			name:  "pause",
			input: `{"type":"pause","load_id":"L1"}`,
			want:  engine.Event{Type: engine.EventPause, LoadID: "L1"},
		},
		{
			name:  "resume",
			input: `{"type":"resume","load_id":"L1"}`,
			want:  engine.Event{Type: engine.EventResume, LoadID: "L1"},
		},
		{
			name:  "tick",
			input: `{"type":"tick"}`,
			want:  engine.Event{Type: engine.EventTick},
		},
		{name: "unknown type", input: `{"type":"cancel"}`, wantErr: `unknown command type "cancel"`},
		{name: "unknown field", input: `{"type":"tick","when":"now"}`, wantErr: "decode command"},
		{name: "missing load id", input: `{"type":"start_load","load":{}}`, wantErr: "load.id is required"},
		{name: "bad outcome", input: `{"type":"response","offer_id":"abc","outcome":"maybe"}`, wantErr: "response:"},
		{name: "response without offer", input: `{"type":"response","load_id":"L1","outcome":"accept"}`, wantErr: "offer_id or load_id"},
		{name: "pause without load", input: `{"type":"pause"}`, wantErr: "pause: load_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
