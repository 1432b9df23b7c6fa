package compiler

import (
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/domain"
)

func TestCompileWaterfallBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: "chi-atl": {
			name: "Chicago to Atlanta"
			status: "active"
			lane: {
				origin_zip: "60601"
				destination_zip: "30301"
				equipment_type: "dry_van"
			}
			tiers: [{
				rank: 1
				response_window: "30m"
				carriers: [
					{ id: "A", name: "Acme Freight", email: "dispatch@acme.test" },
					{ id: "B" },
				]
			}, {
				rank: 2
				response_window: "1h"
				carriers: [{ id: "C", phone: "+15550100" }]
			}]
		}
	`)

	require.NoError(t, v.Err())
	w, err := CompileWaterfall(v.LookupPath(cue.ParsePath(`waterfall."chi-atl"`)))
	require.NoError(t, err)

	assert.Equal(t, "chi-atl", w.ID)
	assert.Equal(t, "Chicago to Atlanta", w.Name)
	assert.Equal(t, domain.WaterfallActive, w.Status)
	assert.Equal(t, domain.Lane{OriginZip: "60601", DestinationZip: "30301", EquipmentType: "dry_van"}, w.Lane)
	require.Len(t, w.Tiers, 2)

	assert.Equal(t, 1, w.Tiers[0].Rank)
	assert.Equal(t, 30*time.Minute, w.Tiers[0].ResponseWindow)
	assert.Equal(t, []string{"A", "B"}, w.Tiers[0].CarrierIDs())
	assert.Equal(t, "Acme Freight", w.Tiers[0].Carriers[0].Name)
	assert.Equal(t, "dispatch@acme.test", w.Tiers[0].Carriers[0].Email)

	assert.Equal(t, 2, w.Tiers[1].Rank)
	assert.Equal(t, time.Hour, w.Tiers[1].ResponseWindow)
	assert.Equal(t, "+15550100", w.Tiers[1].Carriers[0].Phone)
}

func TestCompileWaterfallDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: lax: {
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [{ rank: 1, response_window: "15m", carriers: [{ id: "X" }] }]
		}
	`)

	require.NoError(t, v.Err())
	w, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.lax")))
	require.NoError(t, err)

	assert.Equal(t, "lax", w.ID)
	assert.Equal(t, "lax", w.Name, "name defaults to the id")
	assert.Equal(t, domain.WaterfallDraft, w.Status, "status defaults to draft")
}

func TestCompileWaterfallMissingLane(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: bad: {
			tiers: [{ rank: 1, response_window: "15m", carriers: [{ id: "X" }] }]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.bad")))
	require.Error(t, err)
}

func TestCompileWaterfallWrongType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: bad: {
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [{ rank: "first", response_window: "15m", carriers: [{ id: "X" }] }]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.bad")))
	require.Error(t, err)
}

func TestCompileWaterfallUnknownStatus(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: bad: {
			status: "paused"
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [{ rank: 1, response_window: "15m", carriers: [{ id: "X" }] }]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.bad")))
	require.Error(t, err)
}

func TestCompileWaterfallInvalidDuration(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: bad: {
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [
				{ rank: 1, response_window: "15m", carriers: [{ id: "X" }] },
				{ rank: 2, response_window: "soon", carriers: [{ id: "Y" }] },
			]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.bad")))
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "tiers[1].response_window", cerr.Field)
	assert.Contains(t, cerr.Message, "soon")
}

func TestCompileWaterfallKeepsSemanticProblems(t *testing.T) {
	// Structure is fine; tier semantics are left to Validate.
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: loose: {
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [{ rank: 0, response_window: "0s", carriers: [] }]
		}
	`)

	require.NoError(t, v.Err())
	w, err := CompileWaterfall(v.LookupPath(cue.ParsePath("waterfall.loose")))
	require.NoError(t, err)
	require.Len(t, w.Tiers, 1)
	assert.Equal(t, 0, w.Tiers[0].Rank)
	assert.Empty(t, w.Tiers[0].Carriers)
	assert.NotEmpty(t, Validate(*w))
}

func TestCompileAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: "chi-atl": {
			lane: { origin_zip: "60601", destination_zip: "30301", equipment_type: "dry_van" }
			tiers: [{ rank: 1, response_window: "30m", carriers: [{ id: "A" }] }]
		}
		waterfall: "lax-phx": {
			lane: { origin_zip: "90001", destination_zip: "85001", equipment_type: "reefer" }
			tiers: [{ rank: 1, response_window: "15m", carriers: [{ id: "X" }] }]
		}
	`)

	require.NoError(t, v.Err())
	all, err := CompileAll(v)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "chi-atl", all[0].ID)
	assert.Equal(t, "lax-phx", all[1].ID)
}

func TestCompileAllEmpty(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)

	require.NoError(t, v.Err())
	all, err := CompileAll(v)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCompileAllStopsOnFirstError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		waterfall: good: {
			lane: { origin_zip: "60601", destination_zip: "30301", equipment_type: "dry_van" }
			tiers: [{ rank: 1, response_window: "30m", carriers: [{ id: "A" }] }]
		}
		waterfall: bad: {
			lane: { origin_zip: "60601", destination_zip: "30301", equipment_type: "dry_van" }
			tiers: [{ rank: 1, response_window: "whenever", carriers: [{ id: "A" }] }]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileAll(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whenever")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "tiers[0].rank", Message: "must be an int"}
	assert.Equal(t, "tiers[0].rank: must be an int", err.Error())
}
