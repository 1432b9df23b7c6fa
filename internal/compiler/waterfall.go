package compiler

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"

	"github.com/roach88/waterfall/internal/domain"
)

//go:embed schema.cue
var schemaSrc string

// schemaFor compiles the waterfall schema in the value's own context.
// Values from different contexts cannot be unified.
func schemaFor(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaSrc, cue.Filename("waterfall_schema.cue")).
		LookupPath(cue.ParsePath("#Waterfall"))
}

// CompileWaterfall parses a CUE value into a Waterfall.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the waterfall struct itself; its label is the
// waterfall ID:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`waterfall: "chi-atl": { ... }`)
//	w, err := CompileWaterfall(v.LookupPath(cue.ParsePath(`waterfall."chi-atl"`)))
//
// Only structure is checked here. Tier semantics (ranks, windows, carriers)
// are checked by Validate so every problem can be reported at once.
func CompileWaterfall(v cue.Value) (*domain.Waterfall, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	checked := schemaFor(v.Context()).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	w := &domain.Waterfall{Status: domain.WaterfallDraft}

	selectors := v.Path().Selectors()
	if len(selectors) > 0 {
		w.ID = labelName(selectors[len(selectors)-1])
	}
	if strings.TrimSpace(w.ID) == "" {
		return nil, &CompileError{Field: "id", Message: "waterfall must be declared under a label", Pos: v.Pos()}
	}

	var err error
	if w.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if w.Name == "" {
		w.Name = w.ID
	}

	if w.Lane, err = parseLane(v.LookupPath(cue.ParsePath("lane"))); err != nil {
		return nil, err
	}

	status, err := optionalString(v, "status")
	if err != nil {
		return nil, err
	}
	if status != "" {
		if w.Status, err = domain.ParseWaterfallStatus(status); err != nil {
			return nil, &CompileError{Field: "status", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("status")).Pos()}
		}
	}

	if w.Tiers, err = parseTiers(v.LookupPath(cue.ParsePath("tiers"))); err != nil {
		return nil, err
	}

	return w, nil
}

// CompileAll compiles every waterfall under the top-level "waterfall" field
// in declaration order.
func CompileAll(root cue.Value) ([]domain.Waterfall, error) {
	wfVal := root.LookupPath(cue.ParsePath("waterfall"))
	if !wfVal.Exists() {
		return []domain.Waterfall{}, nil
	}

	iter, err := wfVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := []domain.Waterfall{}
	for iter.Next() {
		w, err := CompileWaterfall(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func parseLane(v cue.Value) (domain.Lane, error) {
	var (
		lane domain.Lane
		err  error
	)
	if lane.OriginZip, err = v.LookupPath(cue.ParsePath("origin_zip")).String(); err != nil {
		return lane, formatCUEError(err)
	}
	if lane.DestinationZip, err = v.LookupPath(cue.ParsePath("destination_zip")).String(); err != nil {
		return lane, formatCUEError(err)
	}
	if lane.EquipmentType, err = v.LookupPath(cue.ParsePath("equipment_type")).String(); err != nil {
		return lane, formatCUEError(err)
	}
	return lane, nil
}

func parseTiers(v cue.Value) ([]domain.Tier, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tiers []domain.Tier
	for i := 0; iter.Next(); i++ {
		tv := iter.Value()
		field := fmt.Sprintf("tiers[%d]", i)

		rank, err := tv.LookupPath(cue.ParsePath("rank")).Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}

		windowVal := tv.LookupPath(cue.ParsePath("response_window"))
		windowStr, err := windowVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		window, err := time.ParseDuration(windowStr)
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".response_window",
				Message: fmt.Sprintf("invalid duration %q: use Go syntax such as 30m or 1h", windowStr),
				Pos:     windowVal.Pos(),
			}
		}

		carriers, err := parseCarriers(tv.LookupPath(cue.ParsePath("carriers")))
		if err != nil {
			return nil, err
		}

		tiers = append(tiers, domain.Tier{
			Rank:           int(rank),
			Carriers:       carriers,
			ResponseWindow: window,
		})
	}
	return tiers, nil
}

func parseCarriers(v cue.Value) ([]domain.Carrier, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var carriers []domain.Carrier
	for iter.Next() {
		cv := iter.Value()
		var c domain.Carrier
		if c.ID, err = cv.LookupPath(cue.ParsePath("id")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if c.Name, err = optionalString(cv, "name"); err != nil {
			return nil, err
		}
		if c.Email, err = optionalString(cv, "email"); err != nil {
			return nil, err
		}
		if c.Phone, err = optionalString(cv, "phone"); err != nil {
			return nil, err
		}
		carriers = append(carriers, c)
	}
	return carriers, nil
}

// optionalString returns the string at path, or "" if the field is absent.
func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}
