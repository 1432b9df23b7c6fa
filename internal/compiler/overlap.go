package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/waterfall/internal/domain"
)

// OverlapWarning reports a definition that is legal but probably not what
// the author meant.
//
// Overlaps are warnings, not errors, because they may be intentional:
//   - a draft replacement staged next to the active waterfall for a lane
//   - a carrier deliberately kept in a later tier as a fallback
type OverlapWarning struct {
	Waterfalls []string `json:"waterfalls"`
	Message    string   `json:"message"`
	Level      string   `json:"level"` // "warning" or "info"
}

// AnalyzeOverlaps performs static analysis across waterfall definitions.
//
// Two things are reported:
//  1. Shadowed lanes: more than one non-retired waterfall serves a lane. The
//     ledger matches the first one registered, so the rest never run.
//  2. Repeated carriers: a carrier appears in more than one tier of the same
//     waterfall. A carrier is offered a load at most once, so later tiers
//     skip it.
//
// Input order is registration order. A clean set returns an empty list.
func AnalyzeOverlaps(waterfalls []domain.Waterfall) []OverlapWarning {
	warnings := []OverlapWarning{}

	byLane := make(map[string][]string)
	var laneOrder []string
	for _, w := range waterfalls {
		if w.Status == domain.WaterfallRetired {
			continue
		}
		key := w.Lane.Key()
		if _, ok := byLane[key]; !ok {
			laneOrder = append(laneOrder, key)
		}
		byLane[key] = append(byLane[key], w.ID)
	}
	for _, key := range laneOrder {
		ids := byLane[key]
		if len(ids) < 2 {
			continue
		}
		warnings = append(warnings, OverlapWarning{
			Waterfalls: ids,
			Message: fmt.Sprintf("lane %s is served by %d waterfalls; %s matches first, %s never run",
				key, len(ids), ids[0], strings.Join(ids[1:], ", ")),
			Level: "warning",
		})
	}

	for _, w := range waterfalls {
		warnings = append(warnings, repeatedCarriers(w)...)
	}
	return warnings
}

// repeatedCarriers reports carriers listed in more than one tier.
func repeatedCarriers(w domain.Waterfall) []OverlapWarning {
	ranks := make(map[string][]int)
	for _, t := range w.Tiers {
		seen := make(map[string]bool)
		for _, c := range t.Carriers {
			if c.ID == "" || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ranks[c.ID] = append(ranks[c.ID], t.Rank)
		}
	}

	ids := make([]string, 0, len(ranks))
	for id, rs := range ranks {
		if len(rs) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]OverlapWarning, 0, len(ids))
	for _, id := range ids {
		rs := append([]int(nil), ranks[id]...)
		sort.Ints(rs)
		out = append(out, OverlapWarning{
			Waterfalls: []string{w.ID},
			Message: fmt.Sprintf("carrier %s appears in tiers %s of %s; only tier %d will offer to it",
				id, joinInts(rs), w.ID, rs[0]),
			Level: "info",
		})
	}
	return out
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
