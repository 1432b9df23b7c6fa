package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/waterfall/internal/domain"
)

// Validation error codes (E200-E299)
const (
	// Waterfall errors (E200-E209)
	ErrWaterfallNoTiers   = "E200" // at least one tier required
	ErrLaneIncomplete     = "E201" // lane field empty
	ErrDuplicateWaterfall = "E202" // waterfall id declared twice

	// Tier errors (E210-E219)
	ErrTierRankInvalid   = "E210" // rank must be >= 1
	ErrTierRankDuplicate = "E211" // rank used twice in one waterfall
	ErrTierWindowInvalid = "E212" // response window must be positive
	ErrTierNoCarriers    = "E213" // tier must list a carrier
	ErrCarrierIDEmpty    = "E214" // carrier id required
	ErrCarrierDuplicate  = "E215" // carrier listed twice in one tier
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled waterfall against the tier rules the engine
// enforces at dispatch time. Returns all errors found (does not fail-fast).
//
// A waterfall that fails here still compiles; the engine would fail any
// execution that matched it with a CONFIGURATION error.
func Validate(w domain.Waterfall) []ValidationError {
	var errs []ValidationError
	prefix := "waterfall." + w.ID

	// E201: lane fields are required for matching
	for _, f := range []struct{ name, value string }{
		{"origin_zip", w.Lane.OriginZip},
		{"destination_zip", w.Lane.DestinationZip},
		{"equipment_type", w.Lane.EquipmentType},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".lane." + f.name,
				Message: f.name + " is required",
				Code:    ErrLaneIncomplete,
			})
		}
	}

	// E200: at least one tier
	if len(w.Tiers) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".tiers",
			Message: "at least one tier is required",
			Code:    ErrWaterfallNoTiers,
		})
	}

	ranks := make(map[int]bool)
	for i, t := range w.Tiers {
		field := fmt.Sprintf("%s.tiers[%d]", prefix, i)

		// E210: rank >= 1
		if t.Rank < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".rank",
				Message: fmt.Sprintf("rank %d must be >= 1", t.Rank),
				Code:    ErrTierRankInvalid,
			})
		}

		// E211: duplicate rank
		if ranks[t.Rank] {
			errs = append(errs, ValidationError{
				Field:   field + ".rank",
				Message: fmt.Sprintf("duplicate rank %d", t.Rank),
				Code:    ErrTierRankDuplicate,
			})
		}
		ranks[t.Rank] = true

		// E212: positive window
		if t.ResponseWindow <= 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".response_window",
				Message: fmt.Sprintf("response window %s must be positive", t.ResponseWindow),
				Code:    ErrTierWindowInvalid,
			})
		}

		// E213: at least one carrier
		if len(t.Carriers) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".carriers",
				Message: "at least one carrier is required",
				Code:    ErrTierNoCarriers,
			})
		}

		seen := make(map[string]bool)
		for j, c := range t.Carriers {
			cfield := fmt.Sprintf("%s.carriers[%d]", field, j)
			// E214: carrier id required
			if strings.TrimSpace(c.ID) == "" {
				errs = append(errs, ValidationError{
					Field:   cfield + ".id",
					Message: "carrier id is required",
					Code:    ErrCarrierIDEmpty,
				})
				continue
			}
			// E215: duplicate carrier in one tier
			if seen[c.ID] {
				errs = append(errs, ValidationError{
					Field:   cfield + ".id",
					Message: fmt.Sprintf("carrier %q listed twice in tier %d", c.ID, t.Rank),
					Code:    ErrCarrierDuplicate,
				})
			}
			seen[c.ID] = true
		}
	}

	return errs
}

// ValidateAll validates every waterfall and checks that IDs are unique.
func ValidateAll(waterfalls []domain.Waterfall) []ValidationError {
	var errs []ValidationError
	ids := make(map[string]bool)
	for _, w := range waterfalls {
		// E202: duplicate waterfall id
		if ids[w.ID] {
			errs = append(errs, ValidationError{
				Field:   "waterfall." + w.ID,
				Message: fmt.Sprintf("duplicate waterfall id %q", w.ID),
				Code:    ErrDuplicateWaterfall,
			})
		}
		ids[w.ID] = true
		errs = append(errs, Validate(w)...)
	}
	return errs
}
