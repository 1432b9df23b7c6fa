package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/waterfall/internal/domain"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Field    string            // Expectation that failed
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Log      []domain.LogEntry // Full log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Log) > 0 {
		fmt.Fprintf(&buf, "\nFull log:\n")
		for _, entry := range e.Log {
			fmt.Fprintf(&buf, "  [%d] %s tier=%d carrier=%s\n", entry.Seq, entry.Kind, entry.TierRank, entry.CarrierID)
		}
	}
	return buf.String()
}

// CheckExpectations compares a result against an expectation and returns
// one message per failed check. Empty expectation fields are skipped.
func CheckExpectations(r *Result, exp Expectation) []string {
	var errs []string
	fail := func(field, expected, actual string) {
		errs = append(errs, (&AssertionError{
			Field:    field,
			Expected: expected,
			Actual:   actual,
			Log:      r.Log,
		}).Error())
	}
	rec := r.Execution

	if exp.Status != "" && rec.Status.String() != exp.Status {
		fail("status", exp.Status, rec.Status.String())
	}
	if exp.Result != "" && rec.Result.String() != exp.Result {
		fail("result", exp.Result, rec.Result.String())
	}
	if exp.AssignedCarrier != "" && rec.AssignedCarrier != exp.AssignedCarrier {
		fail("assigned_carrier", exp.AssignedCarrier, orNone(rec.AssignedCarrier))
	}

	if len(exp.TiersVisited) > 0 {
		if got := r.TiersVisited(); !reflect.DeepEqual(got, exp.TiersVisited) {
			fail("tiers_visited", fmt.Sprint(exp.TiersVisited), fmt.Sprint(got))
		}
	}

	for _, carrier := range sortedKeys(exp.Offers) {
		want := exp.Offers[carrier]
		offer, ok := rec.OfferFor(carrier)
		if !ok {
			fail("offers."+carrier, want, "no offer")
			continue
		}
		if offer.State.String() != want {
			fail("offers."+carrier, want, offer.State.String())
		}
	}

	if len(exp.Notified) > 0 {
		got := make([]string, len(r.Deliveries))
		for i, d := range r.Deliveries {
			got[i] = d.CarrierID
		}
		if !reflect.DeepEqual(got, exp.Notified) {
			fail("notified", fmt.Sprint(exp.Notified), fmt.Sprint(got))
		}
	}

	for _, kind := range sortedKeys(exp.LogCounts) {
		want := exp.LogCounts[kind]
		if got := r.LogCount(domain.LogKind(kind)); got != want {
			fail("log_counts."+kind, fmt.Sprintf("%d entries", want), fmt.Sprintf("%d entries", got))
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
