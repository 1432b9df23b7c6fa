package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/waterfall/internal/domain"
)

// FormatTrace renders a result as stable text for golden comparison.
//
// Offer and execution IDs are left out; times are offsets from the scenario
// start. The same scenario always renders the same bytes.
func FormatTrace(name string, r *Result) []byte {
	var b strings.Builder
	rec := r.Execution

	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "load: %s\n", rec.LoadID)
	fmt.Fprintf(&b, "waterfall: %s\n", orNone(rec.WaterfallID))
	fmt.Fprintf(&b, "status: %s\n", rec.Status)
	fmt.Fprintf(&b, "result: %s\n", rec.Result)
	fmt.Fprintf(&b, "assigned_carrier: %s\n", orNone(rec.AssignedCarrier))

	b.WriteString("offers:\n")
	for _, o := range rec.Offers {
		fmt.Fprintf(&b, "  %s tier=%d %s\n", o.CarrierID, o.TierRank, o.State)
	}

	b.WriteString("notified:\n")
	for _, d := range r.Deliveries {
		line := fmt.Sprintf("  %s tier=%d", d.CarrierID, d.TierRank)
		if d.Failed {
			line += " failed"
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("log:\n")
	for _, e := range r.Log {
		b.WriteString("  " + formatEntry(e, r) + "\n")
	}
	return []byte(b.String())
}

func formatEntry(e domain.LogEntry, r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d +%s %s", e.Seq, e.At.Sub(r.Start), e.Kind)
	if e.TierRank > 0 {
		fmt.Fprintf(&b, " tier=%d", e.TierRank)
	}
	if e.CarrierID != "" {
		fmt.Fprintf(&b, " carrier=%s", e.CarrierID)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " %q", e.Detail)
	}
	return b.String()
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further checks, or an error if the
// scenario could not run. Test failure (via goldie) occurs if the trace
// doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result))
}
