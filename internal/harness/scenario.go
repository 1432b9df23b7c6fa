package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/waterfall/internal/domain"
)

// Scenario defines a waterfall run and what it must end in.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Waterfall is the only waterfall registered for the run.
	Waterfall WaterfallDef `yaml:"waterfall"`

	// Load is the load the steps act on.
	Load domain.Load `yaml:"load"`

	// NotifyFailures lists carriers whose offer notifications fail.
	NotifyFailures []string `yaml:"notify_failures,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final execution.
	Expect Expectation `yaml:"expect"`
}

// WaterfallDef is the scenario form of a waterfall. Carriers are listed by ID.
type WaterfallDef struct {
	ID     string      `yaml:"id"`
	Status string      `yaml:"status,omitempty"`
	Lane   domain.Lane `yaml:"lane"`
	Tiers  []TierDef   `yaml:"tiers"`
}

// TierDef is one tier of a WaterfallDef.
type TierDef struct {
	Rank           int           `yaml:"rank"`
	ResponseWindow time.Duration `yaml:"response_window"`
	Carriers       []string      `yaml:"carriers"`
}

// Step is one command applied to the engine.
type Step struct {
	// At moves the clock to scenario start + At before the command.
	// Zero leaves the clock where it is.
	At time.Duration `yaml:"at,omitempty"`

	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Carrier, Tier and Outcome identify a response (respond only).
	Carrier string `yaml:"carrier,omitempty"`
	Tier    int    `yaml:"tier,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// ExpectError is the engine error code the command must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Expectation describes the final state. Empty fields are not checked.
type Expectation struct {
	Status          string            `yaml:"status,omitempty"`
	Result          string            `yaml:"result,omitempty"`
	AssignedCarrier string            `yaml:"assigned_carrier,omitempty"`
	TiersVisited    []int             `yaml:"tiers_visited,omitempty"`
	Offers          map[string]string `yaml:"offers,omitempty"`
	Notified        []string          `yaml:"notified,omitempty"`
	LogCounts       map[string]int    `yaml:"log_counts,omitempty"`
}

func (e Expectation) empty() bool {
	return e.Status == "" && e.Result == "" && e.AssignedCarrier == "" &&
		len(e.TiersVisited) == 0 && len(e.Offers) == 0 &&
		len(e.Notified) == 0 && len(e.LogCounts) == 0
}

// Step actions.
const (
	ActionStart   = "start"
	ActionRespond = "respond"
	ActionTick    = "tick"
	ActionSweep   = "sweep"
	ActionPause   = "pause"
	ActionResume  = "resume"
)

var validActions = map[string]bool{
	ActionStart:   true,
	ActionRespond: true,
	ActionTick:    true,
	ActionSweep:   true,
	ActionPause:   true,
	ActionResume:  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// toDomain converts the definition to the engine's waterfall type.
func (w WaterfallDef) toDomain() (domain.Waterfall, error) {
	out := domain.Waterfall{ID: w.ID, Name: w.ID, Lane: w.Lane, Status: domain.WaterfallDraft}
	if w.Status != "" {
		status, err := domain.ParseWaterfallStatus(w.Status)
		if err != nil {
			return domain.Waterfall{}, err
		}
		out.Status = status
	}
	for _, t := range w.Tiers {
		tier := domain.Tier{Rank: t.Rank, ResponseWindow: t.ResponseWindow}
		for _, id := range t.Carriers {
			tier.Carriers = append(tier.Carriers, domain.Carrier{ID: id, Name: "Carrier " + id})
		}
		out.Tiers = append(out.Tiers, tier)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
//
// Tier structure is deliberately not checked: a malformed waterfall is a
// legitimate scenario whose run ends in a CONFIGURATION failure.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Waterfall.ID == "" {
		return fmt.Errorf("waterfall.id is required")
	}
	if _, err := s.Waterfall.toDomain(); err != nil {
		return fmt.Errorf("waterfall.status: %w", err)
	}
	if s.Load.ID == "" {
		return fmt.Errorf("load.id is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	var last time.Duration
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.At != 0 {
			if step.At < last {
				return fmt.Errorf("steps[%d]: at %s is before the previous step (%s)", i, step.At, last)
			}
			last = step.At
		}
	}

	if s.Expect.empty() {
		return fmt.Errorf("expect is required and must name at least one field")
	}
	return validateExpectation(s.Expect)
}

func validateStep(i int, step Step) error {
	if step.Action == "" {
		return fmt.Errorf("steps[%d]: action is required", i)
	}
	if !validActions[step.Action] {
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}
	if step.At < 0 {
		return fmt.Errorf("steps[%d]: at must not be negative", i)
	}
	if step.Action != ActionRespond {
		if step.Carrier != "" || step.Tier != 0 || step.Outcome != "" {
			return fmt.Errorf("steps[%d]: carrier, tier and outcome are only valid for respond", i)
		}
		return nil
	}
	if step.Carrier == "" {
		return fmt.Errorf("steps[%d]: carrier is required for respond", i)
	}
	if step.Tier < 1 {
		return fmt.Errorf("steps[%d]: tier is required for respond", i)
	}
	if _, err := domain.ParseOutcome(step.Outcome); err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	return nil
}

func validateExpectation(e Expectation) error {
	if e.Status != "" {
		if _, err := domain.ParseExecutionStatus(e.Status); err != nil {
			return fmt.Errorf("expect.status: %w", err)
		}
	}
	if e.Result != "" {
		if _, err := domain.ParseResult(e.Result); err != nil {
			return fmt.Errorf("expect.result: %w", err)
		}
	}
	for carrier, state := range e.Offers {
		if _, err := domain.ParseOfferState(state); err != nil {
			return fmt.Errorf("expect.offers.%s: %w", carrier, err)
		}
	}
	for kind := range e.LogCounts {
		if !domain.LogKind(kind).Valid() {
			return fmt.Errorf("expect.log_counts: unknown log kind %q", kind)
		}
	}
	return nil
}
