package harness

import (
	"time"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/notify"
)

// StepResult records what one step did.
type StepResult struct {
	Index  int           `json:"index"`
	Action string        `json:"action"`
	At     time.Duration `json:"at"`
	// Error is the engine error code the command returned, if any.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as declared and every expectation held.
	Pass bool `json:"pass"`

	// Start is the clock reading when the scenario began.
	Start time.Time `json:"start"`

	// Execution is the final state of the scenario load's execution.
	// Zero if the load was never started.
	Execution domain.ExecutionRecord `json:"execution"`

	// Log contains every log entry appended during the run, in seq order.
	Log []domain.LogEntry `json:"log"`

	// Deliveries are the notifications the engine attempted.
	Deliveries []notify.Delivery `json:"deliveries"`

	Steps []StepResult `json:"steps"`

	// Errors contains failed checks. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(start time.Time) *Result {
	return &Result{
		Pass:       true,
		Start:      start,
		Log:        []domain.LogEntry{},
		Deliveries: []notify.Delivery{},
		Steps:      []StepResult{},
		Errors:     []string{},
	}
}

// AddError adds a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TiersVisited returns the tier ranks activated during the run, in order.
func (r *Result) TiersVisited() []int {
	ranks := []int{}
	for _, e := range r.Log {
		if e.Kind == domain.LogTierActivated {
			ranks = append(ranks, e.TierRank)
		}
	}
	return ranks
}

// LogCount returns how many entries of kind were appended.
func (r *Result) LogCount(kind domain.LogKind) int {
	n := 0
	for _, e := range r.Log {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
