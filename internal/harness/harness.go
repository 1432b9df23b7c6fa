package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/engine"
	"github.com/roach88/waterfall/internal/notify"
	"github.com/roach88/waterfall/internal/testutil"
)

// Harness drives one engine through a scenario's steps.
type Harness struct {
	engine   *engine.Engine
	log      *engine.MemoryLog
	clock    *testutil.ManualClock
	notifier *notify.Recorder
	scenario *Scenario
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory engine. Execution flow:
//  1. Register the scenario waterfall
//  2. Apply each step at its clock offset
//  3. Check the final execution against the expectations
//
// A returned error means the scenario could not run at all; failed checks
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	w, err := scenario.Waterfall.toDomain()
	if err != nil {
		return nil, fmt.Errorf("build waterfall: %w", err)
	}
	ledger, err := engine.NewLedger(w)
	if err != nil {
		return nil, fmt.Errorf("register waterfall: %w", err)
	}

	h := &Harness{
		log:      engine.NewMemoryLog(),
		clock:    testutil.NewManualClock(testutil.Epoch),
		notifier: notify.NewRecorder(scenario.NotifyFailures...),
		scenario: scenario,
	}
	h.engine = engine.New(ledger,
		engine.WithTimeSource(h.clock),
		engine.WithIDGenerator(engine.NewSequentialGenerator("exec")),
		engine.WithNotifier(h.notifier),
		engine.WithLog(h.log),
		engine.WithSweepInterval(0),
	)

	ctx := context.Background()
	result := NewResult(h.clock.Now())

	for i, step := range scenario.Steps {
		if step.At > 0 {
			h.clock.Set(result.Start.Add(step.At))
		}
		err := h.apply(ctx, step)
		sr := StepResult{Index: i, Action: step.Action, At: h.clock.Elapsed(result.Start), Error: errorCode(err)}
		result.Steps = append(result.Steps, sr)

		switch {
		case step.ExpectError != "" && sr.Error != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, got %s", i, step.Action, step.ExpectError, describe(err)))
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Action, err))
		}
	}

	for _, rec := range h.engine.Executions() {
		if rec.LoadID == scenario.Load.ID {
			result.Execution = rec
		}
	}
	result.Log = h.log.All()
	result.Deliveries = h.notifier.Deliveries()

	for _, msg := range CheckExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// apply issues one step's command.
func (h *Harness) apply(ctx context.Context, step Step) error {
	loadID := h.scenario.Load.ID
	switch step.Action {
	case ActionStart:
		_, err := h.engine.StartLoad(ctx, h.scenario.Load)
		return err
	case ActionRespond:
		outcome, err := domain.ParseOutcome(step.Outcome)
		if err != nil {
			return err
		}
		offerID, err := domain.OfferID(loadID, step.Carrier, step.Tier)
		if err != nil {
			return fmt.Errorf("offer id: %w", err)
		}
		_, err = h.engine.RecordResponse(ctx, offerID, outcome)
		return err
	case ActionTick:
		_, err := h.engine.Tick(ctx)
		return err
	case ActionSweep:
		_, err := h.engine.SweepExpired(ctx, loadID)
		return err
	case ActionPause:
		_, err := h.engine.Pause(ctx, loadID)
		return err
	case ActionResume:
		_, err := h.engine.Resume(ctx, loadID)
		return err
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// errorCode returns the engine error code of err, or "" for nil.
// Errors from outside the engine report as "ERROR".
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "ERROR"
}

func describe(err error) string {
	if err == nil {
		return "no error"
	}
	return err.Error()
}
