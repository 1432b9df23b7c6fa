package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/waterfall/internal/domain"
)

// Escalation state machine:
//
//	idle ──match──▶ processing ──dispatch──▶ waiting_response
//	                    ▲                        │
//	                    └──── tier exhausted ────┤
//	                                             ├── accepted ──▶ completed (assigned)
//	                                             └── last tier exhausted ──▶ completed (unassigned)
//
//	any non-terminal ──pause──▶ paused ──resume──▶ processing (re-evaluate)
//
// Every function here is called with x.mu held.

// activateTier moves the execution to tierIndex and dispatches its offers.
func (e *Engine) activateTier(ctx context.Context, x *execution, tierIndex int) error {
	if tierIndex < 0 || tierIndex >= len(x.tiers) {
		return e.fail(ctx, x, NewConfigurationError(x.rec.WaterfallID, "tier index %d out of range", tierIndex))
	}
	if err := e.guard.Advance(x.rec.LoadID, tierIndex); err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			e.appendError(ctx, x.rec.LoadID, domain.LogCommandRejected, ee)
		}
		return err
	}

	tier := x.tiers[tierIndex]
	x.rec.TierIndex = tierIndex
	x.rec.Status = domain.StatusProcessing
	x.rec.UpdatedAt = e.now.Now()
	e.append(ctx, domain.LogEntry{
		LoadID:   x.rec.LoadID,
		Kind:     domain.LogTierActivated,
		TierRank: tier.Rank,
		Detail:   x.rec.WaterfallID,
	})
	slog.Info("tier activated",
		"load_id", x.rec.LoadID,
		"tier_rank", tier.Rank,
		"tier_index", tierIndex,
		"carriers", len(tier.Carriers),
	)

	sent := e.dispatch(ctx, x, tier)

	x.rec.Status = domain.StatusWaitingResponse
	if len(sent) == 0 {
		slog.Info("tier produced no new offers", "load_id", x.rec.LoadID, "tier_rank", tier.Rank)
	}
	return e.evaluate(ctx, x)
}

// evaluate decides the next transition after any change to the execution.
func (e *Engine) evaluate(ctx context.Context, x *execution) error {
	switch x.rec.Status {
	case domain.StatusIdle, domain.StatusPaused, domain.StatusCompleted:
		return nil
	}
	if len(x.tiers) == 0 {
		return e.fail(ctx, x, NewConfigurationError(x.rec.WaterfallID, "waterfall tiers unavailable"))
	}
	if x.rec.TierIndex < 0 || x.rec.TierIndex >= len(x.tiers) {
		return e.fail(ctx, x, NewConfigurationError(x.rec.WaterfallID, "tier index %d out of range", x.rec.TierIndex))
	}

	if winner, ok := firstAccepted(x.rec.Offers); ok {
		e.complete(ctx, x, winner)
		return nil
	}

	rank := x.tiers[x.rec.TierIndex].Rank
	for _, o := range x.rec.OffersAtTier(rank) {
		if o.Pending() {
			x.rec.Status = domain.StatusWaitingResponse
			return nil
		}
	}

	// Current tier exhausted.
	next := x.rec.TierIndex + 1
	if next < len(x.tiers) {
		slog.Info("tier exhausted, escalating",
			"load_id", x.rec.LoadID,
			"from_rank", rank,
			"to_rank", x.tiers[next].Rank,
		)
		return e.activateTier(ctx, x, next)
	}

	now := e.now.Now()
	x.rec.Status = domain.StatusCompleted
	x.rec.Result = domain.ResultUnassigned
	x.rec.UpdatedAt = now
	x.rec.CompletedAt = now
	e.guard.Clear(x.rec.LoadID)
	e.append(ctx, domain.LogEntry{
		LoadID:   x.rec.LoadID,
		Kind:     domain.LogExecutionUnassigned,
		TierRank: rank,
	})
	slog.Info("waterfall exhausted, load unassigned", "load_id", x.rec.LoadID)
	return nil
}

// firstAccepted returns the accepted offer with the lowest seq, i.e. the
// first acceptance to arrive regardless of tier rank.
func firstAccepted(offers []domain.Offer) (domain.Offer, bool) {
	var (
		winner domain.Offer
		found  bool
	)
	for _, o := range offers {
		if o.State != domain.OfferAccepted {
			continue
		}
		if !found || o.Seq < winner.Seq {
			winner, found = o, true
		}
	}
	return winner, found
}

// complete assigns the load to the winning carrier and cancels every other
// pending offer.
func (e *Engine) complete(ctx context.Context, x *execution, winner domain.Offer) {
	now := e.now.Now()
	for i := range x.rec.Offers {
		o := &x.rec.Offers[i]
		if !o.Pending() {
			continue
		}
		o.State = domain.OfferExpired
		o.Seq = e.append(ctx, domain.LogEntry{
			LoadID:    x.rec.LoadID,
			Kind:      domain.LogOfferCancelled,
			TierRank:  o.TierRank,
			CarrierID: o.CarrierID,
			OfferID:   o.ID,
			Detail:    "assigned to " + winner.CarrierID,
		})
	}

	x.rec.Status = domain.StatusCompleted
	x.rec.Result = domain.ResultAssigned
	x.rec.AssignedCarrier = winner.CarrierID
	x.rec.UpdatedAt = now
	x.rec.CompletedAt = now
	e.guard.Clear(x.rec.LoadID)
	e.append(ctx, domain.LogEntry{
		LoadID:    x.rec.LoadID,
		Kind:      domain.LogAssignmentCompleted,
		TierRank:  winner.TierRank,
		CarrierID: winner.CarrierID,
		OfferID:   winner.ID,
	})
	slog.Info("load assigned",
		"load_id", x.rec.LoadID,
		"carrier_id", winner.CarrierID,
		"tier_rank", winner.TierRank,
	)
}

// fail aborts the execution after a CONFIGURATION error. Pending offers are
// left to expire on their own; the carriers already hold them.
func (e *Engine) fail(ctx context.Context, x *execution, err error) error {
	now := e.now.Now()
	x.rec.Status = domain.StatusCompleted
	x.rec.Result = domain.ResultFailed
	x.rec.UpdatedAt = now
	x.rec.CompletedAt = now
	e.guard.Clear(x.rec.LoadID)

	var ee *Error
	if errors.As(err, &ee) && ee.LoadID == "" {
		ee.LoadID = x.rec.LoadID
	}
	e.append(ctx, domain.LogEntry{
		LoadID: x.rec.LoadID,
		Kind:   domain.LogExecutionFailed,
		Detail: err.Error(),
	})
	slog.Error("execution failed",
		"load_id", x.rec.LoadID,
		"waterfall_id", x.rec.WaterfallID,
		"error", err,
	)
	return err
}

// Pause suspends an execution. Offers already sent stay live for the
// carriers: responses are still recorded and deadlines still pass, but the
// engine takes no escalation or completion step until Resume.
func (e *Engine) Pause(ctx context.Context, loadID string) (domain.ExecutionRecord, error) {
	x, err := e.lookup(ctx, loadID)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	switch x.rec.Status {
	case domain.StatusCompleted:
		err := invalidState(loadID, "cannot pause a completed execution")
		e.appendError(ctx, loadID, domain.LogCommandRejected, err)
		return x.rec.Clone(), err
	case domain.StatusPaused:
		return x.rec.Clone(), nil
	}

	x.rec.Status = domain.StatusPaused
	x.rec.UpdatedAt = e.now.Now()
	e.append(ctx, domain.LogEntry{LoadID: loadID, Kind: domain.LogExecutionPaused, TierRank: x.currentRank()})
	slog.Info("execution paused", "load_id", loadID)

	return x.rec.Clone(), e.save(ctx, x)
}

// Resume returns a paused execution to processing and re-evaluates its
// current tier. Offers already resolved are never re-sent.
func (e *Engine) Resume(ctx context.Context, loadID string) (domain.ExecutionRecord, error) {
	x, err := e.lookup(ctx, loadID)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.rec.Status != domain.StatusPaused {
		err := invalidState(loadID, "cannot resume execution in status %s", x.rec.Status)
		e.appendError(ctx, loadID, domain.LogCommandRejected, err)
		return x.rec.Clone(), err
	}

	now := e.now.Now()
	e.sweep(ctx, x, now)
	e.append(ctx, domain.LogEntry{LoadID: loadID, Kind: domain.LogExecutionResumed, TierRank: x.currentRank()})
	slog.Info("execution resumed", "load_id", loadID)

	var evalErr error
	if x.rec.WaterfallID == "" {
		// Paused before any waterfall matched.
		x.rec.Status = domain.StatusIdle
		evalErr = e.start(ctx, x)
	} else {
		x.rec.Status = domain.StatusProcessing
		x.rec.UpdatedAt = now
		evalErr = e.evaluate(ctx, x)
	}

	if err := e.save(ctx, x); err != nil {
		return x.rec.Clone(), err
	}
	return x.rec.Clone(), evalErr
}

// currentRank returns the rank of the active tier, or 0 before any tier.
func (x *execution) currentRank() int {
	if x.rec.TierIndex < 0 || x.rec.TierIndex >= len(x.tiers) {
		return 0
	}
	return x.tiers[x.rec.TierIndex].Rank
}
