package engine

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/waterfall/internal/domain"
)

// RecordResponse applies a carrier's answer to an offer.
//
// The owning execution is swept first, so a response arriving after its
// deadline finds the offer already expired. A response is accepted only
// while the offer is pending and now <= deadline; anything else returns a
// STALE_RESPONSE error and leaves state untouched. Only one acceptance can
// be recorded per load: once a carrier has accepted, later accepts are stale
// even if the execution is paused and has not completed yet.
//
// The returned offer is the offer's state after the call.
func (e *Engine) RecordResponse(ctx context.Context, offerID string, outcome domain.Outcome) (domain.Offer, error) {
	offerID = strings.TrimSpace(offerID)
	if outcome != domain.OutcomeAccept && outcome != domain.OutcomeDecline {
		err := invalidArgument("outcome must be accept or decline")
		err.OfferID = offerID
		e.appendError(ctx, "", domain.LogResponseRejected, err)
		return domain.Offer{}, err
	}

	loadID, ok := e.loadForOffer(offerID)
	if !ok {
		err := notFound("offer %q not found", offerID)
		err.OfferID = offerID
		e.appendError(ctx, "", domain.LogResponseRejected, err)
		return domain.Offer{}, err
	}
	x, err := e.lookup(ctx, loadID)
	if err != nil {
		return domain.Offer{}, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	now := e.now.Now()
	e.sweep(ctx, x, now)

	idx := -1
	for i := range x.rec.Offers {
		if x.rec.Offers[i].ID == offerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		err := notFound("offer %q not found on load %s", offerID, loadID)
		err.OfferID = offerID
		e.appendError(ctx, loadID, domain.LogResponseRejected, err)
		return domain.Offer{}, err
	}
	offer := &x.rec.Offers[idx]

	if reason := staleReason(x, *offer, outcome); reason != "" {
		serr := NewStaleResponseError(loadID, offer.ID, offer.CarrierID, reason)
		e.appendError(ctx, loadID, domain.LogResponseRejected, serr)
		slog.Info("stale response ignored",
			"load_id", loadID,
			"carrier_id", offer.CarrierID,
			"outcome", outcome.String(),
			"reason", reason,
		)
		if err := e.save(ctx, x); err != nil {
			return *offer, err
		}
		return *offer, serr
	}

	offer.State = outcome.State()
	offer.RespondedAt = now
	offer.Seq = e.append(ctx, domain.LogEntry{
		LoadID:    loadID,
		Kind:      domain.LogCarrierResponded,
		TierRank:  offer.TierRank,
		CarrierID: offer.CarrierID,
		OfferID:   offer.ID,
		Detail:    outcome.String(),
	})
	x.rec.UpdatedAt = now
	slog.Info("carrier responded",
		"load_id", loadID,
		"carrier_id", offer.CarrierID,
		"outcome", outcome.String(),
		"tier_rank", offer.TierRank,
	)
	result := *offer

	evalErr := e.evaluate(ctx, x)
	if err := e.save(ctx, x); err != nil {
		return result, err
	}
	return result, evalErr
}

// staleReason explains why a response cannot be applied, or returns "".
func staleReason(x *execution, offer domain.Offer, outcome domain.Outcome) string {
	if !offer.Pending() {
		return "offer already " + offer.State.String()
	}
	if x.rec.Status.Terminal() {
		return "execution already completed (" + x.rec.Result.String() + ")"
	}
	if outcome == domain.OutcomeAccept {
		if winner, ok := firstAccepted(x.rec.Offers); ok {
			return "load already accepted by " + winner.CarrierID
		}
	}
	return ""
}

// SweepExpired expires every pending offer of a load whose deadline has
// passed and returns the offers it expired.
func (e *Engine) SweepExpired(ctx context.Context, loadID string) ([]domain.Offer, error) {
	x, err := e.lookup(ctx, loadID)
	if err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	expired := e.sweep(ctx, x, e.now.Now())
	if len(expired) == 0 {
		return nil, nil
	}
	return expired, e.save(ctx, x)
}

// Tick sweeps every execution for expired offers. Executions are swept in
// parallel; each one still serializes on its own mutex. A save failure on
// one load does not stop the others; the first such error is returned with
// the number of offers expired.
func (e *Engine) Tick(ctx context.Context) (int, error) {
	xs := e.snapshotExecutions()
	now := e.now.Now()

	var total atomic.Int64
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, x := range xs {
		g.Go(func() error {
			x.mu.Lock()
			defer x.mu.Unlock()
			if x.rec.Status.Terminal() {
				return nil
			}
			expired := e.sweep(ctx, x, now)
			if len(expired) == 0 {
				return nil
			}
			total.Add(int64(len(expired)))
			return e.save(ctx, x)
		})
	}
	err := g.Wait()

	if n := total.Load(); n > 0 {
		slog.Debug("sweep expired offers", "expired", n, "executions", len(xs))
	}
	return int(total.Load()), err
}

// sweep expires overdue pending offers and re-evaluates the execution if
// anything changed. Caller holds x.mu.
func (e *Engine) sweep(ctx context.Context, x *execution, now time.Time) []domain.Offer {
	var expired []domain.Offer
	for i := range x.rec.Offers {
		o := &x.rec.Offers[i]
		if !o.Overdue(now) {
			continue
		}
		o.State = domain.OfferExpired
		o.Seq = e.append(ctx, domain.LogEntry{
			LoadID:    x.rec.LoadID,
			Kind:      domain.LogOfferExpired,
			At:        now,
			TierRank:  o.TierRank,
			CarrierID: o.CarrierID,
			OfferID:   o.ID,
		})
		expired = append(expired, *o)
		slog.Info("offer expired",
			"load_id", x.rec.LoadID,
			"carrier_id", o.CarrierID,
			"tier_rank", o.TierRank,
		)
	}
	if len(expired) == 0 {
		return nil
	}

	x.rec.UpdatedAt = now
	if err := e.evaluate(ctx, x); err != nil {
		slog.Error("evaluation after sweep failed", "load_id", x.rec.LoadID, "error", err)
	}
	return expired
}
