package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/waterfall/internal/domain"
)

// Notifier delivers an offer to a carrier (email, SMS, ...).
//
// The engine calls Send exactly once per offer and never retries. A failure
// is recorded in the execution log; the offer stays live and dispatch to the
// remaining carriers continues.
type Notifier interface {
	Send(ctx context.Context, carrier domain.Carrier, offer domain.Offer) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// Send does nothing.
func (NopNotifier) Send(context.Context, domain.Carrier, domain.Offer) error {
	return nil
}

// dispatch creates a pending offer for every carrier in the tier that does
// not already hold an offer for this load, and notifies each one.
// Caller holds x.mu.
//
// Skipping carriers that already hold an offer (pending or resolved) keeps
// at most one pending offer per (carrier, load) and never re-offers a load
// to a carrier who already answered or let it expire.
func (e *Engine) dispatch(ctx context.Context, x *execution, tier domain.Tier) []domain.Offer {
	var sent []domain.Offer
	seen := make(map[string]bool, len(tier.Carriers))

	for _, carrier := range tier.Carriers {
		if seen[carrier.ID] {
			continue
		}
		seen[carrier.ID] = true

		if prior, ok := x.rec.OfferFor(carrier.ID); ok {
			slog.Debug("carrier already holds offer, skipping",
				"load_id", x.rec.LoadID,
				"carrier_id", carrier.ID,
				"prior_tier", prior.TierRank,
				"prior_state", prior.State.String(),
			)
			continue
		}

		id, err := domain.OfferID(x.rec.LoadID, carrier.ID, tier.Rank)
		if err != nil {
			// Only reachable with non-canonical input; skip this carrier.
			slog.Error("offer id computation failed",
				"load_id", x.rec.LoadID,
				"carrier_id", carrier.ID,
				"error", err,
			)
			continue
		}

		now := e.now.Now()
		offer := domain.Offer{
			ID:        id,
			LoadID:    x.rec.LoadID,
			CarrierID: carrier.ID,
			TierRank:  tier.Rank,
			SentAt:    now,
			Deadline:  now.Add(tier.ResponseWindow),
			State:     domain.OfferPending,
		}
		offer.Seq = e.append(ctx, domain.LogEntry{
			LoadID:    x.rec.LoadID,
			Kind:      domain.LogOfferSent,
			TierRank:  tier.Rank,
			CarrierID: carrier.ID,
			OfferID:   offer.ID,
			Detail:    "deadline " + offer.Deadline.Format("2006-01-02T15:04:05Z07:00"),
		})
		x.rec.Offers = append(x.rec.Offers, offer)
		e.indexOffer(offer.ID, x.rec.LoadID)
		sent = append(sent, offer)

		if err := e.notifier.Send(ctx, carrier, offer); err != nil {
			nerr := NewNotificationError(x.rec.LoadID, offer.ID, carrier.ID, err)
			e.appendError(ctx, x.rec.LoadID, domain.LogNotificationFailed, nerr)
			slog.Warn("carrier notification failed",
				"load_id", x.rec.LoadID,
				"carrier_id", carrier.ID,
				"offer_id", offer.ID,
				"error", err,
			)
			continue
		}
		slog.Debug("offer sent",
			"load_id", x.rec.LoadID,
			"carrier_id", carrier.ID,
			"tier_rank", tier.Rank,
			"deadline", offer.Deadline,
		)
	}
	return sent
}

func (e *Engine) indexOffer(offerID, loadID string) {
	e.offerMu.Lock()
	defer e.offerMu.Unlock()
	e.offers[offerID] = loadID
}

func (e *Engine) loadForOffer(offerID string) (string, bool) {
	e.offerMu.RLock()
	defer e.offerMu.RUnlock()
	loadID, ok := e.offers[offerID]
	return loadID, ok
}
