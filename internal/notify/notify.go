// Package notify delivers carrier offers.
//
// The engine treats delivery as a side channel: it calls Send once per
// offer, records failures in the execution log and moves on. Senders here
// are the building blocks; a real email or SMS gateway implements the same
// engine.Notifier interface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/waterfall/internal/domain"
)

// LogSender writes each offer to a structured logger instead of contacting
// the carrier. Used by the CLI when no gateway is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that logs to logger, or slog.Default() if nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the offer.
func (s *LogSender) Send(ctx context.Context, carrier domain.Carrier, offer domain.Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "offer notification",
		"load_id", offer.LoadID,
		"carrier_id", carrier.ID,
		"carrier_name", carrier.Name,
		"email", carrier.Email,
		"phone", carrier.Phone,
		"tier_rank", offer.TierRank,
		"deadline", offer.Deadline.Format(time.RFC3339),
	)
	return nil
}

// Delivery is one call to Recorder.Send.
type Delivery struct {
	CarrierID string
	OfferID   string
	LoadID    string
	TierRank  int
	Failed    bool
}

// Recorder captures every Send and can fail chosen carriers.
// Used by tests and the scenario harness.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	failing map[string]bool
	sent    []Delivery
}

// NewRecorder creates a recorder that fails deliveries to the given carriers.
func NewRecorder(failCarriers ...string) *Recorder {
	r := &Recorder{failing: make(map[string]bool)}
	for _, id := range failCarriers {
		r.failing[id] = true
	}
	return r
}

// FailCarrier makes future deliveries to carrierID fail.
func (r *Recorder) FailCarrier(carrierID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[carrierID] = true
}

// Send records the delivery.
func (r *Recorder) Send(ctx context.Context, carrier domain.Carrier, offer domain.Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := r.failing[carrier.ID]
	r.sent = append(r.sent, Delivery{
		CarrierID: carrier.ID,
		OfferID:   offer.ID,
		LoadID:    offer.LoadID,
		TierRank:  offer.TierRank,
		Failed:    failed,
	})
	if failed {
		return fmt.Errorf("deliver to carrier %s: gateway unavailable", carrier.ID)
	}
	return nil
}

// Deliveries returns a copy of every recorded delivery in call order.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.sent...)
}

// SentTo returns how many times carrierID was sent an offer.
func (r *Recorder) SentTo(carrierID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.sent {
		if d.CarrierID == carrierID {
			n++
		}
	}
	return n
}
