package domain

import "time"

// OfferState is the state of a single carrier offer.
type OfferState int

const (
	OfferPending OfferState = iota
	OfferAccepted
	OfferDeclined
	OfferExpired
)

var offerStateNames = []string{"pending", "accepted", "declined", "expired"}

func (s OfferState) String() string {
	return enumName(offerStateNames, int(s))
}

// Resolved reports whether the state is final.
func (s OfferState) Resolved() bool {
	return s != OfferPending
}

// MarshalText implements encoding.TextMarshaler.
func (s OfferState) MarshalText() ([]byte, error) {
	return marshalEnum(offerStateNames, int(s), "offer state")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *OfferState) UnmarshalText(b []byte) error {
	v, err := ParseOfferState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseOfferState parses an offer state name.
func ParseOfferState(name string) (OfferState, error) {
	i, err := parseEnum(offerStateNames, name, "offer state")
	return OfferState(i), err
}

// Outcome is a carrier's answer to an offer.
type Outcome int

const (
	OutcomeAccept Outcome = iota + 1
	OutcomeDecline
)

var outcomeNames = []string{"", "accept", "decline"}

func (o Outcome) String() string {
	return enumName(outcomeNames, int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if o != OutcomeAccept && o != OutcomeDecline {
		return nil, marshalErr("outcome", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOutcome parses "accept" or "decline".
func ParseOutcome(name string) (Outcome, error) {
	if name == "" {
		return 0, parseErr("outcome", name)
	}
	i, err := parseEnum(outcomeNames, name, "outcome")
	return Outcome(i), err
}

// State returns the offer state an outcome resolves to.
func (o Outcome) State() OfferState {
	if o == OutcomeAccept {
		return OfferAccepted
	}
	return OfferDeclined
}

// Offer is issued to one carrier for one load at one tier.
// Created by the dispatcher, mutated only by the response tracker,
// immutable once resolved.
type Offer struct {
	ID          string     `json:"id"`
	LoadID      string     `json:"load_id"`
	CarrierID   string     `json:"carrier_id"`
	TierRank    int        `json:"tier_rank"`
	SentAt      time.Time  `json:"sent_at"`
	Deadline    time.Time  `json:"deadline"`
	State       OfferState `json:"state"`
	RespondedAt time.Time  `json:"responded_at"`
	// Seq is the log sequence of the offer's last transition. Accepted offers
	// compare by Seq to find the first acceptance.
	Seq int64 `json:"seq"`
}

// Pending reports whether the offer still awaits a response.
func (o Offer) Pending() bool {
	return o.State == OfferPending
}

// Overdue reports whether a pending offer's deadline has passed at now.
// A response exactly at the deadline is still on time.
func (o Offer) Overdue(now time.Time) bool {
	return o.Pending() && now.After(o.Deadline)
}

// TimeRemaining is the time left to respond at now, computed live.
// Resolved or overdue offers have none left.
func (o Offer) TimeRemaining(now time.Time) time.Duration {
	if !o.Pending() || now.After(o.Deadline) {
		return 0
	}
	return o.Deadline.Sub(now)
}
