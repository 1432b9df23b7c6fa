package domain

import "time"

// LogKind names the transition a log entry records.
type LogKind string

const (
	LogWaterfallActivated  LogKind = "waterfall_activated"
	LogWaterfallRetired    LogKind = "waterfall_retired"
	LogTierActivated       LogKind = "tier_activated"
	LogOfferSent           LogKind = "offer_sent"
	LogNotificationFailed  LogKind = "notification_failed"
	LogCarrierResponded    LogKind = "carrier_responded"
	LogResponseRejected    LogKind = "response_rejected"
	LogOfferExpired        LogKind = "offer_expired"
	LogOfferCancelled      LogKind = "offer_cancelled"
	LogAssignmentCompleted LogKind = "assignment_completed"
	LogExecutionUnassigned LogKind = "execution_unassigned"
	LogExecutionPaused     LogKind = "execution_paused"
	LogExecutionResumed    LogKind = "execution_resumed"
	LogExecutionFailed     LogKind = "execution_failed"
	LogCommandRejected     LogKind = "command_rejected"
)

var logKinds = map[LogKind]bool{
	LogWaterfallActivated:  true,
	LogWaterfallRetired:    true,
	LogTierActivated:       true,
	LogOfferSent:           true,
	LogNotificationFailed:  true,
	LogCarrierResponded:    true,
	LogResponseRejected:    true,
	LogOfferExpired:        true,
	LogOfferCancelled:      true,
	LogAssignmentCompleted: true,
	LogExecutionUnassigned: true,
	LogExecutionPaused:     true,
	LogExecutionResumed:    true,
	LogExecutionFailed:     true,
	LogCommandRejected:     true,
}

// Valid reports whether k is a known log kind.
func (k LogKind) Valid() bool {
	return logKinds[k]
}

// LogEntry is an immutable fact about one transition.
type LogEntry struct {
	Seq       int64     `json:"seq"`
	LoadID    string    `json:"load_id"`
	Kind      LogKind   `json:"kind"`
	At        time.Time `json:"at"`
	TierRank  int       `json:"tier_rank,omitempty"`
	CarrierID string    `json:"carrier_id,omitempty"`
	OfferID   string    `json:"offer_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
