package domain

import "time"

// ExecutionStatus is the aggregate status of one waterfall run for a load.
type ExecutionStatus int

const (
	StatusIdle ExecutionStatus = iota
	StatusProcessing
	StatusWaitingResponse
	StatusCompleted
	StatusPaused
)

var executionStatusNames = []string{"idle", "processing", "waiting_response", "completed", "paused"}

func (s ExecutionStatus) String() string {
	return enumName(executionStatusNames, int(s))
}

// Terminal reports whether no further transitions are possible.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted
}

// MarshalText implements encoding.TextMarshaler.
func (s ExecutionStatus) MarshalText() ([]byte, error) {
	return marshalEnum(executionStatusNames, int(s), "execution status")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ExecutionStatus) UnmarshalText(b []byte) error {
	v, err := ParseExecutionStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseExecutionStatus parses an execution status name.
func ParseExecutionStatus(name string) (ExecutionStatus, error) {
	i, err := parseEnum(executionStatusNames, name, "execution status")
	return ExecutionStatus(i), err
}

// Result describes how a completed execution ended.
type Result int

const (
	ResultNone Result = iota
	ResultAssigned
	ResultUnassigned
	ResultFailed
)

var resultNames = []string{"none", "assigned", "unassigned", "failed"}

func (r Result) String() string {
	return enumName(resultNames, int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return marshalEnum(resultNames, int(r), "result")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseResult parses a result name.
func ParseResult(name string) (Result, error) {
	i, err := parseEnum(resultNames, name, "result")
	return Result(i), err
}

// ExecutionRecord is the per-load run of a waterfall.
type ExecutionRecord struct {
	ID              string          `json:"id"`
	LoadID          string          `json:"load_id"`
	WaterfallID     string          `json:"waterfall_id,omitempty"`
	Load            Load            `json:"load"`
	TierIndex       int             `json:"tier_index"`
	Status          ExecutionStatus `json:"status"`
	Result          Result          `json:"result"`
	AssignedCarrier string          `json:"assigned_carrier,omitempty"`
	Offers          []Offer         `json:"offers"`
	StartedAt       time.Time       `json:"started_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     time.Time       `json:"completed_at"`
}

// Clone returns a deep copy safe to hand to callers and persistence.
func (r ExecutionRecord) Clone() ExecutionRecord {
	out := r
	out.Offers = append([]Offer(nil), r.Offers...)
	if out.Offers == nil {
		out.Offers = []Offer{}
	}
	return out
}

// OfferFor returns the offer held by a carrier, if any.
func (r ExecutionRecord) OfferFor(carrierID string) (Offer, bool) {
	for _, o := range r.Offers {
		if o.CarrierID == carrierID {
			return o, true
		}
	}
	return Offer{}, false
}

// OffersAtTier returns the offers issued at the given tier rank, in issue order.
func (r ExecutionRecord) OffersAtTier(rank int) []Offer {
	var out []Offer
	for _, o := range r.Offers {
		if o.TierRank == rank {
			out = append(out, o)
		}
	}
	return out
}

// PendingCount returns the number of offers still awaiting a response.
func (r ExecutionRecord) PendingCount() int {
	n := 0
	for _, o := range r.Offers {
		if o.Pending() {
			n++
		}
	}
	return n
}
