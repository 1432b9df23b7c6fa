package domain

import (
	"fmt"
	"strings"
	"time"
)

// Lane identifies the origin/destination/equipment combination a waterfall serves.
type Lane struct {
	OriginZip      string `json:"origin_zip" yaml:"origin_zip"`
	DestinationZip string `json:"destination_zip" yaml:"destination_zip"`
	EquipmentType  string `json:"equipment_type" yaml:"equipment_type"`
}

// Key returns a stable identifier for the lane.
func (l Lane) Key() string {
	return normalize(l.OriginZip) + ">" + normalize(l.DestinationZip) + "/" + normalize(l.EquipmentType)
}

// Matches reports whether a load travels this lane.
// Comparison ignores case and surrounding whitespace.
func (l Lane) Matches(load Load) bool {
	return normalize(l.OriginZip) == normalize(load.OriginZip) &&
		normalize(l.DestinationZip) == normalize(load.DestinationZip) &&
		normalize(l.EquipmentType) == normalize(load.EquipmentType)
}

func (l Lane) String() string {
	return fmt.Sprintf("%s -> %s (%s)", l.OriginZip, l.DestinationZip, l.EquipmentType)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Carrier is a reference to a carrier plus the contact data needed to notify it.
type Carrier struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// Tier is a rank-ordered group of carriers offered a load simultaneously.
type Tier struct {
	Rank           int           `json:"rank"`
	Carriers       []Carrier     `json:"carriers"`
	ResponseWindow time.Duration `json:"response_window"`
}

// CarrierIDs returns the carrier IDs of the tier in declaration order.
func (t Tier) CarrierIDs() []string {
	ids := make([]string, len(t.Carriers))
	for i, c := range t.Carriers {
		ids[i] = c.ID
	}
	return ids
}

// Waterfall is an ordered sequence of carrier tiers for one lane.
type Waterfall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Lane   Lane            `json:"lane"`
	Tiers  []Tier          `json:"tiers"`
	Status WaterfallStatus `json:"status"`
}

// Clone returns a deep copy of the waterfall.
func (w Waterfall) Clone() Waterfall {
	out := w
	out.Tiers = make([]Tier, len(w.Tiers))
	for i, t := range w.Tiers {
		out.Tiers[i] = t
		out.Tiers[i].Carriers = append([]Carrier(nil), t.Carriers...)
	}
	return out
}

// Load is the external load entity. The engine only reads these fields.
type Load struct {
	ID             string `json:"id" yaml:"id"`
	OriginZip      string `json:"origin_zip" yaml:"origin_zip"`
	DestinationZip string `json:"destination_zip" yaml:"destination_zip"`
	EquipmentType  string `json:"equipment_type" yaml:"equipment_type"`
}

// WaterfallStatus is the lifecycle state of a waterfall definition.
type WaterfallStatus int

const (
	WaterfallDraft WaterfallStatus = iota
	WaterfallActive
	WaterfallRetired
)

var waterfallStatusNames = []string{"draft", "active", "retired"}

func (s WaterfallStatus) String() string {
	return enumName(waterfallStatusNames, int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s WaterfallStatus) MarshalText() ([]byte, error) {
	return marshalEnum(waterfallStatusNames, int(s), "waterfall status")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *WaterfallStatus) UnmarshalText(b []byte) error {
	v, err := ParseWaterfallStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseWaterfallStatus parses a waterfall status name.
func ParseWaterfallStatus(name string) (WaterfallStatus, error) {
	i, err := parseEnum(waterfallStatusNames, name, "waterfall status")
	return WaterfallStatus(i), err
}
