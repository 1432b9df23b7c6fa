package testutil

import (
	"time"

	"github.com/roach88/waterfall/internal/domain"
)

// DefaultLane is the lane used by fixtures unless a test needs another.
var DefaultLane = domain.Lane{OriginZip: "60601", DestinationZip: "30301", EquipmentType: "dry_van"}

// Tier builds a tier whose carriers are named by ID only.
func Tier(rank int, window time.Duration, carrierIDs ...string) domain.Tier {
	carriers := make([]domain.Carrier, len(carrierIDs))
	for i, id := range carrierIDs {
		carriers[i] = domain.Carrier{ID: id, Name: "Carrier " + id}
	}
	return domain.Tier{Rank: rank, Carriers: carriers, ResponseWindow: window}
}

// Waterfall builds a draft waterfall on DefaultLane.
func Waterfall(id string, tiers ...domain.Tier) domain.Waterfall {
	return domain.Waterfall{ID: id, Name: id, Lane: DefaultLane, Tiers: tiers}
}

// Load builds a load on DefaultLane.
func Load(id string) domain.Load {
	return LoadOn(id, DefaultLane)
}

// LoadOn builds a load on the given lane.
func LoadOn(id string, lane domain.Lane) domain.Load {
	return domain.Load{
		ID:             id,
		OriginZip:      lane.OriginZip,
		DestinationZip: lane.DestinationZip,
		EquipmentType:  lane.EquipmentType,
	}
}
