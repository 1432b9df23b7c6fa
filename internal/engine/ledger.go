package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/waterfall/internal/domain"
)

// Ledger holds waterfall definitions and answers which tiers apply to a lane.
//
// Waterfalls are kept in registration order; Match returns the first
// non-retired waterfall whose lane matches a load.
//
// Thread-safety: safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	waterfalls []domain.Waterfall
	index      map[string]int // map[waterfall_id]position
}

// NewLedger creates a ledger preloaded with the given waterfalls.
func NewLedger(waterfalls ...domain.Waterfall) (*Ledger, error) {
	l := &Ledger{index: make(map[string]int)}
	for _, w := range waterfalls {
		if err := l.Register(w); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Register adds a waterfall definition.
//
// Only identity is checked here: the ID must be present and unique. Tier
// structure is validated by TiersFor, so a malformed waterfall surfaces as a
// CONFIGURATION error on the execution that tries to use it.
func (l *Ledger) Register(w domain.Waterfall) error {
	if strings.TrimSpace(w.ID) == "" {
		return invalidArgument("waterfall id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[w.ID]; exists {
		return invalidArgument("duplicate waterfall id %q", w.ID)
	}
	l.index[w.ID] = len(l.waterfalls)
	l.waterfalls = append(l.waterfalls, w.Clone())
	return nil
}

// Get returns a copy of the waterfall with the given ID.
func (l *Ledger) Get(id string) (domain.Waterfall, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return domain.Waterfall{}, false
	}
	return l.waterfalls[i].Clone(), true
}

// Waterfalls returns copies of all waterfalls in registration order.
func (l *Ledger) Waterfalls() []domain.Waterfall {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Waterfall, len(l.waterfalls))
	for i, w := range l.waterfalls {
		out[i] = w.Clone()
	}
	return out
}

// Match returns the first non-retired waterfall serving the load's lane.
func (l *Ledger) Match(load domain.Load) (domain.Waterfall, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, w := range l.waterfalls {
		if w.Status != domain.WaterfallRetired && w.Lane.Matches(load) {
			return w.Clone(), true
		}
	}
	return domain.Waterfall{}, false
}

// TiersFor returns the tiers of the waterfall serving lane, ordered by rank.
// Fails with a CONFIGURATION error if no waterfall serves the lane or its
// tiers are malformed.
func (l *Ledger) TiersFor(lane domain.Lane) ([]domain.Tier, error) {
	l.mu.RLock()
	var (
		found domain.Waterfall
		ok    bool
	)
	for _, w := range l.waterfalls {
		if w.Status != domain.WaterfallRetired && w.Lane.Key() == lane.Key() {
			found, ok = w.Clone(), true
			break
		}
	}
	l.mu.RUnlock()

	if !ok {
		return nil, NewConfigurationError("", "no waterfall for lane %s", lane)
	}
	return OrderedTiers(found)
}

// TiersOf returns the ordered tiers of a waterfall by ID.
func (l *Ledger) TiersOf(waterfallID string) ([]domain.Tier, error) {
	w, ok := l.Get(waterfallID)
	if !ok {
		return nil, NewConfigurationError(waterfallID, "waterfall not registered")
	}
	return OrderedTiers(w)
}

// SetStatus moves a waterfall through its lifecycle and returns the
// previous status. Retired is final.
func (l *Ledger) SetStatus(id string, status domain.WaterfallStatus) (domain.WaterfallStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return 0, notFound("waterfall %q not registered", id)
	}
	prev := l.waterfalls[i].Status
	if prev == domain.WaterfallRetired && status != domain.WaterfallRetired {
		return prev, &Error{Code: ErrCodeInvalidState, Message: "waterfall " + id + " is retired"}
	}
	l.waterfalls[i].Status = status
	return prev, nil
}

// OrderedTiers validates a waterfall's tiers and returns them sorted by rank.
//
// Rules:
//   - at least one tier
//   - ranks are >= 1 and unique
//   - every tier has a positive response window and at least one carrier
//   - carrier IDs are non-empty
func OrderedTiers(w domain.Waterfall) ([]domain.Tier, error) {
	if len(w.Tiers) == 0 {
		return nil, NewConfigurationError(w.ID, "waterfall has no tiers")
	}

	tiers := w.Clone().Tiers
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Rank < tiers[j].Rank
	})

	seen := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if t.Rank < 1 {
			return nil, NewConfigurationError(w.ID, "tier rank %d must be >= 1", t.Rank)
		}
		if seen[t.Rank] {
			return nil, NewConfigurationError(w.ID, "duplicate tier rank %d", t.Rank)
		}
		seen[t.Rank] = true
		if t.ResponseWindow <= 0 {
			return nil, NewConfigurationError(w.ID, "tier %d: response window must be positive", t.Rank)
		}
		if len(t.Carriers) == 0 {
			return nil, NewConfigurationError(w.ID, "tier %d has no carriers", t.Rank)
		}
		for _, c := range t.Carriers {
			if strings.TrimSpace(c.ID) == "" {
				return nil, NewConfigurationError(w.ID, "tier %d: carrier id is required", t.Rank)
			}
		}
	}
	return tiers, nil
}
