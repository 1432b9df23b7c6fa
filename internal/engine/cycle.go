package engine

import "sync"

// TierGuard enforces strict tier progression per load.
//
// Escalation must visit tiers in increasing rank order, one at a time:
//
//	tier 0 → tier 1 → tier 2   ok
//	tier 0 → tier 2            skip  (rejected)
//	tier 0 → tier 1 → tier 1   revisit (rejected)
//
// The guard keeps the last activated tier index per load. Advance succeeds
// only for last+1 (or 0 for a load with no history).
//
// Thread-safety: safe for concurrent use.
type TierGuard struct {
	mu   sync.Mutex
	last map[string]int // map[load_id]tier_index
}

// NewTierGuard creates an empty guard.
func NewTierGuard() *TierGuard {
	return &TierGuard{last: make(map[string]int)}
}

// Advance records activation of tierIndex for a load.
// Returns an INVALID_STATE error if the activation would skip or revisit a tier.
func (g *TierGuard) Advance(loadID string, tierIndex int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	want := 0
	if last, ok := g.last[loadID]; ok {
		want = last + 1
	}
	if tierIndex != want {
		return invalidState(loadID, "tier %d activated out of order (next allowed %d)", tierIndex, want)
	}
	g.last[loadID] = tierIndex
	return nil
}

// Seed sets the last activated tier for a load restored from persistence.
func (g *TierGuard) Seed(loadID string, tierIndex int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[loadID] = tierIndex
}

// Last returns the last activated tier index for a load.
func (g *TierGuard) Last(loadID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx, ok := g.last[loadID]
	return idx, ok
}

// Clear removes the history for a load.
// Called when an execution completes.
func (g *TierGuard) Clear(loadID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, loadID)
}

// Size returns the number of loads with tracked history.
func (g *TierGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.last)
}
