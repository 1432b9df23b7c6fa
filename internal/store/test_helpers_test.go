package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestExecution creates an execution waiting on two tier-1 offers.
func createTestExecution(loadID string) domain.ExecutionRecord {
	start := testutil.Epoch
	deadline := start.Add(30 * time.Minute)
	return domain.ExecutionRecord{
		ID:          "exec-" + loadID,
		LoadID:      loadID,
		WaterfallID: "wf-1",
		Load:        testutil.Load(loadID),
		TierIndex:   0,
		Status:      domain.StatusWaitingResponse,
		Result:      domain.ResultNone,
		Offers: []domain.Offer{
			{ID: loadID + "-A", LoadID: loadID, CarrierID: "A", TierRank: 1, SentAt: start, Deadline: deadline, State: domain.OfferPending, Seq: 2},
			{ID: loadID + "-B", LoadID: loadID, CarrierID: "B", TierRank: 1, SentAt: start, Deadline: deadline, State: domain.OfferPending, Seq: 3},
		},
		StartedAt: start,
		UpdatedAt: start,
	}
}
