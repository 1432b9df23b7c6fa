package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/domain"
	"github.com/roach88/waterfall/internal/engine"
	"github.com/roach88/waterfall/internal/notify"
	"github.com/roach88/waterfall/internal/testutil"
)

var (
	_ engine.Log          = (*Store)(nil)
	_ engine.SequencedLog = (*Store)(nil)
	_ engine.Persistence  = (*Store)(nil)
)

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	for _, n := range []int64{3, 1, 7} {
		require.NoError(t, s.Append(ctx, domain.LogEntry{Seq: n, Kind: domain.LogOfferSent, At: testutil.Epoch}))
	}
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestOverdueOffers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestExecution("L1")
	rec.Offers[1].State = domain.OfferDeclined
	require.NoError(t, s.SaveExecution(ctx, rec))

	overdue, err := s.OverdueOffers(ctx, testutil.Epoch.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, overdue, "deadline itself is not overdue")

	overdue, err = s.OverdueOffers(ctx, testutil.Epoch.Add(31*time.Minute))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "A", overdue[0].CarrierID)
}

func TestExecutionCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	done := createTestExecution("L2")
	done.Status = domain.StatusCompleted
	done.Result = domain.ResultUnassigned
	require.NoError(t, s.SaveExecution(ctx, createTestExecution("L1")))
	require.NoError(t, s.SaveExecution(ctx, done))

	counts, err := s.ExecutionCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.ExecutionStatus]int{
		domain.StatusWaitingResponse: 1,
		domain.StatusCompleted:       1,
	}, counts)
}

// TestEngineRestart runs an engine on the store, reopens the database and
// continues the same execution from a fresh engine.
func TestEngineRestart(t *testing.T) {
	path := t.TempDir() + "/waterfall.db"
	ctx := context.Background()
	clock := testutil.NewManualClock(testutil.Epoch)
	wf := testutil.Waterfall("wf-1",
		testutil.Tier(1, 30*time.Minute, "A", "B"),
		testutil.Tier(2, 30*time.Minute, "C"),
	)

	open := func() (*Store, *engine.Engine) {
		s, err := Open(path)
		require.NoError(t, err)
		ledger, err := engine.NewLedger(wf)
		require.NoError(t, err)
		eng := engine.New(ledger,
			engine.WithTimeSource(clock),
			engine.WithNotifier(notify.NewRecorder()),
			engine.WithLog(s),
			engine.WithPersistence(s),
			engine.WithSweepInterval(0),
		)
		require.NoError(t, eng.Restore(ctx))
		return s, eng
	}

	s1, eng1 := open()
	_, err := eng1.StartLoad(ctx, testutil.Load("L1"))
	require.NoError(t, err)
	offerA, err := domain.OfferID("L1", "A", 1)
	require.NoError(t, err)
	_, err = eng1.RecordResponse(ctx, offerA, domain.OutcomeDecline)
	require.NoError(t, err)
	lastSeq := eng1.Clock().Current()
	require.NoError(t, s1.Close())

	// Tier 1 deadline passes while the process is down.
	clock.Advance(45 * time.Minute)

	s2, eng2 := open()
	defer s2.Close()
	assert.Equal(t, lastSeq, eng2.Clock().Current())

	w, ok := eng2.Ledger().Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, domain.WaterfallActive, w.Status)

	overdue, err := s2.OverdueOffers(ctx, clock.Now())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "B", overdue[0].CarrierID)

	n, err := eng2.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := s2.LoadExecution(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.TierIndex)
	assert.Equal(t, domain.StatusWaitingResponse, rec.Status)
	c, ok := rec.OfferFor("C")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(30*time.Minute), c.Deadline)

	entries, err := s2.Entries(ctx, "L1")
	require.NoError(t, err)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
	assert.Equal(t, domain.LogOfferSent, entries[len(entries)-1].Kind)
}
