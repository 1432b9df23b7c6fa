package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterfall/internal/domain"
)

func testOffer(carrierID string) domain.Offer {
	return domain.Offer{
		ID:        "offer-" + carrierID,
		LoadID:    "L1",
		CarrierID: carrierID,
		TierRank:  1,
		Deadline:  time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC),
	}
}

func TestLogSender_LogsOffer(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := s.Send(context.Background(), domain.Carrier{ID: "A", Email: "ops@a.example"}, testOffer("A"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"carrier_id":"A"`)
	assert.Contains(t, out, `"email":"ops@a.example"`)
	assert.Contains(t, out, `"deadline":"2025-01-06T09:30:00Z"`)
}

func TestLogSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLogSender(nil).Send(ctx, domain.Carrier{ID: "A"}, testOffer("A"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorder_RecordsAndFails(t *testing.T) {
	r := NewRecorder("B")
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, domain.Carrier{ID: "A"}, testOffer("A")))
	err := r.Send(ctx, domain.Carrier{ID: "B"}, testOffer("B"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier B")

	deliveries := r.Deliveries()
	require.Len(t, deliveries, 2)
	assert.False(t, deliveries[0].Failed)
	assert.True(t, deliveries[1].Failed)
	assert.Equal(t, 1, r.SentTo("A"))
	assert.Equal(t, 0, r.SentTo("C"))
}

func TestRecorder_FailCarrierLater(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, domain.Carrier{ID: "A"}, testOffer("A")))
	r.FailCarrier("A")
	assert.Error(t, r.Send(ctx, domain.Carrier{ID: "A"}, testOffer("A")))
}
