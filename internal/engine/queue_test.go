package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/waterfall/internal/domain"
)

func TestEventQueue_FIFOAndLen(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "empty queue")

	require.True(t, q.Enqueue(Event{Type: EventStartLoad, Load: domain.Load{ID: "L1"}}))
	require.True(t, q.Enqueue(Event{Type: EventPause, LoadID: "L1"}))
	require.True(t, q.Enqueue(Event{Type: EventResume, LoadID: "L1"}))
	assert.Equal(t, 3, q.Len())

	var got []EventType
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		got = append(got, e.Type)
	}
	assert.Equal(t, []EventType{EventStartLoad, EventPause, EventResume}, got)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Type: EventTick})
	}()

	select {
	case <-q.Wait():
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, EventTick, e.Type)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestEventQueue_CloseKeepsQueuedEvents(t *testing.T) {
	q := newEventQueue()
	require.True(t, q.Enqueue(Event{Type: EventTick}))

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		<-q.Wait() // a closed signal channel never blocks
		close(done)
	}()

	q.Close()
	q.Close() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after close")
	}

	assert.True(t, q.isClosed())
	assert.False(t, q.Enqueue(Event{Type: EventTick}), "enqueue after close")

	e, ok := q.TryDequeue()
	require.True(t, ok, "events queued before close are still delivered")
	assert.Equal(t, EventTick, e.Type)
}

func TestEventQueue_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	q := newEventQueue()
	const producers, perProducer = 10, 100

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		g.Go(func() error {
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Event{Type: EventPause, LoadID: fmt.Sprintf("L%d", p), OfferID: fmt.Sprint(i)})
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	next := make(map[string]int)
	n := 0
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		assert.Equal(t, fmt.Sprint(next[e.LoadID]), e.OfferID, "producer %s out of order", e.LoadID)
		next[e.LoadID]++
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}

func TestEventType_String(t *testing.T) {
	tests := map[EventType]string{
		EventStartLoad: "start_load",
		EventResponse:  "response",
		EventPause:     "pause",
		EventResume:    "resume",
		EventTick:      "tick",
		EventType(0):   "unknown",
	}
	for typ, want := range tests {
		assert.Equal(t, want, typ.String())
	}
}
