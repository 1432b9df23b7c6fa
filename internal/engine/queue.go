package engine

import (
	"sync"

	"github.com/roach88/waterfall/internal/domain"
)

// EventType distinguishes queued commands.
type EventType int

const (
	// EventStartLoad starts a waterfall execution for Event.Load.
	EventStartLoad EventType = iota + 1
	// EventResponse records Event.Outcome for Event.OfferID.
	EventResponse
	// EventPause pauses the execution for Event.LoadID.
	EventPause
	// EventResume resumes the execution for Event.LoadID.
	EventResume
	// EventTick sweeps all executions for expired offers.
	EventTick
)

func (t EventType) String() string {
	switch t {
	case EventStartLoad:
		return "start_load"
	case EventResponse:
		return "response"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is a command submitted to the Run loop.
type Event struct {
	Type    EventType
	Load    domain.Load
	LoadID  string
	OfferID string
	Outcome domain.Outcome
}

// eventQueue is an unbounded FIFO of commands.
//
// Producers (load feeds, response webhooks) never block on the Run loop.
// ready carries at most one pending wake-up and is closed by Close, so Run
// can select on it together with its context and ticker.
type eventQueue struct {
	mu     sync.Mutex
	buf    []Event
	head   int
	closed bool
	ready  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		buf:   make([]Event, 0, 64),
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends ev. Safe for concurrent use; returns false once closed.
func (q *eventQueue) Enqueue(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.buf = append(q.buf, ev)
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest command without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.buf) {
		return Event{}, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = Event{} // release load data
	q.head++
	if q.head == len(q.buf) {
		q.buf, q.head = q.buf[:0], 0
	}
	return ev, true
}

// Wait returns the wake-up channel. A receive means commands may be queued
// or the queue was closed; callers follow up with TryDequeue.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.ready
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// Close rejects further commands and wakes every waiter. Commands already
// queued remain available to TryDequeue.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ready)
	}
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
