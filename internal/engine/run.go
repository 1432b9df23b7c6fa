package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Enqueue submits a command for the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the number of commands waiting for the Run loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run processes queued commands and sweeps for expired offers every sweep
// interval. Blocks until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. Commands are applied in FIFO
// order. A failing command is logged with its context and the loop
// continues; the engine's own log already holds the error as a fact.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "sweep_interval", e.sweepInterval)

	var tick <-chan time.Time
	if e.sweepInterval > 0 {
		ticker := time.NewTicker(e.sweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			if err := e.process(ctx, ev); err != nil {
				logEventError(ev, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-tick:
			if _, err := e.Tick(ctx); err != nil {
				slog.Error("periodic sweep failed", "error", err)
			}

		case <-e.queue.Wait():
			// The signal channel is closed by Stop; an empty queue then
			// means there is nothing left to drain.
			if e.queue.isClosed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the command queue. Run drains what is queued and returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) process(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventStartLoad:
		_, err := e.StartLoad(ctx, ev.Load)
		return err
	case EventResponse:
		_, err := e.RecordResponse(ctx, ev.OfferID, ev.Outcome)
		return err
	case EventPause:
		_, err := e.Pause(ctx, ev.LoadID)
		return err
	case EventResume:
		_, err := e.Resume(ctx, ev.LoadID)
		return err
	case EventTick:
		_, err := e.Tick(ctx)
		return err
	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

// logEventError logs a failed command with enough context to retry it by hand.
func logEventError(ev Event, err error) {
	attrs := []any{"error", err, "event_type", ev.Type.String()}
	switch ev.Type {
	case EventStartLoad:
		attrs = append(attrs, "load_id", ev.Load.ID)
	case EventResponse:
		attrs = append(attrs, "offer_id", ev.OfferID, "outcome", ev.Outcome.String())
	case EventPause, EventResume:
		attrs = append(attrs, "load_id", ev.LoadID)
	}
	if IsStaleResponse(err) {
		slog.Info("command ignored", attrs...)
		return
	}
	slog.Error("command failed", attrs...)
}
