package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/waterfall/internal/domain"
)

// DefaultSweepInterval is how often Run sweeps for expired offers.
const DefaultSweepInterval = 30 * time.Second

// Engine runs carrier waterfalls for loads.
//
// Each load has one execution. All mutations of an execution happen under
// that execution's mutex, so responses and escalation for one load are
// serialized while different loads proceed in parallel.
//
// Lock order: an execution's mutex may be held while taking e.mu or
// e.offerMu, never the other way around.
type Engine struct {
	mu    sync.RWMutex
	execs map[string]*execution // map[load_id]

	offerMu sync.RWMutex
	offers  map[string]string // map[offer_id]load_id

	ledger   *Ledger
	guard    *TierGuard
	clock    *Clock
	now      TimeSource
	ids      IDGenerator
	notifier Notifier
	log      Log
	persist  Persistence
	queue    *eventQueue

	sweepInterval time.Duration
}

// execution is the engine's private state for one load.
type execution struct {
	mu    sync.Mutex
	rec   domain.ExecutionRecord
	tiers []domain.Tier // ordered; nil until a waterfall matched
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeSource sets the wall clock used for deadlines.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) { e.now = ts }
}

// WithIDGenerator sets the execution ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithNotifier sets the carrier notification sender.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLog sets the execution log. Defaults to a MemoryLog.
func WithLog(l Log) Option {
	return func(e *Engine) { e.log = l }
}

// WithPersistence sets where execution snapshots are saved.
// Without it the engine keeps state in memory only.
func WithPersistence(p Persistence) Option {
	return func(e *Engine) { e.persist = p }
}

// WithSweepInterval sets how often Run sweeps for expired offers.
// Zero disables the periodic sweep; deadlines are then checked lazily only.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) { e.sweepInterval = d }
}

// New creates an Engine over the given ledger.
func New(ledger *Ledger, opts ...Option) *Engine {
	e := &Engine{
		execs:         make(map[string]*execution),
		offers:        make(map[string]string),
		ledger:        ledger,
		guard:         NewTierGuard(),
		clock:         NewClock(),
		now:           SystemTime{},
		ids:           UUIDv7Generator{},
		notifier:      NopNotifier{},
		log:           NewMemoryLog(),
		queue:         newEventQueue(),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the engine's waterfall ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Log returns the engine's execution log.
func (e *Engine) Log() Log {
	return e.log
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// StartLoad begins a waterfall execution for a load.
//
// If a waterfall serves the load's lane the execution enters processing,
// tier 1 is dispatched and the execution waits for responses. If no
// waterfall matches the execution stays idle until RegisterWaterfall adds
// one that does.
//
// A CONFIGURATION error aborts only this execution: it is completed with
// result failed and the error is returned alongside the record.
func (e *Engine) StartLoad(ctx context.Context, load domain.Load) (domain.ExecutionRecord, error) {
	load.ID = strings.TrimSpace(load.ID)
	if load.ID == "" {
		err := invalidArgument("load id is required")
		e.appendError(ctx, "", domain.LogCommandRejected, err)
		return domain.ExecutionRecord{}, err
	}

	now := e.now.Now()
	x := &execution{rec: domain.ExecutionRecord{
		ID:        e.ids.Generate(),
		LoadID:    load.ID,
		Load:      load,
		Status:    domain.StatusIdle,
		Offers:    []domain.Offer{},
		StartedAt: now,
		UpdatedAt: now,
	}}

	e.mu.Lock()
	if _, exists := e.execs[load.ID]; exists {
		e.mu.Unlock()
		err := invalidState(load.ID, "load already has an execution")
		e.appendError(ctx, load.ID, domain.LogCommandRejected, err)
		return domain.ExecutionRecord{}, err
	}
	e.execs[load.ID] = x
	e.mu.Unlock()

	x.mu.Lock()
	defer x.mu.Unlock()

	slog.Info("execution created",
		"load_id", load.ID,
		"execution_id", x.rec.ID,
		"lane", domain.Lane{OriginZip: load.OriginZip, DestinationZip: load.DestinationZip, EquipmentType: load.EquipmentType}.String(),
	)

	startErr := e.start(ctx, x)
	if err := e.save(ctx, x); err != nil {
		return x.rec.Clone(), err
	}
	return x.rec.Clone(), startErr
}

// start matches an idle execution against the ledger and activates tier 1.
// Caller holds x.mu.
func (e *Engine) start(ctx context.Context, x *execution) error {
	w, ok := e.ledger.Match(x.rec.Load)
	if !ok {
		slog.Info("no waterfall matches load, execution idle", "load_id", x.rec.LoadID)
		return nil
	}

	x.rec.WaterfallID = w.ID
	x.rec.Status = domain.StatusProcessing
	x.rec.UpdatedAt = e.now.Now()

	tiers, err := OrderedTiers(w)
	if err != nil {
		return e.fail(ctx, x, err)
	}
	x.tiers = tiers

	if w.Status == domain.WaterfallDraft {
		if err := e.setWaterfallStatus(ctx, w.ID, domain.WaterfallActive, x.rec.LoadID); err != nil {
			slog.Error("waterfall activation failed", "waterfall_id", w.ID, "error", err)
		}
	}

	return e.activateTier(ctx, x, 0)
}

// Execution returns a snapshot of a load's execution.
// Overdue offers are expired first, so the snapshot reflects the current time.
func (e *Engine) Execution(ctx context.Context, loadID string) (domain.ExecutionRecord, error) {
	x, err := e.lookup(ctx, loadID)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if expired := e.sweep(ctx, x, e.now.Now()); len(expired) > 0 {
		if err := e.save(ctx, x); err != nil {
			return x.rec.Clone(), err
		}
	}
	return x.rec.Clone(), nil
}

// Executions returns snapshots of every execution ordered by start time,
// then load ID. Unlike Execution it does not sweep.
func (e *Engine) Executions() []domain.ExecutionRecord {
	e.mu.RLock()
	xs := make([]*execution, 0, len(e.execs))
	for _, x := range e.execs {
		xs = append(xs, x)
	}
	e.mu.RUnlock()

	out := make([]domain.ExecutionRecord, 0, len(xs))
	for _, x := range xs {
		x.mu.Lock()
		out = append(out, x.rec.Clone())
		x.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].LoadID < out[j].LoadID
	})
	return out
}

// RegisterWaterfall adds a waterfall and starts any idle executions it serves.
func (e *Engine) RegisterWaterfall(ctx context.Context, w domain.Waterfall) error {
	if err := e.ledger.Register(w); err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			e.appendError(ctx, "", domain.LogCommandRejected, ee)
		}
		return fmt.Errorf("register waterfall: %w", err)
	}
	slog.Info("waterfall registered", "waterfall_id", w.ID, "lane", w.Lane.String(), "tiers", len(w.Tiers))

	for _, x := range e.snapshotExecutions() {
		x.mu.Lock()
		if x.rec.Status == domain.StatusIdle {
			_ = e.start(ctx, x)
			if err := e.save(ctx, x); err != nil {
				x.mu.Unlock()
				return err
			}
		}
		x.mu.Unlock()
	}
	return nil
}

// RetireWaterfall deactivates a waterfall. New loads no longer match it;
// executions already running on it continue.
func (e *Engine) RetireWaterfall(ctx context.Context, waterfallID string) error {
	return e.setWaterfallStatus(ctx, waterfallID, domain.WaterfallRetired, "")
}

func (e *Engine) setWaterfallStatus(ctx context.Context, id string, status domain.WaterfallStatus, loadID string) error {
	prev, err := e.ledger.SetStatus(id, status)
	if err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			e.appendError(ctx, loadID, domain.LogCommandRejected, ee)
		}
		return err
	}
	if prev == status {
		return nil
	}

	kind := domain.LogWaterfallActivated
	if status == domain.WaterfallRetired {
		kind = domain.LogWaterfallRetired
	}
	e.append(ctx, domain.LogEntry{LoadID: loadID, Kind: kind, Detail: id})
	slog.Info("waterfall status changed", "waterfall_id", id, "from", prev.String(), "to", status.String())

	if e.persist != nil {
		if err := e.persist.SaveWaterfallStatus(ctx, id, status); err != nil {
			return fmt.Errorf("save waterfall status %s: %w", id, err)
		}
	}
	return nil
}

// Restore rebuilds in-memory state from persistence: waterfall statuses,
// executions, the offer index, tier guards and the log clock.
// Must be called before any other operation.
func (e *Engine) Restore(ctx context.Context) error {
	if e.persist == nil {
		return nil
	}

	statuses, err := e.persist.LoadWaterfallStatuses(ctx)
	if err != nil {
		return fmt.Errorf("restore waterfall statuses: %w", err)
	}
	for id, status := range statuses {
		if _, ok := e.ledger.Get(id); !ok {
			slog.Warn("persisted waterfall not in ledger", "waterfall_id", id)
			continue
		}
		if _, err := e.ledger.SetStatus(id, status); err != nil {
			return fmt.Errorf("restore waterfall %s: %w", id, err)
		}
	}

	recs, err := e.persist.LoadExecutions(ctx)
	if err != nil {
		return fmt.Errorf("restore executions: %w", err)
	}

	e.mu.Lock()
	e.offerMu.Lock()
	for _, rec := range recs {
		x := &execution{rec: rec.Clone()}
		if rec.WaterfallID != "" && !rec.Status.Terminal() {
			tiers, err := e.ledger.TiersOf(rec.WaterfallID)
			if err == nil && rec.TierIndex >= len(tiers) {
				err = NewConfigurationError(rec.WaterfallID, "execution is at tier index %d but the waterfall has %d tiers", rec.TierIndex, len(tiers))
			}
			if err != nil {
				// Left without tiers, the next evaluation fails the execution.
				slog.Warn("restored execution has no usable waterfall",
					"load_id", rec.LoadID, "waterfall_id", rec.WaterfallID, "error", err)
				tiers = nil
			}
			x.tiers = tiers
			e.guard.Seed(rec.LoadID, rec.TierIndex)
		}
		e.execs[rec.LoadID] = x
		for _, o := range rec.Offers {
			e.offers[o.ID] = rec.LoadID
		}
	}
	e.offerMu.Unlock()
	e.mu.Unlock()

	if sl, ok := e.log.(SequencedLog); ok {
		last, err := sl.LastSeq(ctx)
		if err != nil {
			return fmt.Errorf("restore log sequence: %w", err)
		}
		e.clock = NewClockAt(last)
	}

	slog.Info("engine restored", "executions", len(recs), "waterfalls", len(statuses))
	return nil
}

// lookup finds the execution of a load. A miss is logged as a rejected
// command outside any load's history.
func (e *Engine) lookup(ctx context.Context, loadID string) (*execution, error) {
	e.mu.RLock()
	x, ok := e.execs[loadID]
	e.mu.RUnlock()
	if !ok {
		err := notFound("no execution for load %q", loadID)
		err.LoadID = loadID
		e.appendError(ctx, "", domain.LogCommandRejected, err)
		return nil, err
	}
	return x, nil
}

func (e *Engine) snapshotExecutions() []*execution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	xs := make([]*execution, 0, len(e.execs))
	for _, x := range e.execs {
		xs = append(xs, x)
	}
	sort.Slice(xs, func(i, j int) bool {
		return xs[i].rec.LoadID < xs[j].rec.LoadID
	})
	return xs
}

// append stamps an entry with the next seq and the current time and writes
// it to the log. Log failures are reported but never abort the transition
// being recorded.
func (e *Engine) append(ctx context.Context, entry domain.LogEntry) int64 {
	entry.Seq = e.clock.Next()
	if entry.At.IsZero() {
		entry.At = e.now.Now()
	}
	if err := e.log.Append(ctx, entry); err != nil {
		slog.Error("execution log append failed",
			"error", err,
			"load_id", entry.LoadID,
			"kind", string(entry.Kind),
			"seq", entry.Seq,
		)
	}
	return entry.Seq
}

// appendError records an engine error as a log fact before it propagates.
func (e *Engine) appendError(ctx context.Context, loadID string, kind domain.LogKind, err *Error) {
	e.append(ctx, domain.LogEntry{
		LoadID:    loadID,
		Kind:      kind,
		OfferID:   err.OfferID,
		CarrierID: err.CarrierID,
		Detail:    err.Error(),
	})
}

// save writes the execution snapshot to persistence. Caller holds x.mu.
func (e *Engine) save(ctx context.Context, x *execution) error {
	if e.persist == nil {
		return nil
	}
	if err := e.persist.SaveExecution(ctx, x.rec.Clone()); err != nil {
		return fmt.Errorf("save execution %s: %w", x.rec.LoadID, err)
	}
	return nil
}
