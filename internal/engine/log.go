package engine

import (
	"context"
	"sync"

	"github.com/roach88/waterfall/internal/domain"
)

// Log is the append-only execution log.
//
// Append is the only mutator. Entries are never reordered or pruned by the
// engine; retention is left to the implementation's owner.
type Log interface {
	Append(ctx context.Context, entry domain.LogEntry) error
	// Entries returns a load's entries ordered by seq.
	Entries(ctx context.Context, loadID string) ([]domain.LogEntry, error)
}

// SequencedLog is implemented by logs that outlive the process.
// Restore uses LastSeq to resume the logical clock after a restart.
type SequencedLog interface {
	LastSeq(ctx context.Context) (int64, error)
}

// MemoryLog is an in-process Log.
//
// Thread-safety: safe for concurrent use.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds an entry to the end of the log.
func (l *MemoryLog) Append(ctx context.Context, entry domain.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the entries for a load in append order.
// An empty loadID returns entries not tied to a load.
func (l *MemoryLog) Entries(ctx context.Context, loadID string) ([]domain.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []domain.LogEntry{}
	for _, e := range l.entries {
		if e.LoadID == loadID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every entry in append order.
func (l *MemoryLog) All() []domain.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.LogEntry(nil), l.entries...)
}

// LastSeq returns the highest seq appended so far.
func (l *MemoryLog) LastSeq(ctx context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var last int64
	for _, e := range l.entries {
		if e.Seq > last {
			last = e.Seq
		}
	}
	return last, nil
}

// Persistence stores serializable snapshots of engine state.
// The engine does not mandate a storage technology; store.Store is the
// SQLite implementation.
type Persistence interface {
	SaveExecution(ctx context.Context, rec domain.ExecutionRecord) error
	LoadExecutions(ctx context.Context) ([]domain.ExecutionRecord, error)
	SaveWaterfallStatus(ctx context.Context, waterfallID string, status domain.WaterfallStatus) error
	LoadWaterfallStatuses(ctx context.Context) (map[string]domain.WaterfallStatus, error)
}
