package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/waterfall/internal/domain"
)

const executionColumns = `load_id, id, waterfall_id, load, tier_index, status, result, assigned_carrier, started_at, updated_at, completed_at`

const offerColumns = `id, load_id, carrier_id, tier_rank, sent_at, deadline, state, responded_at, seq`

const logColumns = `seq, load_id, kind, at, tier_rank, carrier_id, offer_id, detail`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// LoadExecutions returns every execution with its offers.
// Results are ordered by started_at, then load_id.
//
// Returns an empty slice (not nil) if the store holds no executions.
func (s *Store) LoadExecutions(ctx context.Context) ([]domain.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		ORDER BY started_at ASC, load_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}

	recs := []domain.ExecutionRecord{}
	index := make(map[string]int)
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[rec.LoadID] = len(recs)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	rows.Close()

	// One connection: the execution cursor must be closed before the
	// offers query runs.
	offers, err := s.queryOffers(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		ORDER BY load_id COLLATE BINARY ASC, position ASC
	`)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		if i, ok := index[o.LoadID]; ok {
			recs[i].Offers = append(recs[i].Offers, o)
		}
	}
	return recs, nil
}

// LoadExecution retrieves a single execution by load ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) LoadExecution(ctx context.Context, loadID string) (domain.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM executions
		WHERE load_id = ?
	`, loadID)
	rec, err := scanExecution(row)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}

	offers, err := s.queryOffers(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE load_id = ?
		ORDER BY position ASC
	`, loadID)
	if err != nil {
		return domain.ExecutionRecord{}, err
	}
	rec.Offers = offers
	return rec, nil
}

// LoadWaterfallStatuses returns the persisted status of every waterfall.
func (s *Store) LoadWaterfallStatuses(ctx context.Context) (map[string]domain.WaterfallStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT waterfall_id, status FROM waterfall_status
		ORDER BY waterfall_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query waterfall status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.WaterfallStatus)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan waterfall status: %w", err)
		}
		status, err := domain.ParseWaterfallStatus(name)
		if err != nil {
			return nil, fmt.Errorf("waterfall %s: %w", id, err)
		}
		out[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waterfall status: %w", err)
	}
	return out, nil
}

// Entries returns the log entries of a load ordered by seq.
// An empty loadID returns entries not tied to any load.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) Entries(ctx context.Context, loadID string) ([]domain.LogEntry, error) {
	return s.queryLog(ctx, `
		SELECT `+logColumns+`
		FROM log_entries
		WHERE load_id = ?
		ORDER BY seq ASC
	`, loadID)
}

func (s *Store) queryOffers(ctx context.Context, query string, args ...any) ([]domain.Offer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	offers := []domain.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return offers, nil
}

func (s *Store) queryLog(ctx context.Context, query string, args ...any) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}
	return entries, nil
}

func scanExecution(row rowScanner) (domain.ExecutionRecord, error) {
	var (
		rec                               domain.ExecutionRecord
		loadJSON, status, result          string
		startedAt, updatedAt, completedAt string
	)
	err := row.Scan(
		&rec.LoadID,
		&rec.ID,
		&rec.WaterfallID,
		&loadJSON,
		&rec.TierIndex,
		&status,
		&result,
		&rec.AssignedCarrier,
		&startedAt,
		&updatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return domain.ExecutionRecord{}, err
	}
	if err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("scan execution: %w", err)
	}

	if rec.Load, err = unmarshalLoad(loadJSON); err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("execution %s: %w", rec.LoadID, err)
	}
	if rec.Status, err = domain.ParseExecutionStatus(status); err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("execution %s: %w", rec.LoadID, err)
	}
	if rec.Result, err = domain.ParseResult(result); err != nil {
		return domain.ExecutionRecord{}, fmt.Errorf("execution %s: %w", rec.LoadID, err)
	}
	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return domain.ExecutionRecord{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.ExecutionRecord{}, err
	}
	if rec.CompletedAt, err = parseTime(completedAt); err != nil {
		return domain.ExecutionRecord{}, err
	}
	rec.Offers = []domain.Offer{}
	return rec, nil
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var (
		o                               domain.Offer
		sentAt, deadline, state, respAt string
	)
	err := row.Scan(
		&o.ID,
		&o.LoadID,
		&o.CarrierID,
		&o.TierRank,
		&sentAt,
		&deadline,
		&state,
		&respAt,
		&o.Seq,
	)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("scan offer: %w", err)
	}
	if o.State, err = domain.ParseOfferState(state); err != nil {
		return domain.Offer{}, fmt.Errorf("offer %s: %w", o.ID, err)
	}
	if o.SentAt, err = parseTime(sentAt); err != nil {
		return domain.Offer{}, err
	}
	if o.Deadline, err = parseTime(deadline); err != nil {
		return domain.Offer{}, err
	}
	if o.RespondedAt, err = parseTime(respAt); err != nil {
		return domain.Offer{}, err
	}
	return o, nil
}

func scanLogEntry(row rowScanner) (domain.LogEntry, error) {
	var (
		e        domain.LogEntry
		kind, at string
	)
	err := row.Scan(
		&e.Seq,
		&e.LoadID,
		&kind,
		&at,
		&e.TierRank,
		&e.CarrierID,
		&e.OfferID,
		&e.Detail,
	)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("scan log entry: %w", err)
	}
	e.Kind = domain.LogKind(kind)
	if e.At, err = parseTime(at); err != nil {
		return domain.LogEntry{}, err
	}
	return e, nil
}
