package store

import (
	"context"
	"fmt"

	"github.com/roach88/waterfall/internal/domain"
)

// SaveExecution writes an execution snapshot and its offers.
//
// The execution row is upserted by load_id and the offers are replaced in a
// single transaction, so a reader never sees an execution with half of its
// offers.
func (s *Store) SaveExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	loadJSON, err := marshalLoad(rec.Load)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	status, err := textOf(rec.Status)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	result, err := textOf(rec.Result)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save execution: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO executions
		(load_id, id, waterfall_id, load, tier_index, status, result, assigned_carrier, started_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(load_id) DO UPDATE SET
			waterfall_id = excluded.waterfall_id,
			load = excluded.load,
			tier_index = excluded.tier_index,
			status = excluded.status,
			result = excluded.result,
			assigned_carrier = excluded.assigned_carrier,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`,
		rec.LoadID,
		rec.ID,
		rec.WaterfallID,
		loadJSON,
		rec.TierIndex,
		status,
		result,
		rec.AssignedCarrier,
		formatTime(rec.StartedAt),
		formatTime(rec.UpdatedAt),
		formatTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save execution %s: %w", rec.LoadID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM offers WHERE load_id = ?`, rec.LoadID); err != nil {
		return fmt.Errorf("save execution %s: clear offers: %w", rec.LoadID, err)
	}

	for i, o := range rec.Offers {
		state, err := textOf(o.State)
		if err != nil {
			return fmt.Errorf("save execution %s: offer %s: %w", rec.LoadID, o.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO offers
			(id, load_id, position, carrier_id, tier_rank, sent_at, deadline, state, responded_at, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			o.ID,
			rec.LoadID,
			i,
			o.CarrierID,
			o.TierRank,
			formatTime(o.SentAt),
			formatTime(o.Deadline),
			state,
			formatTime(o.RespondedAt),
			o.Seq,
		)
		if err != nil {
			return fmt.Errorf("save execution %s: offer %s: %w", rec.LoadID, o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save execution %s: commit: %w", rec.LoadID, err)
	}
	return nil
}

// SaveWaterfallStatus records a waterfall's lifecycle status.
func (s *Store) SaveWaterfallStatus(ctx context.Context, waterfallID string, status domain.WaterfallStatus) error {
	name, err := textOf(status)
	if err != nil {
		return fmt.Errorf("save waterfall status: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO waterfall_status (waterfall_id, status)
		VALUES (?, ?)
		ON CONFLICT(waterfall_id) DO UPDATE SET status = excluded.status
	`, waterfallID, name)
	if err != nil {
		return fmt.Errorf("save waterfall status %s: %w", waterfallID, err)
	}
	return nil
}

// Append inserts a log entry. Entries are immutable: appending a seq that
// already exists fails instead of overwriting it.
func (s *Store) Append(ctx context.Context, entry domain.LogEntry) error {
	if entry.Seq <= 0 {
		return fmt.Errorf("append log entry: seq must be positive, got %d", entry.Seq)
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("append log entry: unknown kind %q", entry.Kind)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries
		(seq, load_id, kind, at, tier_rank, carrier_id, offer_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Seq,
		entry.LoadID,
		string(entry.Kind),
		formatTime(entry.At),
		entry.TierRank,
		entry.CarrierID,
		entry.OfferID,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("append log entry %d: %w", entry.Seq, err)
	}
	return nil
}
