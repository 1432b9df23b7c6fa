package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/waterfall/internal/domain"
)

// LastSeq returns the highest seq in the log.
// Used on restart to resume the logical clock from the correct position.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM log_entries
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// OverdueOffers returns pending offers whose deadline is before now,
// ordered by deadline. After a restart these are the offers the first
// sweep will expire.
func (s *Store) OverdueOffers(ctx context.Context, now time.Time) ([]domain.Offer, error) {
	return s.queryOffers(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE state = 'pending' AND deadline < ?
		ORDER BY deadline ASC, id COLLATE BINARY ASC
	`, formatTime(now))
}

// ExecutionCounts returns how many executions are in each status.
func (s *Store) ExecutionCounts(ctx context.Context) (map[domain.ExecutionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM executions GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ExecutionStatus]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan execution count: %w", err)
		}
		status, err := domain.ParseExecutionStatus(name)
		if err != nil {
			return nil, err
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution counts: %w", err)
	}
	return out, nil
}
