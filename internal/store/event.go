package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sequenceCounter hands out the global monotonic sequence shared by every
// event table. Each kind lives in its own table, so per-table ids cannot
// order events across kinds; listings sort by this number instead.
//
// Raw SQL: the builder has no notion of an atomic counter. The single
// UPDATE ... RETURNING statement is atomic at the database level. Next must
// not take a process-local lock: a Tx may hold the pool's only connection
// while calling it.
type sequenceCounter struct{}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the counter.
// q may be a transaction so the number is rolled back with it.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
