package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const inFlightCounter = "in_flight"

// AddInFlight adjusts the in-flight task counter by delta and returns the
// new value. The counter never goes below zero; a decrement that would
// undershoot clamps instead, since that means a crash lost an increment.
func (s *Store) AddInFlight(ctx context.Context, delta int) (int, error) {
	ctx = ensureContext(ctx)
	var value int
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters (name, value) VALUES (?, MAX(0, ?))
             ON CONFLICT(name) DO UPDATE SET value = MAX(0, counters.value + ?)`,
			inFlightCounter, delta, delta,
		); err != nil {
			return fmt.Errorf("adjust counter: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT value FROM counters WHERE name = ?", inFlightCounter,
		).Scan(&value); err != nil {
			return fmt.Errorf("read counter: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("in-flight counter: %w", err)
	}
	return value, nil
}

// InFlight returns the current in-flight task count.
func (s *Store) InFlight(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var value int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT value FROM counters WHERE name = ?", inFlightCounter,
		).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("in-flight counter: %w", err)
	}
	return value, nil
}

// ResetInFlight forces the counter back to zero. Called at daemon startup:
// whatever was in flight when the previous process died is gone.
func (s *Store) ResetInFlight(ctx context.Context) error {
	if err := s.execWithoutResultRetry(ensureContext(ctx),
		`INSERT INTO counters (name, value) VALUES (?, 0)
         ON CONFLICT(name) DO UPDATE SET value = 0`,
		inFlightCounter,
	); err != nil {
		return fmt.Errorf("reset in-flight counter: %w", err)
	}
	return nil
}
