package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scrivener/internal/task"
)

// Lane names the two queue lanes. The priority lane is always drained before
// the background lane.
type Lane string

const (
	LanePriority   Lane = "priority"
	LaneBackground Lane = "background"
)

// LaneFor maps a task's priority flag onto its lane.
func LaneFor(priority bool) Lane {
	if priority {
		return LanePriority
	}
	return LaneBackground
}

// Push appends the task to the back of its lane and records its status. The
// position is claimed inside the insert itself so concurrent pushers never
// race for a slot.
func (s *Store) Push(ctx context.Context, t *task.Task) error {
	return s.push(ctx, t, false)
}

// PushFront places the task at the front of its lane, ahead of everything
// already waiting there.
func (s *Store) PushFront(ctx context.Context, t *task.Task) error {
	return s.push(ctx, t, true)
}

func (s *Store) push(ctx context.Context, t *task.Task, front bool) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("push task: marshal: %w", err)
	}
	lane := LaneFor(t.Priority)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	posExpr := "(SELECT COALESCE(MAX(pos), 0) + 1 FROM task_queue WHERE lane = ?)"
	if front {
		posExpr = "(SELECT COALESCE(MIN(pos), 0) - 1 FROM task_queue WHERE lane = ?)"
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("push task: begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_queue (task_id, lane, pos, payload, enqueued_at)
             VALUES (?, ?, `+posExpr+`, ?, ?)`,
			t.ID.String(), string(lane), string(lane), string(payload), now,
		); err != nil {
			return fmt.Errorf("push task: insert: %w", err)
		}
		if err := upsertStatusTx(ctx, tx, t.ID, payload, now); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("push task: commit: %w", err)
		}
		return nil
	})
}

// Pop removes and returns the next task: the oldest entry in the priority
// lane, or the oldest background entry when the priority lane is empty.
// Returns (nil, nil) when both lanes are empty.
func (s *Store) Pop(ctx context.Context) (*task.Task, error) {
	ctx = ensureContext(ctx)
	var popped *task.Task
	err := retryOnBusy(ctx, func() error {
		popped = nil
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("pop task: begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var (
			lane    string
			pos     int64
			payload string
		)
		row := tx.QueryRowContext(ctx,
			`SELECT lane, pos, payload FROM task_queue
             ORDER BY CASE lane WHEN 'priority' THEN 0 ELSE 1 END, pos
             LIMIT 1`)
		if err := row.Scan(&lane, &pos, &payload); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return tx.Commit()
			}
			return fmt.Errorf("pop task: select: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_queue WHERE lane = ? AND pos = ?", lane, pos); err != nil {
			return fmt.Errorf("pop task: delete: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("pop task: commit: %w", err)
		}

		var t task.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return fmt.Errorf("pop task: unmarshal: %w", err)
		}
		popped = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return popped, nil
}

// Len returns the total number of queued tasks across both lanes.
func (s *Store) Len(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM task_queue").Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return count, nil
}

// LaneCounts returns the queued task counts per lane.
func (s *Store) LaneCounts(ctx context.Context) (priority, background int, err error) {
	ctx = ensureContext(ctx)
	err = retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT lane, COUNT(1) FROM task_queue GROUP BY lane")
		if err != nil {
			return err
		}
		defer rows.Close()
		priority, background = 0, 0
		for rows.Next() {
			var lane string
			var count int
			if err := rows.Scan(&lane, &count); err != nil {
				return err
			}
			switch Lane(lane) {
			case LanePriority:
				priority = count
			case LaneBackground:
				background = count
			}
		}
		return rows.Err()
	})
	if err != nil {
		return 0, 0, fmt.Errorf("lane counts: %w", err)
	}
	return priority, background, nil
}

// Clear drops all queued tasks from both lanes. Task statuses survive so
// callers can still resolve status URLs for work that was discarded.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithoutResultRetry(ctx, "DELETE FROM task_queue"); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// UpsertTask writes the task's current state into the status map.
func (s *Store) UpsertTask(ctx context.Context, t *task.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("upsert task: marshal: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(ensureContext(ctx),
		`INSERT INTO task_status (task_id, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(task_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		t.ID.String(), string(payload), now,
	); err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// GetTask returns the latest known state of a task, or (nil, nil) when the
// id has never been seen.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM task_status WHERE task_id = ?", id.String(),
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var t task.Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("get task: unmarshal: %w", err)
	}
	return &t, nil
}

// ListTasks returns up to limit task statuses, most recently updated first.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]*task.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx = ensureContext(ctx)
	var tasks []*task.Task
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT payload FROM task_status ORDER BY updated_at DESC LIMIT ?", limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		tasks = tasks[:0]
		for rows.Next() {
			var payload string
			if err := rows.Scan(&payload); err != nil {
				return err
			}
			var t task.Task
			if err := json.Unmarshal([]byte(payload), &t); err != nil {
				return fmt.Errorf("unmarshal task: %w", err)
			}
			tasks = append(tasks, &t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func upsertStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, payload []byte, now string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_status (task_id, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(task_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id.String(), string(payload), now,
	); err != nil {
		return fmt.Errorf("record task status: %w", err)
	}
	return nil
}
