package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DaemonState is the admission-control configuration persisted alongside the
// queue. All fields are pointers so a partial update can distinguish "leave
// this alone" (nil) from an explicit value.
type DaemonState struct {
	Enabled                   *bool `json:"enabled,omitempty"`
	MaxConcurrentTasks        *int  `json:"max_concurrent_tasks,omitempty"`
	InsertFollowupAfterIngest *bool `json:"insert_followup_after_ingest,omitempty"`
	InsertFollowupAtFront     *bool `json:"insert_followup_at_front,omitempty"`
}

// DefaultDaemonState returns the startup admission configuration.
func DefaultDaemonState(maxConcurrent int) DaemonState {
	enabled := true
	followup := true
	atFront := false
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return DaemonState{
		Enabled:                   &enabled,
		MaxConcurrentTasks:        &maxConcurrent,
		InsertFollowupAfterIngest: &followup,
		InsertFollowupAtFront:     &atFront,
	}
}

// FullyDefined reports whether every field carries a value.
func (s DaemonState) FullyDefined() bool {
	return s.Enabled != nil &&
		s.MaxConcurrentTasks != nil &&
		s.InsertFollowupAfterIngest != nil &&
		s.InsertFollowupAtFront != nil
}

// Merge overlays the patch onto s: nil patch fields keep the existing value.
func (s DaemonState) Merge(patch DaemonState) DaemonState {
	out := s
	if patch.Enabled != nil {
		out.Enabled = patch.Enabled
	}
	if patch.MaxConcurrentTasks != nil {
		out.MaxConcurrentTasks = patch.MaxConcurrentTasks
	}
	if patch.InsertFollowupAfterIngest != nil {
		out.InsertFollowupAfterIngest = patch.InsertFollowupAfterIngest
	}
	if patch.InsertFollowupAtFront != nil {
		out.InsertFollowupAtFront = patch.InsertFollowupAtFront
	}
	return out
}

// Validate rejects states that would wedge the daemon.
func (s DaemonState) Validate() error {
	if !s.FullyDefined() {
		return errors.New("daemon state: all fields must be defined")
	}
	if *s.MaxConcurrentTasks < 1 {
		return errors.New("daemon state: max_concurrent_tasks must be at least 1")
	}
	return nil
}

// LoadDaemonState reads the persisted admission state. Returns (nil, nil)
// when no state has been saved yet; a corrupt stored payload is also treated
// as absent so startup can fall back to defaults and re-persist.
func (s *Store) LoadDaemonState(ctx context.Context) (*DaemonState, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT payload FROM daemon_state WHERE id = 1").Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daemon state: %w", err)
	}
	var state DaemonState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, nil
	}
	if !state.FullyDefined() {
		return nil, nil
	}
	return &state, nil
}

// SaveDaemonState persists the admission state. The state must be fully
// defined; partial states are never written.
func (s *Store) SaveDaemonState(ctx context.Context, state DaemonState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("save daemon state: %w", err)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save daemon state: marshal: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(ensureContext(ctx),
		`INSERT INTO daemon_state (id, payload, updated_at) VALUES (1, ?, ?)
         ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), now,
	); err != nil {
		return fmt.Errorf("save daemon state: %w", err)
	}
	return nil
}
