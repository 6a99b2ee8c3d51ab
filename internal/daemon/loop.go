package daemon

import (
	"context"
	"time"

	"scrivener/internal/logging"
	"scrivener/internal/queue"
)

// runLoop is the dispatch loop: warm up, then repeatedly check admission,
// pop, and spawn. Every error is logged and absorbed; only context
// cancellation ends the loop.
func (d *Daemon) runLoop(ctx context.Context) {
	warmup := time.Duration(d.cfg.Daemon.WarmupSeconds) * time.Second
	backoff := time.Duration(d.cfg.Daemon.BackoffSeconds) * time.Second
	yield := time.Duration(d.cfg.Daemon.DispatchYieldMS) * time.Millisecond

	if !sleepCtx(ctx, warmup) {
		return
	}
	d.logger.Info("dispatch loop running")

	for {
		if ctx.Err() != nil {
			return
		}

		admitted, err := d.checkAdmission(ctx)
		if err != nil {
			d.logger.Error("admission check failed", logging.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}
		if !admitted {
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}

		t, err := d.store.Pop(ctx)
		if err != nil {
			d.logger.Error("queue pop failed", logging.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}
		if t == nil {
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}

		d.logger.Info("dispatching task",
			logging.String(logging.FieldTaskID, t.ID.String()),
			logging.String(logging.FieldTaskType, string(t.Type)),
			logging.String(logging.FieldLane, string(queue.LaneFor(t.Priority))),
		)
		go d.executor.Execute(ctx, t)

		// Give the spawned execution a moment to bump the counter before
		// the next admission check reads it.
		if !sleepCtx(ctx, yield) {
			return
		}
	}
}

// checkAdmission reads the admission state and in-flight count fresh each
// tick. Missing or invalid stored state falls back to defaults and is
// re-persisted.
func (d *Daemon) checkAdmission(ctx context.Context) (bool, error) {
	state, err := d.store.LoadDaemonState(ctx)
	if err != nil {
		return false, err
	}
	if state == nil || state.Validate() != nil {
		defaults := queue.DefaultDaemonState(d.cfg.Daemon.MaxConcurrentTasks)
		if err := d.store.SaveDaemonState(ctx, defaults); err != nil {
			return false, err
		}
		state = &defaults
	}
	if !*state.Enabled {
		return false, nil
	}

	inFlight, err := d.store.InFlight(ctx)
	if err != nil {
		return false, err
	}
	return inFlight < *state.MaxConcurrentTasks, nil
}

// sleepCtx sleeps for the given duration, returning false when the context
// was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
