// Package daemon hosts the ingestion daemon: the single-instance lock, the
// admission-controlled dispatch loop, the task executor, and the HTTP
// control surface.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scrivener/internal/config"
	"scrivener/internal/logging"
	"scrivener/internal/queue"
)

// Daemon coordinates the dispatch loop and API server and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	executor *Executor

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, executor *Executor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || executor == nil {
		return nil, errors.New("daemon requires config, store, and executor")
	}
	if logger == nil {
		logger = slog.Default()
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		executor: executor,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, prepares the durable state, and launches
// the dispatch loop and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scrivener daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.prepareState(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return err
	}
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return err
	}

	go d.runLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("scrivener daemon started",
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()),
	)
	return nil
}

// prepareState resets the in-flight counter, re-persists admission defaults
// when the stored state is missing or invalid, and clears the queue unless
// persistent-queue mode is on.
func (d *Daemon) prepareState(ctx context.Context) error {
	if err := d.store.ResetInFlight(ctx); err != nil {
		return err
	}
	state, err := d.store.LoadDaemonState(ctx)
	if err != nil {
		return err
	}
	if state == nil || state.Validate() != nil {
		defaults := queue.DefaultDaemonState(d.cfg.Daemon.MaxConcurrentTasks)
		if err := d.store.SaveDaemonState(ctx, defaults); err != nil {
			return err
		}
		d.logger.Info("admission state initialized to defaults",
			logging.Int("max_concurrent_tasks", *defaults.MaxConcurrentTasks))
	}
	if !d.cfg.Daemon.PersistQueue {
		if err := d.store.Clear(ctx); err != nil {
			return err
		}
		d.logger.Info("queue cleared on startup")
	}
	return nil
}

// Stop halts the dispatch loop and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scrivener daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
