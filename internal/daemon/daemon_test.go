package daemon

import (
	"context"
	"testing"
	"time"

	"scrivener/internal/logging"
	"scrivener/internal/queue"
	"scrivener/internal/task"
	"scrivener/internal/testsupport"
)

func newTestDaemon(t *testing.T) (*Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.BackoffSeconds = 1
	cfg.Daemon.DispatchYieldMS = 1
	store := testsupport.MustOpenStore(t, cfg)
	exec := NewExecutor(store, &stubIngest{}, &stubProcessor{}, &stubUpserter{}, logging.NewNop())
	d, err := New(cfg, store, exec, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, store
}

func TestStartAcquiresLockAndInitializesState(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Error("daemon not running after start")
	}
	state, err := store.LoadDaemonState(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state == nil || !*state.Enabled {
		t.Errorf("state after start = %+v, want enabled defaults", state)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	exec := NewExecutor(d.store, &stubIngest{}, &stubProcessor{}, &stubUpserter{}, logging.NewNop())
	fresh, err := New(d.cfg, d.store, exec, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fresh.Start(ctx); err == nil {
		fresh.Stop()
		t.Fatal("second daemon instance started despite lock")
	}
}

func TestDisabledDaemonNeverPops(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disabled := queue.DefaultDaemonState(4)
	off := false
	disabled.Enabled = &off

	tk := task.NewScrapeIngest(task.ScrapeRequest{FileURL: "https://example.com/a.pdf"},
		true, task.InteractInsert, "http://localhost:7966")
	if err := store.Push(ctx, tk); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := store.SaveDaemonState(ctx, disabled); err != nil {
		t.Fatalf("save state: %v", err)
	}

	// Queue was pushed before Start; persistent mode keeps it across startup.
	d.cfg.Daemon.PersistQueue = true
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	time.Sleep(150 * time.Millisecond)

	length, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if length != 1 {
		t.Errorf("queue length = %d, want 1 (disabled daemon must not pop)", length)
	}
}

func TestStartupClearsQueueByDefault(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	tk := task.NewScrapeIngest(task.ScrapeRequest{FileURL: "https://example.com/a.pdf"},
		false, task.InteractInsert, "http://localhost:7966")
	if err := store.Push(ctx, tk); err != nil {
		t.Fatalf("push: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	length, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if length != 0 {
		t.Errorf("queue length after startup = %d, want 0", length)
	}
}

func TestCheckAdmissionRepersistsDefaultsWhenAbsent(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	admitted, err := d.checkAdmission(ctx)
	if err != nil {
		t.Fatalf("checkAdmission: %v", err)
	}
	if !admitted {
		t.Error("fresh state should admit")
	}
	state, err := store.LoadDaemonState(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state == nil {
		t.Fatal("defaults were not re-persisted")
	}
}

func TestCheckAdmissionAtCapacity(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	state := queue.DefaultDaemonState(2)
	if err := store.SaveDaemonState(ctx, state); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if _, err := store.AddInFlight(ctx, 2); err != nil {
		t.Fatalf("add in-flight: %v", err)
	}

	admitted, err := d.checkAdmission(ctx)
	if err != nil {
		t.Fatalf("checkAdmission: %v", err)
	}
	if admitted {
		t.Error("admitted at capacity")
	}

	if _, err := store.AddInFlight(ctx, -1); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	admitted, err = d.checkAdmission(ctx)
	if err != nil {
		t.Fatalf("checkAdmission: %v", err)
	}
	if !admitted {
		t.Error("not admitted below capacity")
	}
}
