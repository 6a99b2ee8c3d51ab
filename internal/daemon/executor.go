package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scrivener/internal/document"
	"scrivener/internal/logging"
	"scrivener/internal/queue"
	"scrivener/internal/services"
	"scrivener/internal/task"
)

// IngestHandler processes scrape-ingest tasks.
type IngestHandler interface {
	Handle(ctx context.Context, t *task.Task) error
}

// DocumentProcessor advances a record through the pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, rec *document.Record, stopAt document.Stage) (*document.Record, error)
}

// DocumentUpserter persists a record per the task's database interaction.
type DocumentUpserter interface {
	Upsert(ctx context.Context, rec *document.Record, interaction task.Interaction) (*document.Record, error)
}

// Executor runs a popped task to completion and writes its outcome. Every
// execution adjusts the in-flight counter symmetrically, panics included.
type Executor struct {
	store     *queue.Store
	ingest    IngestHandler
	processor DocumentProcessor
	docs      DocumentUpserter
	logger    *slog.Logger
}

// NewExecutor wires a task executor.
func NewExecutor(store *queue.Store, ingest IngestHandler, processor DocumentProcessor, docs DocumentUpserter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, ingest: ingest, processor: processor, docs: docs, logger: logger}
}

// Execute runs the task's handler and persists the outcome exactly once.
// Errors never escape: failures are written onto the task record. A panic
// out of a handler is a contract violation; it is logged as such, recorded
// on the task, and still decrements the counter.
func (e *Executor) Execute(ctx context.Context, t *task.Task) {
	if _, err := e.store.AddInFlight(ctx, 1); err != nil {
		e.logger.ErrorContext(ctx, "failed to increment in-flight counter", logging.Error(err))
	}
	defer func() {
		if _, err := e.store.AddInFlight(ctx, -1); err != nil {
			e.logger.ErrorContext(ctx, "failed to decrement in-flight counter", logging.Error(err))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "task handler panicked; handlers must record their own errors",
				logging.String(logging.FieldTaskID, t.ID.String()),
				logging.String(logging.FieldTaskType, string(t.Type)),
				logging.Any("panic", r),
			)
			t.MarkFailure(fmt.Errorf("handler panic: %v", r))
			e.writeOutcome(ctx, t)
		}
	}()

	if err := t.Validate(); err != nil {
		t.MarkFailure(err)
		e.writeOutcome(ctx, t)
		return
	}

	var err error
	switch t.Type {
	case task.TypeScrapeIngest:
		err = e.ingest.Handle(ctx, t)
	case task.TypeProcessDocument:
		err = e.processDocument(ctx, t)
	default:
		err = services.Wrap(services.ErrInvariant, "executor", "execute",
			fmt.Sprintf("unknown task type %q", t.Type), nil)
	}

	if err != nil {
		e.logger.WarnContext(ctx, "task failed",
			logging.String(logging.FieldTaskID, t.ID.String()),
			logging.String(logging.FieldTaskType, string(t.Type)),
			logging.Error(err),
		)
		t.MarkFailure(err)
	} else {
		t.MarkSuccess()
	}
	e.writeOutcome(ctx, t)
}

// processDocument runs the pipeline and then persists the record, errored or
// not, so the external store always reflects the document's latest state.
func (e *Executor) processDocument(ctx context.Context, t *task.Task) error {
	rec, procErr := e.processor.Process(ctx, t.Document, document.StageCompleted)
	t.Document = rec

	updated, dbErr := e.docs.Upsert(ctx, rec, t.Interaction)
	if dbErr != nil {
		rec.Stage.DatabaseErrorMsg = dbErr.Error()
	} else {
		t.Document = updated
	}
	return errors.Join(procErr, dbErr)
}

func (e *Executor) writeOutcome(ctx context.Context, t *task.Task) {
	if err := e.store.UpsertTask(ctx, t); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist task outcome",
			logging.String(logging.FieldTaskID, t.ID.String()),
			logging.Error(err),
		)
	}
}
