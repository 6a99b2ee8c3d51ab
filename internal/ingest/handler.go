// Package ingest turns scraped file references into stored document records.
// The handler downloads the file, normalizes the scraper's free-text fields,
// saves the bytes into the blob store, optionally inserts the record into the
// external document database, and synthesizes the follow-up processing task.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"scrivener/internal/config"
	"scrivener/internal/document"
	"scrivener/internal/logging"
	"scrivener/internal/queue"
	"scrivener/internal/services"
	"scrivener/internal/services/llm"
	"scrivener/internal/storage"
	"scrivener/internal/task"
)

// DocumentStore is the slice of the document database bridge ingestion needs.
type DocumentStore interface {
	Insert(ctx context.Context, rec *document.Record) (*document.Record, error)
}

// NameSplitter resolves a free-text author field into individual names.
// Satisfied by the LLM client.
type NameSplitter interface {
	Instruct(ctx context.Context, content, instruction string) (string, error)
}

// Handler ingests scraped files.
type Handler struct {
	cfg      *config.Config
	store    *queue.Store
	blobs    *storage.Store
	docs     DocumentStore
	splitter NameSplitter
	logger   *slog.Logger
}

// NewHandler wires an ingestion handler.
func NewHandler(cfg *config.Config, store *queue.Store, blobs *storage.Store, docs DocumentStore, splitter NameSplitter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, store: store, blobs: blobs, docs: docs, splitter: splitter, logger: logger}
}

// Handle ingests the scrape payload of t. On success the built record is
// attached to the task and, when admission state asks for one, a follow-up
// processing task is enqueued and linked. Failures never enqueue a follow-up.
// The caller owns the task's final status write.
func (h *Handler) Handle(ctx context.Context, t *task.Task) error {
	if t.Scrape == nil {
		return services.Wrap(services.ErrInvariant, "ingest", "handle", "task carries no scrape payload", nil)
	}
	req := *t.Scrape

	ext, ok := normalizeFileType(req.FileType)
	if !ok {
		return services.Wrap(services.ErrValidation, "ingest", "handle",
			fmt.Sprintf("unsupported file type %q", req.FileType), nil)
	}
	if strings.TrimSpace(req.FileURL) == "" {
		return services.Wrap(services.ErrValidation, "ingest", "handle", "scrape request has no file url", nil)
	}

	localPath, err := storage.Download(ctx, req.FileURL, h.cfg.Paths.StagingDir)
	if err != nil {
		return err
	}

	hash, existed, err := h.blobs.Save(localPath)
	if err != nil {
		return err
	}
	// The blob store owns the bytes now; the staging copy is done.
	if removeErr := os.Remove(localPath); removeErr != nil {
		h.logger.WarnContext(ctx, "failed to remove staging file",
			logging.String("path", localPath), logging.Error(removeErr))
	}
	if existed && h.cfg.Ingest.DisableIfHashKnown {
		return services.Wrap(services.ErrValidation, "ingest", "handle", "file already exists", nil)
	}

	lang := document.NormalizeLanguage(req.Language)
	authors := h.resolveAuthors(ctx, req)
	metadata := buildMetadata(req, ext, lang)
	if names := document.AuthorNames(authors); len(names) > 0 {
		metadata["authors"] = strings.Join(names, ", ")
	}

	rec := &document.Record{
		Extension: ext,
		Language:  lang,
		Name:      documentName(req),
		Hash:      hash,
		Metadata:  metadata,
		Stage: document.ProcStage{
			ExternalStatus: document.ExternalPending,
			PipelineStage:  document.StageUnprocessed,
		},
		Authors: authors,
	}

	if t.Interaction == task.InteractInsert {
		inserted, err := h.docs.Insert(ctx, rec)
		if err != nil {
			return err
		}
		if inserted.ID == uuid.Nil {
			return services.Wrap(services.ErrInvariant, "ingest", "handle", "insert returned a record without an id", nil)
		}
		rec = inserted
	}
	t.Document = rec
	t.Touch()

	h.logger.InfoContext(ctx, "ingested document",
		logging.String(logging.FieldTaskID, t.ID.String()),
		logging.String(logging.FieldHash, hash),
		logging.String("extension", string(ext)),
	)
	return h.maybeEnqueueFollowup(ctx, t, rec)
}

func (h *Handler) maybeEnqueueFollowup(ctx context.Context, t *task.Task, rec *document.Record) error {
	state, err := h.store.LoadDaemonState(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		def := queue.DefaultDaemonState(h.cfg.Daemon.MaxConcurrentTasks)
		state = &def
	}
	if state.InsertFollowupAfterIngest == nil || !*state.InsertFollowupAfterIngest {
		return nil
	}

	followup := task.NewProcessDocument(*rec, t.Priority, t.Interaction.Evolve(), h.cfg.Daemon.StatusURLBase)
	atFront := state.InsertFollowupAtFront != nil && *state.InsertFollowupAtFront
	if atFront {
		err = h.store.PushFront(ctx, followup)
	} else {
		err = h.store.Push(ctx, followup)
	}
	if err != nil {
		return err
	}
	t.LinkFollowup(followup)

	h.logger.InfoContext(ctx, "enqueued follow-up processing task",
		logging.String(logging.FieldTaskID, t.ID.String()),
		logging.String("followup_task_id", followup.ID.String()),
		logging.Bool("at_front", atFront),
	)
	return nil
}

// resolveAuthors splits the scraper's author field into names. The LLM does
// the splitting when available; any LLM failure falls back to a comma split
// rather than failing the ingest.
func (h *Handler) resolveAuthors(ctx context.Context, req task.ScrapeRequest) []document.Author {
	raw := strings.TrimSpace(req.AuthorIndividual)
	if raw == "" {
		raw = strings.TrimSpace(req.AuthorOrganisation)
	}
	if raw == "" {
		return nil
	}

	names := h.splitNames(ctx, raw)
	authors := make([]document.Author, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		authors = append(authors, document.Author{Name: name})
	}
	return authors
}

func (h *Handler) splitNames(ctx context.Context, raw string) []string {
	if h.splitter != nil {
		reply, err := h.splitter.Instruct(ctx, raw,
			"The text names one or more document authors. Return a JSON array of the individual author names, nothing else.")
		if err == nil {
			var names []string
			if decodeErr := llm.DecodeLLMJSON(reply, &names); decodeErr == nil && len(names) > 0 {
				return names
			}
		} else {
			h.logger.WarnContext(ctx, "author split via llm failed, falling back to comma split",
				logging.Error(err))
		}
	}
	return strings.Split(raw, ",")
}

func normalizeFileType(fileType string) (document.Extension, bool) {
	fileType = strings.TrimSpace(fileType)
	if fileType == "" {
		fileType = "pdf"
	}
	return document.RectifyExtension(fileType)
}

func documentName(req task.ScrapeRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	url := strings.TrimRight(req.FileURL, "/")
	if idx := strings.LastIndex(url, "/"); idx >= 0 && idx < len(url)-1 {
		return url[idx+1:]
	}
	return url
}

func buildMetadata(req task.ScrapeRequest, ext document.Extension, lang string) map[string]string {
	metadata := make(map[string]string)
	put := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			metadata[key] = value
		}
	}
	put("url", req.FileURL)
	put("published_date", req.PublishedDate)
	put("source", req.Source)
	put("docket_id", strings.ToUpper(strings.TrimSpace(req.DocketID)))
	put("author_individual", req.AuthorIndividual)
	put("author_individual_email", req.AuthorIndividualEmail)
	put("author_organisation", req.AuthorOrganisation)
	put("file_class", req.FileClass)
	put("item_number", req.ItemNumber)
	put("lang", lang)
	put("extension", string(ext))
	return metadata
}
