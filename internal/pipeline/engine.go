// Package pipeline drives a document record through the ordered processing
// stages: content verification, text extraction, translation, derived-extras
// generation, and embedding triggering. A run resumes from the record's
// persisted stage, so re-enqueueing a failed document never repeats the
// stages that already succeeded.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scrivener/internal/document"
	"scrivener/internal/logging"
	"scrivener/internal/services"
	"scrivener/internal/storage"
)

// maxIterations bounds the stage loop. The stage index increases on every
// successful iteration, so hitting this cap means a dispatch bug.
const maxIterations = 1000

// shortDocumentChars is the cutoff under which the full text, rather than
// the summary, feeds the purpose and impressiveness prompts.
const shortDocumentChars = 2000

// Extractor is the slice of the extraction bridge the pipeline needs.
type Extractor interface {
	ExtractFromFile(ctx context.Context, path string, ext document.Extension) (string, error)
	Translate(ctx context.Context, text, sourceLang string) (string, error)
}

// ExtrasGenerator produces the LLM-derived extras. Satisfied by the LLM
// client.
type ExtrasGenerator interface {
	Summarize(ctx context.Context, text string) (string, error)
	Instruct(ctx context.Context, content, instruction string) (string, error)
	Score(ctx context.Context, content, instruction string, renorm float64) (float64, error)
}

// EmbeddingTrigger asks the embedding service to vectorize a record.
type EmbeddingTrigger interface {
	Trigger(ctx context.Context, rec *document.Record) error
}

// Engine holds the shared collaborators for pipeline runs.
type Engine struct {
	blobs     *storage.Store
	extractor Extractor
	extras    ExtrasGenerator
	embedder  EmbeddingTrigger
	logger    *slog.Logger
}

// NewEngine wires a pipeline engine.
func NewEngine(blobs *storage.Store, extractor Extractor, extras ExtrasGenerator, embedder EmbeddingTrigger, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{blobs: blobs, extractor: extractor, extras: extras, embedder: embedder, logger: logger}
}

// run carries the intermediate texts of one pipeline invocation as named
// fields so stage handlers pass state explicitly instead of mutating
// captured closures.
type run struct {
	engine       *Engine
	rec          *document.Record
	originalText string
	englishText  string
}

// Process advances rec from its persisted stage until the stage index
// reaches stopAt (normally StageCompleted). The record is mutated in place
// and always returned; on failure its stage is rewritten as errored and the
// error is returned rather than panicking across the loop boundary.
func (e *Engine) Process(ctx context.Context, rec *document.Record, stopAt document.Stage) (*document.Record, error) {
	stopIdx := document.StageIndex(stopAt)
	if stopIdx < 0 {
		err := services.Wrap(services.ErrInvariant, "pipeline", "process",
			fmt.Sprintf("unknown stop-at stage %q", stopAt), nil)
		return fail(rec, err)
	}

	rec.Stage.ExternalStatus = document.ExternalProcessing
	r := &run{engine: e, rec: rec}

	for i := 0; i < maxIterations; i++ {
		current := rec.Stage.PipelineStage
		idx := document.StageIndex(current)
		if idx < 0 {
			err := services.Wrap(services.ErrInvariant, "pipeline", "process",
				fmt.Sprintf("corrupt pipeline stage %q", current), nil)
			return fail(rec, err)
		}
		if idx >= stopIdx {
			rec.Stage.IsCompleted = true
			rec.Stage.IsErrored = false
			rec.Stage.ExternalStatus = document.ExternalCompleted
			return rec, nil
		}

		next, err := r.dispatch(ctx, current)
		if err != nil {
			return fail(rec, err)
		}
		e.logger.DebugContext(ctx, "stage transition",
			logging.String(logging.FieldStage, string(current)),
			logging.String("next_stage", string(next)),
			logging.String(logging.FieldHash, rec.Hash),
		)
		rec.Stage.PipelineStage = next
	}

	err := services.Wrap(services.ErrInvariant, "pipeline", "process",
		fmt.Sprintf("stage loop exceeded %d iterations", maxIterations), nil)
	return fail(rec, err)
}

// fail rewrites the record's stage as errored, keeping the pipeline stage at
// the point of failure and preserving ingest bookkeeping.
func fail(rec *document.Record, err error) (*document.Record, error) {
	rec.Stage = document.ProcStage{
		ExternalStatus:     document.ExternalErrored,
		PipelineStage:      rec.Stage.PipelineStage,
		SkipProcessing:     rec.Stage.SkipProcessing,
		IsErrored:          true,
		IsCompleted:        true,
		IngestErrorMsg:     rec.Stage.IngestErrorMsg,
		ProcessingErrorMsg: err.Error(),
		DatabaseErrorMsg:   rec.Stage.DatabaseErrorMsg,
	}
	return rec, err
}

func (r *run) dispatch(ctx context.Context, stage document.Stage) (document.Stage, error) {
	switch stage {
	case document.StageUnprocessed:
		return r.verifyContent(ctx)
	case document.StageExtraction:
		return r.extractText(ctx)
	case document.StageTranslation:
		return r.translateText(ctx)
	case document.StageExtras:
		return r.generateExtras(ctx)
	case document.StageSummarizationCompleted:
		return r.triggerEmbeddings(ctx)
	case document.StageEmbeddingsCompleted:
		return document.StageCompleted, nil
	default:
		return "", services.Wrap(services.ErrInvariant, "pipeline", "dispatch",
			fmt.Sprintf("no handler for stage %q", stage), nil)
	}
}

func (r *run) verifyContent(ctx context.Context) (document.Stage, error) {
	rec := r.rec
	ext, ok := document.RectifyExtension(string(rec.Extension))
	if !ok {
		return "", services.Wrap(services.ErrValidation, "pipeline", "verify",
			fmt.Sprintf("unknown extension %q", rec.Extension), nil)
	}
	rec.Extension = ext

	if strings.TrimSpace(rec.Hash) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "verify", "record has no content hash", nil)
	}
	path := r.engine.blobs.Path(rec.Hash)
	if !r.engine.blobs.Exists(rec.Hash) {
		return "", services.Wrap(services.ErrNotFound, "pipeline", "verify",
			fmt.Sprintf("no blob stored for hash %s", rec.Hash), nil)
	}

	// Spreadsheets carry no prose worth extracting.
	if ext == document.ExtXlsx {
		return document.StageCompleted, nil
	}

	matches, detail, err := document.VerifyContent(path, ext)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "pipeline", "verify", "content sniff failed", err)
	}
	if !matches {
		rec.Stage.SkipProcessing = true
		return "", services.Wrap(services.ErrValidation, "pipeline", "verify", detail, nil)
	}
	return document.StageExtraction, nil
}

func (r *run) extractText(ctx context.Context) (document.Stage, error) {
	rec := r.rec
	path := r.engine.blobs.Path(rec.Hash)
	text, err := r.engine.extractor.ExtractFromFile(ctx, path, rec.Extension)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "extract", "Empty Processed Text", nil)
	}

	rec.AppendText(document.TextEntry{
		IsOriginal: true,
		Language:   rec.Language,
		Text:       text,
	})
	r.originalText = text
	if document.IsEnglish(rec.Language) {
		r.englishText = text
		return document.StageExtras, nil
	}
	return document.StageTranslation, nil
}

func (r *run) translateText(ctx context.Context) (document.Stage, error) {
	rec := r.rec
	if document.IsEnglish(rec.Language) {
		return "", services.Wrap(services.ErrInvariant, "pipeline", "translate",
			"translation stage reached for an English document", nil)
	}

	source := r.originalText
	if source == "" {
		// Resuming from a persisted stage2: the extraction run that produced
		// the original text happened in a previous invocation.
		source = rec.OriginalText()
	}
	if strings.TrimSpace(source) == "" {
		return "", services.Wrap(services.ErrInvariant, "pipeline", "translate", "no original text to translate", nil)
	}

	translated, err := r.engine.extractor.Translate(ctx, source, rec.Language)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(translated) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "translate", "empty translation result", nil)
	}

	rec.AppendText(document.TextEntry{
		IsOriginal: false,
		Language:   "en",
		Text:       translated,
	})
	r.englishText = translated
	return document.StageExtras, nil
}

// generateExtras produces the derived fields. Each extra is isolated: one
// failing generation logs a warning and leaves its field empty instead of
// failing the stage.
func (r *run) generateExtras(ctx context.Context) (document.Stage, error) {
	rec := r.rec
	text := r.englishText
	if text == "" {
		text = rec.EnglishText()
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "extras", "no english text available", nil)
	}

	warn := func(what string, err error) {
		r.engine.logger.WarnContext(ctx, "extras generation failed",
			logging.String("extra", what),
			logging.String(logging.FieldHash, rec.Hash),
			logging.Error(err),
		)
	}

	summary, err := r.engine.extras.Summarize(ctx, text)
	if err != nil {
		warn("summary", err)
	} else {
		rec.Extras.Summary = summary
	}

	if rec.Extras.Summary != "" {
		short, err := r.engine.extras.Instruct(ctx, rec.Extras.Summary,
			"Condense this summary into a single sentence.")
		if err != nil {
			warn("short_summary", err)
		} else {
			rec.Extras.ShortSummary = short
		}
	}

	// Short documents are judged on their full text; long ones on the
	// summary, to keep the prompt inside the model's context.
	basis := text
	if len(basis) >= shortDocumentChars && rec.Extras.Summary != "" {
		basis = rec.Extras.Summary
	}

	purpose, err := r.engine.extras.Instruct(ctx, basis,
		"State the purpose of this document in one short paragraph.")
	if err != nil {
		warn("purpose", err)
	} else {
		rec.Extras.Purpose = purpose
	}

	score, err := r.engine.extras.Score(ctx, basis,
		"Rate from 0 to 10 how impressive and substantive this document is.", 10)
	if err != nil {
		warn("impressiveness", err)
	} else {
		rec.Extras.Impressiveness = score
	}

	return document.StageSummarizationCompleted, nil
}

func (r *run) triggerEmbeddings(ctx context.Context) (document.Stage, error) {
	if err := r.engine.embedder.Trigger(ctx, r.rec); err != nil {
		return "", err
	}
	return document.StageEmbeddingsCompleted, nil
}
