package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrivener/internal/document"
)

// Type tags which payload kind a task carries.
type Type string

const (
	// TypeScrapeIngest downloads a scraped file and turns it into a stored
	// document record.
	TypeScrapeIngest Type = "scrape_ingest"
	// TypeProcessDocument advances an existing document record through the
	// processing pipeline.
	TypeProcessDocument Type = "process_document"
)

// ScrapeRequest describes a remote file discovered by a scraper, plus the
// free-text metadata that came with it. All fields default to empty;
// normalization happens in the ingestion handler.
type ScrapeRequest struct {
	FileURL               string `json:"file_url"`
	Name                  string `json:"name"`
	PublishedDate         string `json:"published_date"`
	Source                string `json:"internal_source_name"`
	DocketID              string `json:"docket_id"`
	AuthorIndividual      string `json:"author_individual"`
	AuthorIndividualEmail string `json:"author_individual_email"`
	AuthorOrganisation    string `json:"author_organisation"`
	FileClass             string `json:"file_class"`
	FileType              string `json:"file_type"`
	Language              string `json:"lang"`
	ItemNumber            string `json:"item_number"`
}

// Task is the envelope stored in the queue and the status map. Exactly one of
// Scrape or Document is set, matching Type. Completed=true is terminal.
type Task struct {
	ID          uuid.UUID   `json:"id"`
	URL         string      `json:"url"`
	Priority    bool        `json:"priority"`
	Type        Type        `json:"type"`
	Interaction Interaction `json:"database_interaction"`

	Scrape   *ScrapeRequest   `json:"scrape,omitempty"`
	Document *document.Record `json:"document,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Completed bool   `json:"completed"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`

	FollowupTaskID  *uuid.UUID `json:"followup_task_id,omitempty"`
	FollowupTaskURL string     `json:"followup_task_url,omitempty"`
}

// ErrNilPayload is returned when a task's payload does not match its type tag.
var ErrNilPayload = errors.New("task payload missing for declared type")

// StatusURL derives the status-check locator for a task id.
func StatusURL(base string, id uuid.UUID) string {
	return strings.TrimRight(base, "/") + "/v1/status/" + id.String()
}

func newTask(priority bool, interaction Interaction, statusBase string) *Task {
	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.New(),
		Priority:    priority,
		Interaction: interaction,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.URL = StatusURL(statusBase, t.ID)
	return t
}

// NewScrapeIngest builds a task that fetches and ingests a scraped file.
func NewScrapeIngest(req ScrapeRequest, priority bool, interaction Interaction, statusBase string) *Task {
	t := newTask(priority, interaction, statusBase)
	t.Type = TypeScrapeIngest
	t.Scrape = &req
	return t
}

// NewProcessDocument builds a task that advances an existing record.
func NewProcessDocument(rec document.Record, priority bool, interaction Interaction, statusBase string) *Task {
	t := newTask(priority, interaction, statusBase)
	t.Type = TypeProcessDocument
	t.Document = &rec
	return t
}

// Validate checks the envelope invariants: non-nil id and a payload matching
// the type tag.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("task has a nil uuid")
	}
	switch t.Type {
	case TypeScrapeIngest:
		if t.Scrape == nil {
			return fmt.Errorf("%w: %s", ErrNilPayload, t.Type)
		}
	case TypeProcessDocument:
		if t.Document == nil {
			return fmt.Errorf("%w: %s", ErrNilPayload, t.Type)
		}
	default:
		return fmt.Errorf("unknown task type %q", t.Type)
	}
	return nil
}

// Touch refreshes the mutation timestamp.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// MarkSuccess finalizes the task as completed successfully.
func (t *Task) MarkSuccess() {
	t.Completed = true
	t.Success = true
	t.Error = ""
	t.Touch()
}

// MarkFailure finalizes the task as completed with an error.
func (t *Task) MarkFailure(err error) {
	t.Completed = true
	t.Success = false
	if err != nil {
		t.Error = err.Error()
	}
	t.Touch()
}

// LinkFollowup records the follow-up task spawned by this one.
func (t *Task) LinkFollowup(followup *Task) {
	if followup == nil {
		return
	}
	id := followup.ID
	t.FollowupTaskID = &id
	t.FollowupTaskURL = followup.URL
	t.Touch()
}
