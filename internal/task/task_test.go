package task_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"scrivener/internal/document"
	"scrivener/internal/task"
)

func TestNewScrapeIngest(t *testing.T) {
	tk := task.NewScrapeIngest(task.ScrapeRequest{FileURL: "http://x/doc.pdf"}, true, task.InteractInsert, "https://scrivener.local")
	if tk.ID == uuid.Nil {
		t.Fatal("expected a non-nil task id")
	}
	if tk.URL != "https://scrivener.local/v1/status/"+tk.ID.String() {
		t.Fatalf("unexpected status url %q", tk.URL)
	}
	if err := tk.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if tk.Completed || tk.Success {
		t.Fatal("new task must not start completed")
	}
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	tk := task.NewProcessDocument(document.Record{Hash: "abc"}, false, task.InteractUpdate, "https://scrivener.local")
	tk.Document = nil
	err := tk.Validate()
	if !errors.Is(err, task.ErrNilPayload) {
		t.Fatalf("expected ErrNilPayload, got %v", err)
	}

	tk.Type = task.Type("mystery")
	if err := tk.Validate(); err == nil {
		t.Fatal("expected unknown type to fail validation")
	}
}

func TestEvolveInteraction(t *testing.T) {
	cases := []struct {
		in   task.Interaction
		want task.Interaction
	}{
		{task.InteractInsert, task.InteractUpdate},
		{task.InteractInsertLater, task.InteractInsert},
		{task.InteractInsertReportLater, task.InteractInsertReport},
		{task.InteractInsertReport, task.InteractUpdateReport},
		{task.InteractUpdate, task.InteractUpdate},
		{task.InteractUpdateReport, task.InteractUpdateReport},
		{task.InteractNone, task.InteractNone},
	}
	for _, tc := range cases {
		if got := tc.in.Evolve(); got != tc.want {
			t.Fatalf("Evolve(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMarkOutcomeRefreshesTimestamp(t *testing.T) {
	tk := task.NewScrapeIngest(task.ScrapeRequest{}, false, task.InteractNone, "https://scrivener.local")
	before := tk.UpdatedAt
	tk.MarkFailure(errors.New("download failed"))
	if !tk.Completed || tk.Success {
		t.Fatal("failure must complete the task without success")
	}
	if tk.Error != "download failed" {
		t.Fatalf("unexpected error message %q", tk.Error)
	}
	if tk.UpdatedAt.Before(before) {
		t.Fatal("UpdatedAt must not move backwards")
	}

	tk2 := task.NewScrapeIngest(task.ScrapeRequest{}, false, task.InteractNone, "https://scrivener.local")
	tk2.MarkSuccess()
	if !tk2.Completed || !tk2.Success || tk2.Error != "" {
		t.Fatalf("unexpected success state: %+v", tk2)
	}
}

func TestLinkFollowup(t *testing.T) {
	parent := task.NewScrapeIngest(task.ScrapeRequest{}, false, task.InteractInsert, "https://scrivener.local")
	child := task.NewProcessDocument(document.Record{}, false, parent.Interaction.Evolve(), "https://scrivener.local")
	parent.LinkFollowup(child)
	if parent.FollowupTaskID == nil || *parent.FollowupTaskID != child.ID {
		t.Fatal("expected followup id to link to the child task")
	}
	if parent.FollowupTaskURL != child.URL {
		t.Fatal("expected followup url to link to the child task")
	}
	if child.Interaction != task.InteractUpdate {
		t.Fatalf("expected evolved interaction update, got %s", child.Interaction)
	}
}

func TestParseInteraction(t *testing.T) {
	got, ok := task.ParseInteraction(" Insert_Report ")
	if !ok || got != task.InteractInsertReport {
		t.Fatalf("ParseInteraction returned %q, %v", got, ok)
	}
	if _, ok := task.ParseInteraction("upsert"); ok {
		t.Fatal("expected unknown interaction to fail parsing")
	}
}
