package document_test

import (
	"testing"

	"scrivener/internal/document"
)

func TestStageIndexStrictlyIncreasing(t *testing.T) {
	order := []document.Stage{
		document.StageUnprocessed,
		document.StageExtraction,
		document.StageTranslation,
		document.StageExtras,
		document.StageSummarizationCompleted,
		document.StageEmbeddingsCompleted,
		document.StageOrganizationAssigned,
		document.StageEncountersAnalyzed,
		document.StageUploadDocumentToDB,
		document.StageCompleted,
	}
	for i := 1; i < len(order); i++ {
		prev := document.StageIndex(order[i-1])
		cur := document.StageIndex(order[i])
		if prev >= cur {
			t.Fatalf("expected index(%s)=%d < index(%s)=%d", order[i-1], prev, order[i], cur)
		}
	}
	completed := document.StageIndex(document.StageCompleted)
	for _, stage := range order[:len(order)-1] {
		if document.StageIndex(stage) >= completed {
			t.Fatalf("stage %s should sort before completed", stage)
		}
	}
}

func TestStageIndexUnknown(t *testing.T) {
	if idx := document.StageIndex(document.Stage("bogus")); idx != -1 {
		t.Fatalf("expected -1 for unknown stage, got %d", idx)
	}
}

func TestParseStage(t *testing.T) {
	stage, ok := document.ParseStage("  Stage2 ")
	if !ok || stage != document.StageTranslation {
		t.Fatalf("ParseStage returned %q, %v", stage, ok)
	}
	if _, ok := document.ParseStage("nope"); ok {
		t.Fatal("expected unknown stage to fail parsing")
	}
}

func TestRectifyExtension(t *testing.T) {
	cases := []struct {
		raw  string
		want document.Extension
		ok   bool
	}{
		{"pdf", document.ExtPDF, true},
		{".PDF", document.ExtPDF, true},
		{"pdf (148 KB)", document.ExtPDF, true},
		{"  XLSX ", document.ExtXlsx, true},
		{"exe", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := document.RectifyExtension(tc.raw)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("RectifyExtension(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsEnglish(t *testing.T) {
	for _, code := range []string{"en", "EN", "eng", "English", "en-US"} {
		if !document.IsEnglish(code) {
			t.Fatalf("expected %q to be English", code)
		}
	}
	for _, code := range []string{"", "fr", "de-DE", "spanish"} {
		if document.IsEnglish(code) {
			t.Fatalf("expected %q not to be English", code)
		}
	}
}

func TestEnglishTextLookup(t *testing.T) {
	rec := document.Record{}
	rec.AppendText(document.TextEntry{IsOriginal: true, Language: "fr", Text: "bonjour"})
	if got := rec.EnglishText(); got != "" {
		t.Fatalf("expected no english text, got %q", got)
	}
	rec.AppendText(document.TextEntry{IsOriginal: false, Language: "en", Text: "hello"})
	if got := rec.EnglishText(); got != "hello" {
		t.Fatalf("unexpected english text %q", got)
	}
	if got := rec.OriginalText(); got != "bonjour" {
		t.Fatalf("unexpected original text %q", got)
	}
}
