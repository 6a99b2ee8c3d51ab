package document

import "testing"

func TestRectifiedExtensionFlowsThroughRecord(t *testing.T) {
	ext, ok := RectifyExtension(".PDF (148 KB)")
	if !ok {
		t.Fatal("expected rectification to succeed")
	}

	rec := Record{Extension: ext}
	if rec.Extension != ExtPDF {
		t.Fatalf("extension = %q, want %q", rec.Extension, ExtPDF)
	}

	// Re-rectifying a persisted record's extension must be loss-free.
	again, ok := RectifyExtension(string(rec.Extension))
	if !ok || again != rec.Extension {
		t.Fatalf("re-rectify = (%q, %v), want (%q, true)", again, ok, rec.Extension)
	}
	rec.Extension = again
}

func TestRecordTextLookups(t *testing.T) {
	rec := Record{}
	if rec.OriginalText() != "" || rec.EnglishText() != "" {
		t.Fatal("empty record should have no texts")
	}

	rec.AppendText(TextEntry{IsOriginal: true, Language: "de", Text: "hallo"})
	rec.AppendText(TextEntry{IsOriginal: false, Language: "en", Text: "hello"})

	if got := rec.OriginalText(); got != "hallo" {
		t.Errorf("OriginalText = %q, want %q", got, "hallo")
	}
	if got := rec.EnglishText(); got != "hello" {
		t.Errorf("EnglishText = %q, want %q", got, "hello")
	}
}
