package document

import (
	"strings"

	"github.com/google/uuid"
)

// TextEntry is one extracted or translated text attached to a record.
type TextEntry struct {
	IsOriginal bool   `json:"is_original_text"`
	Language   string `json:"language"`
	Text       string `json:"text"`
}

// Extras holds the LLM-generated derived fields.
type Extras struct {
	Summary        string  `json:"summary,omitempty"`
	ShortSummary   string  `json:"short_summary,omitempty"`
	Purpose        string  `json:"purpose,omitempty"`
	Impressiveness float64 `json:"impressiveness,omitempty"`
}

// Author is a structured attribution split out of free-text author metadata.
type Author struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Record is the document as persisted to the external store. ID stays the nil
// UUID until the first successful insert assigns one.
type Record struct {
	ID        uuid.UUID         `json:"id"`
	Extension Extension         `json:"extension"`
	Language  string            `json:"language"`
	Name      string            `json:"name"`
	Hash      string            `json:"hash"`
	IsPrivate bool              `json:"is_private"`
	Metadata  map[string]string `json:"metadata"`
	Texts     []TextEntry       `json:"texts"`
	Stage     ProcStage         `json:"stage"`
	Extras    Extras            `json:"extras"`
	Authors   []Author          `json:"authors"`
}

// AppendText adds an extracted or translated text to the record.
func (r *Record) AppendText(entry TextEntry) {
	r.Texts = append(r.Texts, entry)
}

// EnglishText returns the first English text attached to the record, or ""
// when none exists yet.
func (r *Record) EnglishText() string {
	for _, entry := range r.Texts {
		if IsEnglish(entry.Language) {
			return entry.Text
		}
	}
	return ""
}

// OriginalText returns the first text flagged as original source text.
func (r *Record) OriginalText() string {
	for _, entry := range r.Texts {
		if entry.IsOriginal {
			return entry.Text
		}
	}
	return ""
}

// AuthorNames flattens structured authors back into display names.
func AuthorNames(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, author := range authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
